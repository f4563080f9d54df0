package protocol

import "errors"

// Transaction-level errors: reported before any command dispatches and
// abort the transaction outright.
var (
	ErrPreChargeInsufficientBalance = errors.New("precharge: signer balance insufficient for gas_limit*max_base_fee+priority_fee*gas_limit")
	ErrNonceTooLow                  = errors.New("precharge: nonce too low")
	ErrNonceTooHigh                 = errors.New("precharge: nonce too high")
)

// Command-level errors: caught at the command boundary and converted into
// a Failed receipt; they never unwind the transaction.
var (
	ErrExecutionProperGasExhausted = errors.New("command: gas exhausted during execution")
	ErrInvalidCommand              = errors.New("command: invalid command")
	ErrInvalidInput                = errors.New("command: invalid input")
	ErrInsufficientBalance         = errors.New("command: insufficient account balance")

	ErrDeployInvalidContract  = errors.New("deploy: contract rejected by non-determinism filter")
	ErrDeployFailed           = errors.New("deploy: compilation failed")
	ErrCBIVersionAlreadySet   = errors.New("deploy: target address already has contract code")
	ErrIncompatibleCBIVersion = errors.New("call: contract cbi version incompatible with this runtime")

	ErrContractTrap             = errors.New("call: contract execution trapped")
	ErrMethodNotFound           = errors.New("call: exported method not found")
	ErrRecursiveCallDepthExceeded = errors.New("call: recursive call depth exceeded")

	ErrPoolNotExists      = errors.New("pool: does not exist")
	ErrPoolAlreadyExists  = errors.New("pool: already exists for this operator")
	ErrDepositNotExists   = errors.New("deposit: does not exist")
	ErrDepositAlreadyExists = errors.New("deposit: already exists for this owner/pool pair")
	ErrInsufficientStake  = errors.New("stake: insufficient staked or unstaked balance")
	ErrInvalidPoolPolicy  = errors.New("pool: invalid policy (commission rate out of range, or stakes still exist)")
)

// ErrNextEpochFailed marks an internal error in protocol-generated epoch
// processing. Per design, this is fatal to block production rather than
// representable as a command receipt.
var ErrNextEpochFailed = errors.New("next_epoch: protocol-generated command failed")
