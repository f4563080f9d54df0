package worldstate

import "github.com/ledgercore/txruntime/internal/protocol"

// Key namespacing for the fields of an Account/Pool/Deposit that are
// multiplexed onto the single (address, key) -> bytes backing contract.
const (
	nsBalance byte = iota
	nsNonce
	nsCode
	nsCBI
	nsStorage
	nsPoolMeta
	nsPoolStake
	nsDeposit
	nsEpoch
	nsValidatorSet
)

// protocolAddress is the reserved all-zero address used to key
// protocol-global state (the epoch counter and active validator set) that
// does not belong to any single account.
var protocolAddress protocol.Address

func storageNSKey(key []byte) []byte {
	return append([]byte{nsStorage}, key...)
}

func stakeNSKey(owner protocol.Address) []byte {
	return append([]byte{nsPoolStake}, owner[:]...)
}

func depositNSKey(pool protocol.Address) []byte {
	return append([]byte{nsDeposit}, pool[:]...)
}

// entryKey identifies one (address, namespaced-key) cell for the dirty map
// and change log. Namespaced keys can be arbitrary length so this is a
// struct, not a fixed array, and is used as a map key by value.
type entryKey struct {
	addr protocol.Address
	key  string
}

func mkKey(addr protocol.Address, key []byte) entryKey {
	return entryKey{addr: addr, key: string(key)}
}
