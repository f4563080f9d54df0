package command

import (
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/wasmvm"
)

// execDeploy verifies the target address is codeless, runs the
// non-determinism filter, compiles (and caches) the module, and writes
// code+cbi_version into the signer's account. Per spec §4.I/§8 invariant
// 5, deploying twice to the same address fails with CBIVersionAlreadySet.
func (x *Executor) execDeploy(d *protocol.DeployCommand) error {
	if d == nil || len(d.Code) == 0 {
		return protocol.ErrInvalidInput
	}
	_, _, hasCode, _, err := x.ctx.World.GetCode(x.signer)
	if err != nil {
		return err
	}
	if hasCode {
		return protocol.ErrCBIVersionAlreadySet
	}
	if !protocol.IsCBICompatible(d.CBIVersion) {
		return protocol.ErrIncompatibleCBIVersion
	}

	if err := wasmvm.CheckDeterminism(d.Code, x.ctx.MemoryLimitPages); err != nil {
		return err
	}
	if err := x.ctx.Gas.ChargeOrErr(uint64(len(d.Code)) * x.schedule.PerByteCode); err != nil {
		return err
	}

	if _, err := x.ctx.ModuleCache.GetOrCompile(d.Code, d.CBIVersion); err != nil {
		return protocol.ErrDeployFailed
	}

	x.ctx.World.SetCode(x.signer, d.Code, d.CBIVersion)
	return nil
}
