// Package statediff implements a per-transaction state diff tracer:
// balance, nonce, code and storage changes across every touched address,
// tagged as added/removed/changed/unchanged.
package statediff

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/chainbound/evmtrace/opcodes"
	"github.com/chainbound/evmtrace/tracing"
)

// Baseline is the pre-transaction snapshot a diff is computed against. The
// shadow package's Addresses type satisfies this by tracking balance, nonce
// and code across a block one transaction at a time.
type Baseline interface {
	BalanceOf(addr common.Address) *big.Int
	NonceOf(addr common.Address) uint64
	CodeOf(addr common.Address) []byte
}

// Tracer accumulates a state diff for a single transaction.
type Tracer struct {
	baseline Baseline
	ibs      tracing.IntraBlockState
	rootDone bool

	// storageKeys is the per-address set of keys an SSTORE touched during
	// execution. IntraBlockState carries no key enumerator of its own, so
	// the tracer builds this itself off OnInstructionStart, the same way
	// vmtrace.planStore extracts the written key from the stack.
	storageKeys map[common.Address]map[common.Hash]struct{}
}

// New returns a state diff tracer computed against baseline.
func New(baseline Baseline) *Tracer {
	return &Tracer{baseline: baseline, storageKeys: map[common.Address]map[common.Hash]struct{}{}}
}

// Hooks returns the callback set to install on an interpreter.
// OnInstructionStart records the key of every SSTORE so Result can later
// report a pre/post value for it; the values themselves are read from the
// IntraBlockState seen at reward-granted time, once refunds and the
// coinbase fee transfer have already landed.
func (t *Tracer) Hooks() *tracing.Hooks {
	return &tracing.Hooks{
		OnInstructionStart: t.onInstructionStart,
		OnRewardGranted:    t.onRewardGranted,
	}
}

func (t *Tracer) onInstructionStart(pc uint64, stack tracing.StackPeeker, stackHeight int, exec tracing.ExecState, ibs tracing.IntraBlockState) {
	if !opcodes.HasStorageWrite(vm.OpCode(exec.Code()[pc])) {
		return
	}
	top := stack.StackTop(1)
	if len(top) == 0 {
		return
	}
	addr := exec.Msg().Recipient
	var key common.Hash
	copy(key[:], top[0].PaddedBytes(32))
	if t.storageKeys[addr] == nil {
		t.storageKeys[addr] = map[common.Hash]struct{}{}
	}
	t.storageKeys[addr][key] = struct{}{}
}

func (t *Tracer) onRewardGranted(result *tracing.ExecutionResult, ibs tracing.IntraBlockState) {
	if !t.rootDone {
		t.ibs = ibs
		t.rootDone = true
	}
}

// Result computes the diff over every address the transaction touched.
func (t *Tracer) Result() Result {
	res := Result{}
	if t.ibs == nil {
		return res
	}
	for _, addr := range t.ibs.Touched() {
		res[addr] = t.diffAccount(addr)
	}
	return res
}

func (t *Tracer) diffAccount(addr common.Address) AccountDiff {
	existedBefore := t.baseline.BalanceOf(addr) != nil
	existsAfter := t.ibs.Exists(addr)

	diff := AccountDiff{
		Balance: t.diffBalance(addr, existedBefore, existsAfter),
		Nonce:   t.diffNonce(addr, existedBefore, existsAfter),
		Code:    t.diffCode(addr, existedBefore, existsAfter),
		Storage: t.diffStorage(addr),
	}
	return diff
}

func (t *Tracer) diffBalance(addr common.Address, existedBefore, existsAfter bool) Diff {
	before := t.baseline.BalanceOf(addr)
	after := t.ibs.GetBalance(addr)
	switch {
	case !existedBefore && existsAfter:
		return Diff{Kind: Added, To: (*hexBig)(after)}
	case existedBefore && !existsAfter:
		return Diff{Kind: Removed, From: (*hexBig)(before)}
	case before.Cmp(after) != 0:
		return Diff{Kind: Changed, From: (*hexBig)(before), To: (*hexBig)(after)}
	default:
		return Diff{Kind: Unchanged}
	}
}

func (t *Tracer) diffNonce(addr common.Address, existedBefore, existsAfter bool) Diff {
	before := t.baseline.NonceOf(addr)
	after := t.ibs.GetNonce(addr)
	switch {
	case !existedBefore && existsAfter:
		return Diff{Kind: Added, To: (*hexBig)(new(big.Int).SetUint64(after))}
	case existedBefore && !existsAfter:
		return Diff{Kind: Removed, From: (*hexBig)(new(big.Int).SetUint64(before))}
	case before != after:
		return Diff{Kind: Changed, From: (*hexBig)(new(big.Int).SetUint64(before)), To: (*hexBig)(new(big.Int).SetUint64(after))}
	default:
		return Diff{Kind: Unchanged}
	}
}

func (t *Tracer) diffCode(addr common.Address, existedBefore, existsAfter bool) Diff {
	before := t.baseline.CodeOf(addr)
	after := t.ibs.GetCode(addr)
	switch {
	case len(before) == 0 && len(after) > 0:
		return Diff{Kind: Added, To: hexBytes(after)}
	case len(before) > 0 && len(after) == 0:
		return Diff{Kind: Removed, From: hexBytes(before)}
	case string(before) != string(after):
		return Diff{Kind: Changed, From: hexBytes(before), To: hexBytes(after)}
	default:
		return Diff{Kind: Unchanged}
	}
}

func (t *Tracer) diffStorage(addr common.Address) map[common.Hash]Diff {
	existedBefore := t.baseline.BalanceOf(addr) != nil
	existsAfter := t.ibs.Exists(addr)
	out := map[common.Hash]Diff{}
	for key := range t.storageKeys[addr] {
		before := t.ibs.GetOriginalState(addr, key)
		after := t.ibs.GetState(addr, key)
		switch {
		case !existedBefore && existsAfter:
			out[key] = Diff{Kind: Added, To: after}
		case existedBefore && !existsAfter:
			out[key] = Diff{Kind: Removed, From: before}
		case before != after:
			out[key] = Diff{Kind: Changed, From: before, To: after}
		default:
			out[key] = Diff{Kind: Unchanged}
		}
	}
	return out
}
