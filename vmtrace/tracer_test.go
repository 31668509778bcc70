package vmtrace

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/chainbound/evmtrace/tracing"
)

type fakeStack struct{ top []uint256.Int }

func (s fakeStack) StackTop(n int) []uint256.Int {
	if n > len(s.top) {
		n = len(s.top)
	}
	return s.top[:n]
}
func (s fakeStack) StackHeight() int { return len(s.top) }

type fakeExec struct {
	code []byte
	mem  []byte
	gas  uint64
	msg  *tracing.Message
}

func (e *fakeExec) Code() []byte          { return e.code }
func (e *fakeExec) Memory() []byte        { return e.mem }
func (e *fakeExec) GasLeft() uint64       { return e.gas }
func (e *fakeExec) Msg() *tracing.Message { return e.msg }

type fakeIBS struct{}

func (fakeIBS) Exists(common.Address) bool                       { return true }
func (fakeIBS) GetBalance(common.Address) *big.Int               { return big.NewInt(0) }
func (fakeIBS) GetNonce(common.Address) uint64                   { return 0 }
func (fakeIBS) GetCode(common.Address) []byte                    { return nil }
func (fakeIBS) GetCodeHash(common.Address) common.Hash           { return common.Hash{} }
func (fakeIBS) GetState(common.Address, common.Hash) common.Hash { return common.Hash{} }
func (fakeIBS) GetOriginalState(common.Address, common.Hash) common.Hash {
	return common.Hash{}
}
func (fakeIBS) Touched() []common.Address { return nil }

func TestOnlyStopOpSuppressed(t *testing.T) {
	tr := New(-1)
	msg := &tracing.Message{Depth: 0, Gas: 100}
	tr.onExecutionStart("", msg, []byte{0x00})

	exec := &fakeExec{code: []byte{0x00}, gas: 100, msg: msg}
	tr.onInstructionStart(0, fakeStack{}, 0, exec, fakeIBS{})

	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 100}, fakeIBS{})

	require.NotNil(t, tr.Result())
	require.Empty(t, tr.Result().Ops)
}

func TestOutOfGasFinalizesLastOp(t *testing.T) {
	tr := New(-1)
	msg := &tracing.Message{Depth: 0, Gas: 100}
	tr.onExecutionStart("", msg, []byte{0x01})

	exec := &fakeExec{code: []byte{0x01}, gas: 100, msg: msg}
	tr.onInstructionStart(0, fakeStack{}, 0, exec, fakeIBS{})

	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.OutOfGas, GasLeft: 0}, fakeIBS{})

	res := tr.Result()
	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	require.EqualValues(t, 100, op.GasCost)
	require.EqualValues(t, 0, op.Ex.Used)
}

func TestUndefinedInstructionThreeStepArithmetic(t *testing.T) {
	tr := New(-1)
	msg := &tracing.Message{Depth: 0, Gas: 1000}
	tr.onExecutionStart("", msg, []byte{0xfe})

	exec := &fakeExec{code: []byte{0xfe}, gas: 800, msg: msg}
	tr.onInstructionStart(0, fakeStack{}, 0, exec, fakeIBS{})

	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.UndefinedInstruction, GasLeft: 0}, fakeIBS{})

	res := tr.Result()
	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	require.EqualValues(t, 200, op.GasCost)
	require.EqualValues(t, 600, op.Ex.Used)
}

func TestTwoOpsFinalizePreviousOnNextStart(t *testing.T) {
	tr := New(-1)
	msg := &tracing.Message{Depth: 0, Gas: 100}
	code := []byte{byte(0x60), 0x01, 0x00} // PUSH1 0x01; STOP
	tr.onExecutionStart("", msg, code)

	exec1 := &fakeExec{code: code, gas: 100, msg: msg}
	tr.onInstructionStart(0, fakeStack{}, 0, exec1, fakeIBS{})

	pushed := uint256.NewInt(1)
	exec2 := &fakeExec{code: code, gas: 97, msg: msg, mem: nil}
	tr.onInstructionStart(2, fakeStack{top: []uint256.Int{*pushed}}, 1, exec2, fakeIBS{})

	res := tr.Result()
	require.Len(t, res.Ops, 2)

	push := res.Ops[0]
	require.EqualValues(t, 3, push.GasCost) // 100 - 97, finalized by the second instruction-start
	require.EqualValues(t, 97, push.Ex.Used)
	require.Equal(t, []string{"0x1"}, push.Ex.Push)
}

func TestPrecompiledRunMarksRootLastOp(t *testing.T) {
	tr := New(-1)
	msg := &tracing.Message{Depth: 0, Gas: 100}
	code := []byte{0xf1} // CALL, root frame's single op
	tr.onExecutionStart("", msg, code)

	exec := &fakeExec{code: code, gas: 100, msg: msg}
	tr.onInstructionStart(0, fakeStack{}, 0, exec, fakeIBS{})

	tr.onPrecompiledRun(&tracing.PrecompileResult{Success: true, GasUsed: 40}, 40, fakeIBS{})

	require.NotNil(t, tr.root)
	op := tr.root.Ops[len(tr.root.Ops)-1]
	require.NotNil(t, op.Sub)
	require.Empty(t, op.Sub.Code)
}
