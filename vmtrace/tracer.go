// Package vmtrace implements a per-opcode execution tracer: gas cost, stack
// pushes, memory writes and storage writes, nested by call depth into a
// tree of VmTrace frames.
package vmtrace

import (
	"strconv"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/chainbound/evmtrace/opcodes"
	"github.com/chainbound/evmtrace/tracing"
)

// frame is one entry of the tracer's internal frame stack: the VmTrace
// currently being appended to, its entry gas, and the running idx prefix.
// An arena of handles would serve equally well here; a direct stack of
// pointers is simpler because Go's GC removes the cyclic-ownership concern
// that motivates arenas in languages without one.
type frame struct {
	trace    *VmTrace
	startGas uint64
	prefix   string
}

// Tracer accumulates a single rooted VmTrace across the callback sequence
// an interpreter drives for one transaction or call.
type Tracer struct {
	txIndex int

	root  *VmTrace
	stack []frame
}

// New returns a VmTraceTracer. txIndex is prefixed onto every idx label when
// >= 0; pass -1 for a standalone call trace outside of a block.
func New(txIndex int) *Tracer {
	return &Tracer{txIndex: txIndex}
}

// Hooks returns the callback set to install on an interpreter.
func (t *Tracer) Hooks() *tracing.Hooks {
	return &tracing.Hooks{
		OnExecutionStart:   t.onExecutionStart,
		OnInstructionStart: t.onInstructionStart,
		OnPrecompiledRun:   t.onPrecompiledRun,
		OnExecutionEnd:     t.onExecutionEnd,
	}
}

// Result returns the accumulated root VmTrace. Valid only after the
// outermost frame's OnExecutionEnd has fired.
func (t *Tracer) Result() *VmTrace { return t.root }

func (t *Tracer) current() *frame {
	if len(t.stack) == 0 {
		return nil
	}
	return &t.stack[len(t.stack)-1]
}

func (t *Tracer) onExecutionStart(revision string, msg *tracing.Message, code []byte) {
	if msg.Depth == 0 {
		t.root = &VmTrace{Code: code}
		prefix := ""
		if t.txIndex >= 0 {
			prefix = strconv.Itoa(t.txIndex) + "-"
		}
		t.stack = append(t.stack, frame{trace: t.root, startGas: msg.Gas, prefix: prefix})
		return
	}

	parent := t.current()
	if parent == nil || len(parent.trace.Ops) == 0 {
		// Can't happen during normal interpreter-driven execution: a nested
		// frame is always opened by an op the parent just emitted. Guard
		// defensively rather than index out of range.
		t.stack = append(t.stack, frame{trace: &VmTrace{Code: code}, startGas: msg.Gas, prefix: ""})
		return
	}

	newPrefix := parent.prefix + strconv.Itoa(len(parent.trace.Ops)-1) + "-"
	op := parent.trace.Ops[len(parent.trace.Ops)-1]
	if opcodes.IsCallMessage(vm.OpCode(op.Op)) {
		op.Depth = msg.Depth
		op.GasCost -= int64(msg.Gas)
	}
	child := &VmTrace{Code: code}
	op.Sub = child
	t.stack = append(t.stack, frame{trace: child, startGas: msg.Gas, prefix: newPrefix})
}

func (t *Tracer) onInstructionStart(pc uint64, stack tracing.StackPeeker, stackHeight int, exec tracing.ExecState, ibs tracing.IntraBlockState) {
	cur := t.current()
	if cur == nil {
		return
	}
	msg := exec.Msg()

	if n := len(cur.trace.Ops); n > 0 {
		prev := cur.trace.Ops[n-1]
		switch {
		case prev.precompiledCallGas != nil:
			prev.GasCost -= int64(*prev.precompiledCallGas)
		case prev.Depth == msg.Depth:
			prev.GasCost -= int64(exec.GasLeft())
		}
		prev.Ex.Used = exec.GasLeft()
		fillMemory(prev.Ex, exec.Memory())
		fillStack(prev, stack)
	}

	op := vm.OpCode(exec.Code()[pc])
	idx := cur.prefix + strconv.Itoa(len(cur.trace.Ops))

	trOp := &TraceOp{
		Pc:      pc,
		Op:      byte(op),
		OpName:  opcodes.Name(op),
		GasCost: int64(exec.GasLeft()),
		Idx:     idx,
		Depth:   msg.Depth,
		Ex:      &TraceEx{},
	}
	planMemory(trOp, op, stack)
	planStore(trOp, op, stack)

	cur.trace.Ops = append(cur.trace.Ops, trOp)
}

func (t *Tracer) onPrecompiledRun(result *tracing.PrecompileResult, gas uint64, ibs tracing.IntraBlockState) {
	if t.root == nil || len(t.root.Ops) == 0 {
		return
	}
	op := t.root.Ops[len(t.root.Ops)-1]
	g := gas
	op.precompiledCallGas = &g
	op.Sub = &VmTrace{Code: []byte{}}
}

func (t *Tracer) onExecutionEnd(result *tracing.ExecutionResult, ibs tracing.IntraBlockState) {
	n := len(t.stack)
	if n == 0 {
		return
	}
	cur := t.stack[n-1]
	t.stack = t.stack[:n-1]

	if len(cur.trace.Ops) == 0 {
		return
	}
	op := cur.trace.Ops[len(cur.trace.Ops)-1]
	if vm.OpCode(op.Op) == vm.STOP && len(cur.trace.Ops) == 1 {
		cur.trace.Ops = nil
		return
	}

	switch result.StatusCode {
	case tracing.OutOfGas:
		op.Ex.Used = result.GasLeft
		op.GasCost -= int64(result.GasLeft)
	case tracing.UndefinedInstruction:
		op.Ex.Used = uint64(op.GasCost)
		op.GasCost = int64(cur.startGas) - op.GasCost
		op.Ex.Used -= uint64(op.GasCost)
	default:
		// REVERT and every other terminal status, including success, settle
		// the same way: the last op's cost is whatever gas it consumed.
		op.GasCost -= int64(result.GasLeft)
		op.Ex.Used = result.GasLeft
	}
}

func fillMemory(ex *TraceEx, memory []byte) {
	if ex.Mem == nil {
		return
	}
	if ex.Mem.pendingLen == 0 {
		ex.Mem = nil
		return
	}
	end := ex.Mem.Offset + ex.Mem.pendingLen
	if uint64(len(memory)) < end {
		// EVM memory reads as zero past what's been written; pad rather
		// than truncate so the captured window is always full length.
		padded := make([]byte, end)
		copy(padded, memory)
		memory = padded
	}
	ex.Mem.Data = append([]byte{}, memory[ex.Mem.Offset:end]...)
}

func fillStack(op *TraceOp, stack tracing.StackPeeker) {
	n := opcodes.StackPushCount(vm.OpCode(op.Op))
	if n == 0 {
		return
	}
	top := stack.StackTop(n)
	push := make([]string, 0, len(top))
	for _, v := range top {
		push = append(push, v.Hex())
	}
	op.Ex.Push = push
}

func planMemory(op *TraceOp, code vm.OpCode, stack tracing.StackPeeker) {
	w, ok := opcodes.PlanMemoryWindow(code, func(n int) []uint64 {
		// A stack shorter than n reads as zero past its bottom, so the
		// window planner always gets the full n operands it indexes.
		vals := stack.StackTop(n)
		out := make([]uint64, n)
		for i, v := range vals {
			out[i] = v.Uint64()
		}
		return out
	})
	if !ok {
		return
	}
	op.Ex.Mem = &TraceMemory{Offset: w.Offset, pendingLen: w.Len}
}

func planStore(op *TraceOp, code vm.OpCode, stack tracing.StackPeeker) {
	if !opcodes.HasStorageWrite(code) {
		return
	}
	top := stack.StackTop(2)
	if len(top) < 2 {
		return
	}
	var sw StorageWrite
	copy(sw.Key[:], top[0].PaddedBytes(32))
	copy(sw.Value[:], top[1].PaddedBytes(32))
	op.Ex.Store = &sw
}
