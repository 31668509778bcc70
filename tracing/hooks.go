// Package tracing defines the callback contract an EVM interpreter drives
// against installed tracers. It mirrors the shape of
// github.com/ethereum/go-ethereum/core/tracing's Hooks, narrowed to the
// five callbacks this tracer core implements: a tracer never executes
// bytecode, it only observes an interpreter that does.
package tracing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

// CallKind identifies how a frame was entered.
type CallKind int

const (
	CALL CallKind = iota
	CALLCODE
	DELEGATECALL
	STATICCALL
	CREATE
	CREATE2
)

func (k CallKind) String() string {
	switch k {
	case CALL:
		return "call"
	case CALLCODE:
		return "callcode"
	case DELEGATECALL:
		return "delegatecall"
	case STATICCALL:
		return "staticcall"
	case CREATE:
		return "create"
	case CREATE2:
		return "create2"
	default:
		return "unknown"
	}
}

// IsCreate reports whether the call kind deploys a new contract.
func (k CallKind) IsCreate() bool { return k == CREATE || k == CREATE2 }

// MessageFlag carries the boolean modifiers a CALL-family message can set.
type MessageFlag uint8

// StaticFlag marks a message executing under STATICCALL semantics (no state
// mutation permitted), propagated down through nested STATICCALLs.
const StaticFlag MessageFlag = 1 << 0

// Message describes the frame an interpreter is about to execute or has just
// entered. It is the `message` parameter of OnExecutionStart.
type Message struct {
	Depth       int
	Gas         uint64
	Sender      common.Address
	Recipient   common.Address
	CodeAddress common.Address
	Value       *uint256.Int
	Input       []byte
	Kind        CallKind
	Flags       MessageFlag
}

// Static reports whether the message executes under the STATIC restriction.
func (m *Message) Static() bool { return m.Flags&StaticFlag != 0 }

// StatusCode is the terminal disposition of a frame, observed at
// OnExecutionEnd.
type StatusCode int

const (
	Success StatusCode = iota
	Revert
	OutOfGas
	StackOverflow
	StackUnderflow
	UndefinedInstruction
	InvalidInstruction
	BadJumpDestination
	OtherError
)

// ExecutionResult is the terminal outcome of a frame, passed to
// OnExecutionEnd and (for the whole transaction) OnRewardGranted.
type ExecutionResult struct {
	StatusCode StatusCode
	GasLeft    uint64
	Output     []byte
	CreateAddr common.Address // valid only for CREATE/CREATE2 frames on success
}

// PrecompileResult is passed to OnPrecompiledRun after a precompiled
// contract executes in place of bytecode stepping.
type PrecompileResult struct {
	Success bool
	GasUsed uint64
	Output  []byte
}

// ExecState is the live view of the frame an interpreter exposes to a
// tracer on every OnInstructionStart call. Memory and Code are read-only
// windows into the interpreter's own buffers.
type ExecState interface {
	Code() []byte
	Memory() []byte
	GasLeft() uint64
	Msg() *Message
}

// IntraBlockState is the per-transaction view of world state a tracer reads
// from, including the journal of changes accumulated so far this block. The
// concrete implementation (balance/nonce/code storage, journaling) belongs
// to the state-reader collaborator; this core never touches it directly.
type IntraBlockState interface {
	Exists(addr common.Address) bool
	GetBalance(addr common.Address) *big.Int
	GetNonce(addr common.Address) uint64
	GetCode(addr common.Address) []byte
	GetCodeHash(addr common.Address) common.Hash
	GetState(addr common.Address, key common.Hash) common.Hash
	GetOriginalState(addr common.Address, key common.Hash) common.Hash
	// Touched returns every address read or written so far this transaction.
	Touched() []common.Address
}

// StackPeeker lets a tracer read the top N values of the active frame's
// stack without taking ownership of the interpreter's backing storage.
// stack[0] is the topmost element.
type StackPeeker interface {
	StackTop(n int) []uint256.Int
	StackHeight() int
}

// OnExecutionStart fires on entry to a new call/create frame, including the
// outermost one. revision names the active fork rules; it is opaque to the
// tracer core and only threaded through for completeness.
type OnExecutionStart func(revision string, msg *Message, code []byte)

// OnInstructionStart fires immediately before each opcode executes.
type OnInstructionStart func(pc uint64, stack StackPeeker, stackHeight int, exec ExecState, ibs IntraBlockState)

// OnPrecompiledRun fires after a precompiled contract executes in place of
// bytecode stepping.
type OnPrecompiledRun func(result *PrecompileResult, gas uint64, ibs IntraBlockState)

// OnExecutionEnd fires on exit of the frame most recently entered.
type OnExecutionEnd func(result *ExecutionResult, ibs IntraBlockState)

// OnRewardGranted fires once per transaction, after all gas refunds have
// been applied.
type OnRewardGranted func(result *ExecutionResult, ibs IntraBlockState)

// Hooks bundles the five no-throw callbacks a tracer implements. Any
// field left nil is simply never invoked — installing a tracer that only
// cares about opcodes need not supply OnPrecompiledRun, for instance.
type Hooks struct {
	OnExecutionStart   OnExecutionStart
	OnInstructionStart OnInstructionStart
	OnPrecompiledRun   OnPrecompiledRun
	OnExecutionEnd     OnExecutionEnd
	OnRewardGranted    OnRewardGranted
}

// OpCode re-exports go-ethereum's opcode type so tracers never need to
// import core/vm directly; the interpreter itself stays out of scope,
// only its opcode table is reused.
type OpCode = vm.OpCode
