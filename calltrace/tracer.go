// Package calltrace implements a hierarchical call tracer that flattens the
// call tree an execution produces into Parity-style trace_address-indexed
// entries.
package calltrace

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainbound/evmtrace/tracing"
)

// parityErrorMapping translates go-ethereum's internal error strings into
// the Parity/OpenEthereum vocabulary RPC consumers expect.
var parityErrorMapping = map[string]string{
	"contract creation code storage out of gas": "Out of gas",
	"out of gas":                      "Out of gas",
	"gas uint64 overflow":             "Out of gas",
	"max code size exceeded":          "Out of gas",
	"invalid jump destination":        "Bad jump destination",
	"execution reverted":              "Reverted",
	"return data out of bounds":       "Out of bounds",
	"stack limit reached 1024 (1023)": "Out of stack",
	"precompiled failed":              "Built-in failed",
	"invalid input length":            "Built-in failed",
}

var parityErrorMappingStartingWith = map[string]string{
	"invalid opcode":  "Bad instruction",
	"stack underflow": "Stack underflow",
}

// Baseline reports pre-transaction account existence: the same narrow shape
// statediff.Baseline needs, satisfied by shadow.Addresses without either
// package importing the other.
type Baseline interface {
	BalanceOf(addr common.Address) *big.Int
}

// Tracer builds a call tree from the execution-start/end callback pair and
// flattens it on Result.
type Tracer struct {
	txIndex int

	convertErrors bool

	// baseline drives the create-vs-call existence heuristic (spec: a
	// CREATE/CREATE2 landing on an address that already existed, such as a
	// pre-funded account or a CREATE2 collision, reports as a call, not a
	// create). A nil baseline gates this off, falling back to msg.Kind
	// verbatim — the feature-flagged alternative for a caller that trusts
	// the interpreter's own call-kind classification.
	baseline Baseline
	created  map[common.Address]bool

	stack []*callFrame
	root  *callFrame
}

// New returns a call tracer. txIndex is recorded into every flattened Trace;
// pass -1 outside of a block context. convertErrors requests translation of
// go-ethereum error strings into the Parity vocabulary. baseline supplies
// the existence check the create-vs-call heuristic needs; pass nil to
// classify strictly off the interpreter's reported call kind instead.
func New(txIndex int, convertErrors bool, baseline Baseline) *Tracer {
	return &Tracer{txIndex: txIndex, convertErrors: convertErrors, baseline: baseline, created: map[common.Address]bool{}}
}

// Hooks returns the callback set to install on an interpreter.
func (t *Tracer) Hooks() *tracing.Hooks {
	return &tracing.Hooks{
		OnExecutionStart: t.onExecutionStart,
		OnExecutionEnd:   t.onExecutionEnd,
		OnRewardGranted:  t.onRewardGranted,
	}
}

func (t *Tracer) onExecutionStart(revision string, msg *tracing.Message, code []byte) {
	frame := &callFrame{
		Type:        t.classify(msg),
		From:        msg.Sender,
		To:          msg.Recipient,
		CodeAddress: msg.CodeAddress,
		Gas:         msg.Gas,
		Input:       append([]byte{}, msg.Input...),
	}
	if msg.Kind == tracing.DELEGATECALL {
		// A delegatecall runs the callee's code in the caller's own
		// storage/balance context: the action reports from the frame that
		// issued the delegatecall and to the code it borrowed, not to the
		// (irrelevant) address the code lives at in the sender's place.
		frame.From = msg.Recipient
		frame.To = frame.CodeAddress
	}
	if msg.Kind == tracing.CALL && msg.Static() {
		frame.Type = "staticcall"
	}
	if msg.Value != nil {
		frame.Value = msg.Value.ToBig()
	} else {
		frame.Value = big.NewInt(0)
	}

	if t.root == nil {
		t.root = frame
	} else if len(t.stack) > 0 {
		parent := t.stack[len(t.stack)-1]
		parent.Calls = append(parent.Calls, frame)
	}
	t.stack = append(t.stack, frame)
}

// classify labels a frame's Type. For CREATE/CREATE2, the msg.Kind the
// interpreter reports is only accepted once an existence check confirms the
// recipient wasn't already a live account before this frame started and
// wasn't already created earlier in the same execution — a CREATE2
// collision or a pre-funded target must report as a call, not a create. All
// other kinds pass through unchanged; a nil baseline disables the check
// entirely and trusts msg.Kind as-is.
func (t *Tracer) classify(msg *tracing.Message) string {
	if t.baseline == nil || !msg.Kind.IsCreate() {
		return msg.Kind.String()
	}
	existed := t.baseline.BalanceOf(msg.Recipient) != nil
	if !existed && !t.created[msg.Recipient] && msg.Recipient != msg.CodeAddress {
		t.created[msg.Recipient] = true
		return msg.Kind.String()
	}
	return tracing.CALL.String()
}

func (t *Tracer) onExecutionEnd(result *tracing.ExecutionResult, ibs tracing.IntraBlockState) {
	n := len(t.stack)
	if n == 0 {
		return
	}
	frame := t.stack[n-1]
	t.stack = t.stack[:n-1]
	applyResult(frame, result)
}

// onRewardGranted reruns the root frame's result against the final,
// post-refund ExecutionResult: gas_used and output/code for a transaction's
// outermost frame aren't settled until gas refunds and the coinbase fee
// transfer land, both of which happen after the frame's own OnExecutionEnd.
func (t *Tracer) onRewardGranted(result *tracing.ExecutionResult, ibs tracing.IntraBlockState) {
	if t.root == nil {
		return
	}
	applyResult(t.root, result)
}

func applyResult(frame *callFrame, result *tracing.ExecutionResult) {
	frame.GasUsed = frame.Gas - result.GasLeft
	switch result.StatusCode {
	case tracing.Success:
		frame.Output = append([]byte{}, result.Output...)
		frame.Error = ""
	case tracing.Revert:
		frame.Error = "execution reverted"
		frame.Output = append([]byte{}, result.Output...)
	default:
		frame.Error = statusError(result.StatusCode)
	}
}

func statusError(s tracing.StatusCode) string {
	switch s {
	case tracing.OutOfGas:
		return "out of gas"
	case tracing.StackOverflow:
		return "stack limit reached 1024 (1023)"
	case tracing.StackUnderflow:
		return "stack underflow"
	case tracing.UndefinedInstruction, tracing.InvalidInstruction:
		return "invalid opcode"
	case tracing.BadJumpDestination:
		return "invalid jump destination"
	default:
		return "execution failed"
	}
}

// Result flattens the accumulated call tree into trace_address order.
func (t *Tracer) Result() ([]Trace, error) {
	if t.root == nil {
		return nil, errors.New("calltrace: no execution observed")
	}
	return flatten(t.root, []int{}, t.convertErrors, t.txIndex)
}

func flatten(f *callFrame, traceAddr []int, convertErrs bool, txIndex int) ([]Trace, error) {
	trace, err := newTrace(f)
	if err != nil {
		return nil, err
	}
	trace.TraceAddress = traceAddr
	trace.Error = f.Error
	trace.Subtraces = len(f.Calls)
	if txIndex >= 0 {
		trace.TransactionPosition = uint64(txIndex)
	}
	if convertErrs {
		convertErrorToParity(trace)
	}
	if f.Error != "" {
		trace.Result = nil
	}

	out := []Trace{*trace}
	for i, child := range f.Calls {
		childAddr := append(append([]int{}, traceAddr...), i)
		flat, err := flatten(child, childAddr, convertErrs, txIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

func newTrace(f *callFrame) (*Trace, error) {
	switch f.Type {
	case "create", "create2":
		return &Trace{
			Type: "create",
			Action: TraceAction{
				From:  &f.From,
				Gas:   &f.Gas,
				Value: f.Value,
				Init:  f.Input,
			},
			Result: &TraceResult{
				GasUsed: &f.GasUsed,
				Address: &f.To,
				Code:    f.Output,
			},
		}, nil
	case "call", "callcode", "delegatecall", "staticcall":
		to := f.To
		return &Trace{
			Type: "call",
			Action: TraceAction{
				From:     &f.From,
				To:       &to,
				Gas:      &f.Gas,
				Value:    f.Value,
				CallType: f.Type,
				Input:    f.Input,
			},
			Result: &TraceResult{
				GasUsed: &f.GasUsed,
				Output:  f.Output,
			},
		}, nil
	default:
		return nil, errors.New("calltrace: unrecognized call frame type " + f.Type)
	}
}

func convertErrorToParity(t *Trace) {
	if t.Error == "" {
		return
	}
	if mapped, ok := parityErrorMapping[t.Error]; ok {
		t.Error = mapped
		return
	}
	for prefix, mapped := range parityErrorMappingStartingWith {
		if strings.HasPrefix(t.Error, prefix) {
			t.Error = mapped
			return
		}
	}
}
