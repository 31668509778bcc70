package executor

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/chainbound/evmtrace/calltrace"
	"github.com/chainbound/evmtrace/statediff"
	"github.com/chainbound/evmtrace/vmtrace"
)

// CallTraces is the combined result of running the tracer set selected by
// a Config over one call: whichever of VMTrace/Trace/StateDiff was
// requested, left nil otherwise. Output is always populated with the
// executed call or transaction's return data.
type CallTraces struct {
	Output    hexutil.Bytes     `json:"output"`
	VMTrace   *vmtrace.VmTrace  `json:"vmTrace,omitempty"`
	Trace     []calltrace.Trace `json:"trace,omitempty"`
	StateDiff statediff.Result  `json:"stateDiff,omitempty"`
}

// TxTraceResult is one transaction's outcome within a trace_block-style
// batch: either Result or Error is populated, so a single failing
// transaction doesn't abort the batch.
type TxTraceResult struct {
	Result *CallTraces `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// BlockTraceResult is the per-block wrapper trace_block_transactions
// returns when tracing an entire block: every transaction's result plus
// any reward pseudo-traces.
type BlockTraceResult struct {
	Transactions []TxTraceResult   `json:"transactions"`
	Rewards      []calltrace.Trace `json:"rewards,omitempty"`
}
