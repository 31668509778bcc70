// Package executor orchestrates the tracer set over calls, transactions and
// whole blocks: building the requested Hooks, driving an external Runner
// through the actual EVM execution, and assembling the JSON-ready results.
package executor

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chainbound/evmtrace/calltrace"
	"github.com/chainbound/evmtrace/shadow"
	"github.com/chainbound/evmtrace/statediff"
	"github.com/chainbound/evmtrace/tracerset"
	"github.com/chainbound/evmtrace/tracing"
	"github.com/chainbound/evmtrace/vmtrace"
)

// Call describes a message to execute: either an existing transaction's
// fields replayed standalone, or an ad-hoc call with no backing transaction.
type Call struct {
	From     common.Address
	To       *common.Address
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
	Input    []byte
}

// BlockContext is the minimal header data a trace needs: enough to seed the
// shadow baseline's coinbase entry and to hand the Runner a block identity.
type BlockContext struct {
	Number   uint64
	Hash     common.Hash
	Coinbase common.Address
	Uncles   []common.Address
}

// Runner drives the actual EVM execution this module never performs
// itself (spec'd as an external collaborator): given a block and either a
// historical transaction index or a standalone call, it replays it against
// the right state with hooks installed and returns the outcome.
type Runner interface {
	RunTransaction(block BlockContext, txIndex int, hooks *tracing.Hooks) (*tracing.ExecutionResult, tracing.IntraBlockState, error)
	RunCall(block BlockContext, call Call, hooks *tracing.Hooks) (*tracing.ExecutionResult, tracing.IntraBlockState, error)
	// PreBlockState returns the world state as of the start of block, before
	// any of its transactions have executed. The shadow baseline delegates
	// to it for any address it hasn't tracked an in-block override for yet,
	// the same way the original wraps a historical IntraBlockState rather
	// than starting every block from nothing.
	PreBlockState(block BlockContext) (tracing.IntraBlockState, error)
}

// Executor is the TraceCallExecutor: the top-level entry point a JSON-RPC
// handler or CLI command calls into.
type Executor struct {
	runner Runner
	reward RewardFunc

	tracedTotal prometheus.Counter
	// traceSeconds is registered alongside tracedTotal; no code path in
	// this package records observations into it.
	traceSeconds prometheus.Histogram
}

// New returns an Executor. reward may be nil, in which case trace_block
// never emits reward pseudo-traces (e.g. a proof-of-stake chain).
func New(runner Runner, reward RewardFunc, reg prometheus.Registerer) *Executor {
	e := &Executor{
		runner: runner,
		reward: reward,
		tracedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "evmtrace",
			Name:      "traced_transactions_total",
			Help:      "Number of transactions traced.",
		}),
		traceSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evmtrace",
			Name:      "trace_duration_seconds",
			Help:      "Wall-clock time spent tracing a single transaction or call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(e.tracedTotal, e.traceSeconds)
	}
	return e
}

// buildHooks assembles the tracer set a Config selects, returning the
// combined Hooks plus accessors to pull results back out once the Runner
// has driven the callbacks to completion. The shadow IntraBlockStateTracer
// is always appended, regardless of cfg: it is what lets a StateDiffTracer
// diff against the state a transaction actually started from rather than
// an empty baseline, and baseline itself may be shared across a whole
// block's worth of buildHooks calls.
type built struct {
	hooks *tracing.Hooks
	vm    *vmtrace.Tracer
	call  *calltrace.Tracer
	sdiff *statediff.Tracer
}

func (e *Executor) buildHooks(cfg *Config, txIndex int, baseline *shadow.Addresses) *built {
	b := &built{}
	members := []*tracing.Hooks{shadow.NewTracer(baseline).Hooks()}
	if cfg.VMTrace {
		b.vm = vmtrace.New(txIndex)
		members = append(members, b.vm.Hooks())
	}
	if cfg.Trace {
		b.call = calltrace.New(txIndex, true, baseline)
		members = append(members, b.call.Hooks())
	}
	if cfg.StateDiff {
		b.sdiff = statediff.New(baseline)
		members = append(members, b.sdiff.Hooks())
	}
	b.hooks = tracerset.New(members...).Hooks()
	return b
}

func (b *built) result(output []byte) *CallTraces {
	ct := &CallTraces{Output: output}
	if b.vm != nil {
		ct.VMTrace = b.vm.Result()
	}
	if b.call != nil {
		if tr, err := b.call.Result(); err == nil {
			ct.Trace = tr
		}
	}
	if b.sdiff != nil {
		ct.StateDiff = b.sdiff.Result()
	}
	return ct
}

// newBaseline builds an empty shadow baseline over block's pre-block state,
// so an untracked address falls through to the real chain data instead of
// reading as "never existed".
func (e *Executor) newBaseline(block BlockContext) (*shadow.Addresses, error) {
	reader, err := e.runner.PreBlockState(block)
	if err != nil {
		return nil, fmt.Errorf("read pre-block state: %w", err)
	}
	return shadow.NewAddresses(reader), nil
}

// TraceTransaction replays a single historical transaction and returns the
// tracer set a Config selects (trace_transaction). Called standalone,
// outside of TraceBlockTransactions's loop, it has no prior transaction in
// this call's baseline, so it starts fresh over the block's pre-block state.
func (e *Executor) TraceTransaction(block BlockContext, txIndex int, cfg *Config) (*CallTraces, error) {
	baseline, err := e.newBaseline(block)
	if err != nil {
		return nil, err
	}
	return e.traceTransaction(block, txIndex, cfg, baseline)
}

func (e *Executor) traceTransaction(block BlockContext, txIndex int, cfg *Config, baseline *shadow.Addresses) (*CallTraces, error) {
	b := e.buildHooks(cfg, txIndex, baseline)

	res, _, err := e.runner.RunTransaction(block, txIndex, b.hooks)
	if err != nil {
		return nil, fmt.Errorf("trace transaction %d: %w", txIndex, err)
	}
	e.tracedTotal.Inc()
	return b.result(res.Output), nil
}

// TraceCall executes a standalone call against block's state and returns
// the requested tracer set (trace_call). atTxIndex places the call at a
// position within the block's transaction sequence: every transaction
// before it is first replayed with only the shadow tracer installed, to
// rebuild the intra-block state the call would actually see, before the
// call itself runs with the requested tracer set. Pass 0 to trace the call
// as if it were the very first thing in the block.
func (e *Executor) TraceCall(block BlockContext, call Call, atTxIndex int, cfg *Config) (*CallTraces, error) {
	baseline, err := e.newBaseline(block)
	if err != nil {
		return nil, err
	}
	if err := e.replayPreceding(block, atTxIndex, baseline); err != nil {
		return nil, err
	}

	b := e.buildHooks(cfg, -1, baseline)
	res, _, err := e.runner.RunCall(block, call, b.hooks)
	if err != nil {
		return nil, fmt.Errorf("trace call: %w", err)
	}
	e.tracedTotal.Inc()
	return b.result(res.Output), nil
}

// replayPreceding re-executes transactions [0, atTxIndex) against baseline
// with only the shadow tracer installed, advancing baseline through each
// one so it ends up holding the intra-block state a call at position
// atTxIndex would actually start from.
func (e *Executor) replayPreceding(block BlockContext, atTxIndex int, baseline *shadow.Addresses) error {
	for idx := 0; idx < atTxIndex; idx++ {
		hooks := shadow.NewTracer(baseline).Hooks()
		if _, _, err := e.runner.RunTransaction(block, idx, hooks); err != nil {
			return fmt.Errorf("replay transaction %d before call: %w", idx, err)
		}
	}
	return nil
}

// CallRequest pairs one trace_calls batch entry with its own trace config,
// mirroring the original's [call, trace_config] tuple.
type CallRequest struct {
	Call   Call
	Config *Config
}

// TraceCalls runs a batch of independent standalone calls against the same
// block state (trace_calls), each with its own Config. Calls don't see
// each other's effects, but the batch is all-or-nothing: a failure on any
// call's run drops every result accumulated so far and aborts the rest of
// the batch.
func (e *Executor) TraceCalls(block BlockContext, requests []CallRequest) ([]CallTraces, error) {
	results := make([]CallTraces, 0, len(requests))
	for i, req := range requests {
		res, err := e.TraceCall(block, req.Call, 0, req.Config)
		if err != nil {
			return nil, fmt.Errorf("first run for txIndex %d error: %w", i, err)
		}
		results = append(results, *res)
	}
	return results, nil
}

// TraceBlockTransactions replays every transaction in a block in order,
// sharing one shadow baseline across the loop and advancing it after each
// transaction completes. Transactions are not safe to trace concurrently:
// transaction N's StateDiffTracer must see transaction N-1's effects, and
// the shared baseline is only correct under strictly sequential mutation.
// Reward pseudo-traces are appended when a RewardFunc is configured.
func (e *Executor) TraceBlockTransactions(block BlockContext, txCount int, cfg *Config) (*BlockTraceResult, error) {
	results := make([]TxTraceResult, txCount)
	baseline, err := e.newBaseline(block)
	if err != nil {
		return nil, err
	}
	for idx := 0; idx < txCount; idx++ {
		res, err := e.traceTransaction(block, idx, cfg, baseline)
		if err != nil {
			log.Warn("transaction trace failed", "block", block.Number, "tx", idx, "err", err)
			results[idx] = TxTraceResult{Error: err.Error()}
			continue
		}
		results[idx] = TxTraceResult{Result: res}
	}

	out := &BlockTraceResult{Transactions: results}
	if e.reward != nil {
		infos, err := e.reward(block.Number, block.Coinbase, block.Uncles)
		if err != nil {
			return nil, fmt.Errorf("compute block reward: %w", err)
		}
		out.Rewards = assembleRewardTraces(infos, txCount)
	}
	return out, nil
}

// TraceRawVM runs only the opcode-level vm trace, skipping call-tree and
// state-diff assembly entirely. It exists for callers that just want a
// per-opcode execution log without the cost of building the rest of the
// tracer set.
func (e *Executor) TraceRawVM(block BlockContext, call Call) (*vmtrace.VmTrace, error) {
	tr := vmtrace.New(-1)
	_, _, err := e.runner.RunCall(block, call, tr.Hooks())
	if err != nil {
		return nil, fmt.Errorf("trace raw vm: %w", err)
	}
	e.tracedTotal.Inc()
	return tr.Result(), nil
}
