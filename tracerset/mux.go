// Package tracerset composes several independently-built Hooks sets into
// one, so an interpreter that only knows how to drive a single Hooks value
// can still fan a transaction's callbacks out to the vm trace, call trace,
// state diff and shadow-baseline tracers at once.
package tracerset

import "github.com/chainbound/evmtrace/tracing"

// Mux combines any number of Hooks into one. A nil callback on any member
// is simply skipped for that member, same as a standalone Hooks value.
type Mux struct {
	members []*tracing.Hooks
}

// New returns a Mux fanning out to every non-nil member.
func New(members ...*tracing.Hooks) *Mux {
	m := &Mux{}
	for _, h := range members {
		if h != nil {
			m.members = append(m.members, h)
		}
	}
	return m
}

// Hooks returns the combined callback set.
func (m *Mux) Hooks() *tracing.Hooks {
	return &tracing.Hooks{
		OnExecutionStart:   m.onExecutionStart,
		OnInstructionStart: m.onInstructionStart,
		OnPrecompiledRun:   m.onPrecompiledRun,
		OnExecutionEnd:     m.onExecutionEnd,
		OnRewardGranted:    m.onRewardGranted,
	}
}

func (m *Mux) onExecutionStart(revision string, msg *tracing.Message, code []byte) {
	for _, h := range m.members {
		if h.OnExecutionStart != nil {
			h.OnExecutionStart(revision, msg, code)
		}
	}
}

func (m *Mux) onInstructionStart(pc uint64, stack tracing.StackPeeker, stackHeight int, exec tracing.ExecState, ibs tracing.IntraBlockState) {
	for _, h := range m.members {
		if h.OnInstructionStart != nil {
			h.OnInstructionStart(pc, stack, stackHeight, exec, ibs)
		}
	}
}

func (m *Mux) onPrecompiledRun(result *tracing.PrecompileResult, gas uint64, ibs tracing.IntraBlockState) {
	for _, h := range m.members {
		if h.OnPrecompiledRun != nil {
			h.OnPrecompiledRun(result, gas, ibs)
		}
	}
}

func (m *Mux) onExecutionEnd(result *tracing.ExecutionResult, ibs tracing.IntraBlockState) {
	for _, h := range m.members {
		if h.OnExecutionEnd != nil {
			h.OnExecutionEnd(result, ibs)
		}
	}
}

func (m *Mux) onRewardGranted(result *tracing.ExecutionResult, ibs tracing.IntraBlockState) {
	for _, h := range m.members {
		if h.OnRewardGranted != nil {
			h.OnRewardGranted(result, ibs)
		}
	}
}
