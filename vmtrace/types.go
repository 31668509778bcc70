package vmtrace

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// VmTrace is the recursive per-opcode trace of a single frame. The root
// VmTrace's Code is the outermost frame's deployed bytecode; nested
// VmTraces hang off the TraceOp that opened them.
type VmTrace struct {
	Code []byte     `json:"-"`
	Ops  []*TraceOp `json:"ops"`
}

func (t *VmTrace) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code hexutil.Bytes `json:"code"`
		Ops  []*TraceOp    `json:"ops"`
	}
	return json.Marshal(alias{Code: t.Code, Ops: t.Ops})
}

// TraceOp is one opcode observation within a VmTrace.
type TraceOp struct {
	Pc      uint64
	Op      byte
	OpName  string // not serialized; kept for internal bookkeeping/debugging
	GasCost int64  // running cost attribution; holds the gas left at emission until the next op (or the frame's end) finalizes it
	Idx     string
	Depth   int
	Ex      *TraceEx
	Sub     *VmTrace

	// precompiledCallGas, when non-nil, marks that a precompile ran during
	// this op and its gas must be subtracted in place of exec_state.gas_left
	// on the next instruction-start finalize step.
	precompiledCallGas *uint64
}

func (op *TraceOp) MarshalJSON() ([]byte, error) {
	type alias struct {
		Cost int64           `json:"cost"`
		Ex   *TraceEx        `json:"ex"`
		Idx  string          `json:"idx"`
		Op   byte            `json:"op"`
		Pc   uint64          `json:"pc"`
		Sub  json.RawMessage `json:"sub"`
	}
	a := alias{Cost: op.GasCost, Ex: op.Ex, Idx: op.Idx, Op: op.Op, Pc: op.Pc, Sub: []byte("null")}
	if op.Sub != nil {
		sub, err := json.Marshal(op.Sub)
		if err != nil {
			return nil, err
		}
		a.Sub = sub
	}
	return json.Marshal(a)
}

// TraceEx is the "trace-ex" block attached to a TraceOp: its gas remaining,
// the values it pushed, and any memory/storage effect.
type TraceEx struct {
	Used  uint64
	Push  []string
	Mem   *TraceMemory
	Store *StorageWrite
}

func (ex *TraceEx) MarshalJSON() ([]byte, error) {
	type alias struct {
		Mem   *TraceMemory  `json:"mem"`
		Push  []string      `json:"push"`
		Store *StorageWrite `json:"store"`
		Used  uint64        `json:"used"`
	}
	push := ex.Push
	if push == nil {
		push = []string{}
	}
	return json.Marshal(alias{Mem: ex.Mem, Push: push, Store: ex.Store, Used: ex.Used})
}

// TraceMemory is the memory window an opcode touched. The window is
// planted with Offset/pendingLen at emission time, before the write has
// landed; Data is filled in once the following instruction starts.
type TraceMemory struct {
	Offset     uint64
	Data       []byte
	pendingLen uint64
}

func (m *TraceMemory) MarshalJSON() ([]byte, error) {
	type alias struct {
		Data hexutil.Bytes `json:"data"`
		Off  uint64        `json:"off"`
	}
	return json.Marshal(alias{Data: m.Data, Off: m.Offset})
}

// StorageWrite is the (key, value) pair an SSTORE recorded.
type StorageWrite struct {
	Key   [32]byte
	Value [32]byte
}

func (s *StorageWrite) MarshalJSON() ([]byte, error) {
	type alias struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	return json.Marshal(alias{Key: hexutil.Encode(s.Key[:]), Value: hexutil.Encode(s.Value[:])})
}
