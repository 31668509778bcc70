package calltrace

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Trace is one flattened call-tree entry: a frame plus its position in the
// tree, in the Parity/OpenEthereum flat-trace shape.
type Trace struct {
	Action              TraceAction
	Result              *TraceResult
	Error               string
	Subtraces           int
	TraceAddress        []int
	TransactionHash     *common.Hash
	TransactionPosition uint64
	BlockHash           *common.Hash
	BlockNumber         uint64
	Type                string
}

func (t *Trace) MarshalJSON() ([]byte, error) {
	type alias struct {
		Action              TraceAction  `json:"action"`
		BlockHash           *common.Hash `json:"blockHash"`
		BlockNumber         uint64       `json:"blockNumber"`
		Error               string       `json:"error,omitempty"`
		Result              *TraceResult `json:"result,omitempty"`
		Subtraces           int          `json:"subtraces"`
		TraceAddress        []int        `json:"traceAddress"`
		TransactionHash     *common.Hash `json:"transactionHash"`
		TransactionPosition uint64       `json:"transactionPosition"`
		Type                string       `json:"type"`
	}
	return json.Marshal(alias{
		Action: t.Action, BlockHash: t.BlockHash, BlockNumber: t.BlockNumber,
		Error: t.Error, Result: t.Result, Subtraces: t.Subtraces,
		TraceAddress: t.TraceAddress, TransactionHash: t.TransactionHash,
		TransactionPosition: t.TransactionPosition, Type: t.Type,
	})
}

// TraceAction is the call/create/suicide/reward action payload. Only the
// fields relevant to Type are populated; the rest stay nil and are omitted.
type TraceAction struct {
	Author         *common.Address
	RewardType     string
	SelfDestructed *common.Address
	Balance        *big.Int
	CallType       string
	CreationMethod string
	From           *common.Address
	Gas            *uint64
	Init           []byte
	Input          []byte
	RefundAddress  *common.Address
	To             *common.Address
	Value          *big.Int
}

func (a TraceAction) MarshalJSON() ([]byte, error) {
	type alias struct {
		Author         *common.Address `json:"author,omitempty"`
		RewardType     string          `json:"rewardType,omitempty"`
		SelfDestructed *common.Address `json:"address,omitempty"`
		Balance        *hexutil.Big    `json:"balance,omitempty"`
		CallType       string          `json:"callType,omitempty"`
		CreationMethod string          `json:"creationMethod,omitempty"`
		From           *common.Address `json:"from,omitempty"`
		Gas            *hexutil.Uint64 `json:"gas,omitempty"`
		Init           hexutil.Bytes   `json:"init,omitempty"`
		Input          hexutil.Bytes   `json:"input,omitempty"`
		RefundAddress  *common.Address `json:"refundAddress,omitempty"`
		To             *common.Address `json:"to,omitempty"`
		Value          *hexutil.Big    `json:"value,omitempty"`
	}
	var gas *hexutil.Uint64
	if a.Gas != nil {
		g := hexutil.Uint64(*a.Gas)
		gas = &g
	}
	return json.Marshal(alias{
		Author: a.Author, RewardType: a.RewardType, SelfDestructed: a.SelfDestructed,
		Balance: (*hexutil.Big)(a.Balance), CallType: a.CallType, CreationMethod: a.CreationMethod,
		From: a.From, Gas: gas, Init: a.Init, Input: a.Input,
		RefundAddress: a.RefundAddress, To: a.To, Value: (*hexutil.Big)(a.Value),
	})
}

// TraceResult is the call/create outcome payload.
type TraceResult struct {
	Address *common.Address
	Code    []byte
	GasUsed *uint64
	Output  []byte
}

func (r *TraceResult) MarshalJSON() ([]byte, error) {
	type alias struct {
		Address *common.Address `json:"address,omitempty"`
		Code    hexutil.Bytes   `json:"code,omitempty"`
		GasUsed *hexutil.Uint64 `json:"gasUsed,omitempty"`
		Output  hexutil.Bytes   `json:"output,omitempty"`
	}
	var gasUsed *hexutil.Uint64
	if r.GasUsed != nil {
		g := hexutil.Uint64(*r.GasUsed)
		gasUsed = &g
	}
	return json.Marshal(alias{Address: r.Address, Code: r.Code, GasUsed: gasUsed, Output: r.Output})
}

// callFrame is the mutable, still-nested frame the tracer builds as
// execution proceeds; it is flattened into []Trace once the outermost
// frame closes.
type callFrame struct {
	Type        string
	From        common.Address
	To          common.Address
	CodeAddress common.Address
	Value       *big.Int
	Gas         uint64
	GasUsed     uint64
	Input       []byte
	Output      []byte
	Error       string
	Calls       []*callFrame
}
