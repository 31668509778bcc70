package statediff

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Kind tags how a value changed across a transaction.
type Kind int

const (
	Unchanged Kind = iota
	Added
	Removed
	Changed
)

func (k Kind) marker() string {
	switch k {
	case Added:
		return "+"
	case Removed:
		return "-"
	case Changed:
		return "*"
	default:
		return "="
	}
}

// Diff is a before/after pair tagged with how it changed. From/To are raw
// hex-encodable values (big.Int, []byte, common.Hash — whatever the caller
// constructed it with); encoding is left to json.Marshal on those types.
type Diff struct {
	Kind Kind
	From interface{}
	To   interface{}
}

func (d Diff) MarshalJSON() ([]byte, error) {
	if d.Kind == Unchanged {
		return json.Marshal(d.marshalUnchanged())
	}
	type changed struct {
		From interface{} `json:"from"`
		To   interface{} `json:"to"`
	}
	switch d.Kind {
	case Added:
		return json.Marshal(map[string]interface{}{"+": d.To})
	case Removed:
		return json.Marshal(map[string]interface{}{"-": d.From})
	default:
		return json.Marshal(map[string]changed{"*": {From: d.From, To: d.To}})
	}
}

func (d Diff) marshalUnchanged() string { return "=" }

// AccountDiff holds the per-field diffs for one touched address.
type AccountDiff struct {
	Balance Diff
	Code    Diff
	Nonce   Diff
	Storage map[common.Hash]Diff
}

func (a AccountDiff) MarshalJSON() ([]byte, error) {
	type alias struct {
		Balance Diff                 `json:"balance"`
		Code    Diff                 `json:"code"`
		Nonce   Diff                 `json:"nonce"`
		Storage map[common.Hash]Diff `json:"storage"`
	}
	storage := a.Storage
	if storage == nil {
		storage = map[common.Hash]Diff{}
	}
	return json.Marshal(alias{Balance: a.Balance, Code: a.Code, Nonce: a.Nonce, Storage: storage})
}

// Result is the full per-address state diff of one transaction.
type Result map[common.Address]AccountDiff

// hexBig / hexBytes give a Diff's From/To values the same hex-string RPC
// shape as the rest of this module's output, rather than Go's default
// big.Int / []byte JSON encoding.
type hexBig = hexutil.Big
type hexBytes = hexutil.Bytes
