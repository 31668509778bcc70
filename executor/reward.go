package executor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainbound/evmtrace/calltrace"
)

// RewardInfo is one miner/uncle-miner credit a block produces. Computing
// the amount is a consensus-engine concern (ethash's static block reward
// plus uncle math, or nothing at all under a PoS/PoA engine) and stays
// outside this module; RewardFunc is the seam a caller plugs that engine
// into.
type RewardInfo struct {
	Author common.Address
	Value  *big.Int
	Kind   string // "block" or "uncle"
}

// RewardFunc computes the reward entries a block's header and uncle
// headers produce. A chain with no block reward (proof-of-stake, most
// proof-of-authority engines) returns an empty slice rather than an error.
type RewardFunc func(blockNumber uint64, coinbase common.Address, uncleCoinbases []common.Address) ([]RewardInfo, error)

// assembleRewardTraces turns reward amounts into pseudo call traces, the
// same shape trace_block emits for ordinary calls, so a consumer doesn't
// need a separate code path to render mining rewards.
func assembleRewardTraces(infos []RewardInfo, txIndex int) []calltrace.Trace {
	out := make([]calltrace.Trace, 0, len(infos))
	for _, ri := range infos {
		author := ri.Author
		out = append(out, calltrace.Trace{
			Type: "reward",
			Action: calltrace.TraceAction{
				Author:     &author,
				RewardType: ri.Kind,
				Value:      ri.Value,
			},
			TransactionPosition: uint64(txIndex),
		})
	}
	return out
}
