package executor

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestAssembleRewardTracesSetsTypeAndPosition(t *testing.T) {
	author := common.HexToAddress("0x1")
	traces := assembleRewardTraces([]RewardInfo{
		{Author: author, Value: big.NewInt(2000000000000000000), Kind: "block"},
	}, 5)

	require.Len(t, traces, 1)
	require.Equal(t, "reward", traces[0].Type)
	require.Equal(t, "block", traces[0].Action.RewardType)
	require.Equal(t, &author, traces[0].Action.Author)
	require.EqualValues(t, 5, traces[0].TransactionPosition)
}

func TestAssembleRewardTracesEmptyInput(t *testing.T) {
	traces := assembleRewardTraces(nil, 0)
	require.Len(t, traces, 0)
}
