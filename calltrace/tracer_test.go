package calltrace

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/chainbound/evmtrace/tracing"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func TestFlattenSingleCall(t *testing.T) {
	tr := New(-1, false, nil)
	from, to := addr(1), addr(2)

	tr.onExecutionStart("", &tracing.Message{
		Depth: 0, Gas: 21000, Sender: from, Recipient: to,
		Kind: tracing.CALL, Value: uint256.NewInt(0),
	}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 1000}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Len(t, traces, 1)
	require.Equal(t, "call", traces[0].Type)
	require.Equal(t, []int{}, traces[0].TraceAddress)
	require.Equal(t, &from, traces[0].Action.From)
	require.Equal(t, &to, traces[0].Action.To)
	require.EqualValues(t, 20000, *traces[0].Result.GasUsed)
}

func TestFlattenNestedCallsTraceAddress(t *testing.T) {
	tr := New(-1, false, nil)
	root, child := addr(1), addr(2)

	tr.onExecutionStart("", &tracing.Message{Depth: 0, Gas: 100000, Sender: root, Recipient: child, Kind: tracing.CALL, Value: uint256.NewInt(0)}, nil)
	tr.onExecutionStart("", &tracing.Message{Depth: 1, Gas: 50000, Sender: child, Recipient: addr(3), Kind: tracing.STATICCALL, Value: uint256.NewInt(0)}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 40000}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 90000}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Len(t, traces, 2)
	require.Equal(t, []int{}, traces[0].TraceAddress)
	require.Equal(t, 1, traces[0].Subtraces)
	require.Equal(t, []int{0}, traces[1].TraceAddress)
}

func TestRevertDropsResult(t *testing.T) {
	tr := New(-1, false, nil)
	from, to := addr(1), addr(2)
	tr.onExecutionStart("", &tracing.Message{Depth: 0, Gas: 1000, Sender: from, Recipient: to, Kind: tracing.CALL, Value: uint256.NewInt(0)}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Revert, GasLeft: 0, Output: []byte("reverted: bad")}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Equal(t, "execution reverted", traces[0].Error)
	require.Nil(t, traces[0].Result)
}

func TestCreate2NormalizesToCreate(t *testing.T) {
	tr := New(-1, false, nil)
	from, deployed := addr(1), addr(2)
	tr.onExecutionStart("", &tracing.Message{Depth: 0, Gas: 50000, Sender: from, Recipient: deployed, Kind: tracing.CREATE2, Value: uint256.NewInt(0)}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 10000, CreateAddr: deployed}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Equal(t, "create", traces[0].Type)
}

func TestOnRewardGrantedReconcilesRootFrame(t *testing.T) {
	tr := New(-1, false, nil)
	from, to := addr(1), addr(2)
	tr.onExecutionStart("", &tracing.Message{Depth: 0, Gas: 100000, Sender: from, Recipient: to, Kind: tracing.CALL, Value: uint256.NewInt(0)}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 80000}, nil)
	tr.onRewardGranted(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 75000, Output: []byte("final")}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.EqualValues(t, 25000, *traces[0].Result.GasUsed)
	require.Equal(t, []byte("final"), traces[0].Result.Output)
}

func TestDelegatecallReportsCodeAddressAsTo(t *testing.T) {
	tr := New(-1, false, nil)
	caller, codeAddr := addr(1), addr(2)

	tr.onExecutionStart("", &tracing.Message{
		Depth: 1, Gas: 30000, Sender: addr(9), Recipient: caller, CodeAddress: codeAddr,
		Kind: tracing.DELEGATECALL, Value: uint256.NewInt(0),
	}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 1000}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Equal(t, &caller, traces[0].Action.From)
	require.Equal(t, &codeAddr, traces[0].Action.To)
	require.Equal(t, "delegatecall", traces[0].Action.CallType)
}

func TestStaticFlagEscalatesCallToStaticcall(t *testing.T) {
	tr := New(-1, false, nil)
	from, to := addr(1), addr(2)

	tr.onExecutionStart("", &tracing.Message{
		Depth: 1, Gas: 5000, Sender: from, Recipient: to,
		Kind: tracing.CALL, Flags: tracing.StaticFlag, Value: uint256.NewInt(0),
	}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 1000}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Equal(t, "staticcall", traces[0].Action.CallType)
}

type fakeBaseline struct {
	balance map[common.Address]*big.Int
}

func (b *fakeBaseline) BalanceOf(a common.Address) *big.Int { return b.balance[a] }

func TestCreateTargetingExistingAddressReclassifiesAsCall(t *testing.T) {
	from, target := addr(1), addr(2)
	baseline := &fakeBaseline{balance: map[common.Address]*big.Int{target: big.NewInt(5)}}
	tr := New(-1, false, baseline)

	tr.onExecutionStart("", &tracing.Message{
		Depth: 0, Gas: 50000, Sender: from, Recipient: target, CodeAddress: target,
		Kind: tracing.CREATE2, Value: uint256.NewInt(0),
	}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 10000}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Equal(t, "call", traces[0].Type)
}

func TestCreateTargetingFreshAddressStaysCreate(t *testing.T) {
	from, target := addr(1), addr(2)
	baseline := &fakeBaseline{balance: map[common.Address]*big.Int{}}
	tr := New(-1, false, baseline)

	tr.onExecutionStart("", &tracing.Message{
		Depth: 0, Gas: 50000, Sender: from, Recipient: target,
		Kind: tracing.CREATE2, Value: uint256.NewInt(0),
	}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.Success, GasLeft: 10000}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Equal(t, "create", traces[0].Type)
}

func TestConvertErrorToParity(t *testing.T) {
	tr := New(-1, true, nil)
	from, to := addr(1), addr(2)
	tr.onExecutionStart("", &tracing.Message{Depth: 0, Gas: 1000, Sender: from, Recipient: to, Kind: tracing.CALL, Value: uint256.NewInt(0)}, nil)
	tr.onExecutionEnd(&tracing.ExecutionResult{StatusCode: tracing.OutOfGas, GasLeft: 0}, nil)

	traces, err := tr.Result()
	require.NoError(t, err)
	require.Equal(t, "Out of gas", traces[0].Error)
	require.Nil(t, traces[0].Result)
}
