package statediff

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/chainbound/evmtrace/tracing"
)

type fakeBaseline struct {
	balance map[common.Address]*big.Int
	nonce   map[common.Address]uint64
	code    map[common.Address][]byte
}

func (b *fakeBaseline) BalanceOf(a common.Address) *big.Int { return b.balance[a] }
func (b *fakeBaseline) NonceOf(a common.Address) uint64     { return b.nonce[a] }
func (b *fakeBaseline) CodeOf(a common.Address) []byte      { return b.code[a] }

type fakeIBS struct {
	exists  map[common.Address]bool
	balance map[common.Address]*big.Int
	nonce   map[common.Address]uint64
	code    map[common.Address][]byte
	storage map[common.Address]map[common.Hash]common.Hash
	touched []common.Address
}

func (f *fakeIBS) Exists(a common.Address) bool           { return f.exists[a] }
func (f *fakeIBS) GetBalance(a common.Address) *big.Int   { return f.balance[a] }
func (f *fakeIBS) GetNonce(a common.Address) uint64       { return f.nonce[a] }
func (f *fakeIBS) GetCode(a common.Address) []byte        { return f.code[a] }
func (f *fakeIBS) GetCodeHash(common.Address) common.Hash { return common.Hash{} }
func (f *fakeIBS) GetState(a common.Address, k common.Hash) common.Hash {
	return f.storage[a][k]
}
func (f *fakeIBS) GetOriginalState(common.Address, common.Hash) common.Hash {
	return common.Hash{}
}
func (f *fakeIBS) Touched() []common.Address { return f.touched }

var _ tracing.IntraBlockState = (*fakeIBS)(nil)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

// fakeExecState drives OnInstructionStart with a single SSTORE at pc 0.
type fakeExecState struct {
	recipient common.Address
}

func (e *fakeExecState) Code() []byte           { return []byte{byte(vm.SSTORE)} }
func (e *fakeExecState) Memory() []byte         { return nil }
func (e *fakeExecState) GasLeft() uint64        { return 0 }
func (e *fakeExecState) Msg() *tracing.Message  { return &tracing.Message{Recipient: e.recipient} }

type fakeStack struct {
	key, value uint256.Int
}

func (s *fakeStack) StackTop(n int) []uint256.Int {
	top := []uint256.Int{s.key, s.value}
	if n < len(top) {
		return top[:n]
	}
	return top
}
func (s *fakeStack) StackHeight() int { return 2 }

func TestDiffBalanceChangedAndAdded(t *testing.T) {
	existing, fresh := addr(1), addr(2)
	baseline := &fakeBaseline{
		balance: map[common.Address]*big.Int{existing: big.NewInt(100)},
		nonce:   map[common.Address]uint64{existing: 1},
		code:    map[common.Address][]byte{},
	}
	tr := New(baseline)

	ibs := &fakeIBS{
		exists:  map[common.Address]bool{existing: true, fresh: true},
		balance: map[common.Address]*big.Int{existing: big.NewInt(60), fresh: big.NewInt(5)},
		nonce:   map[common.Address]uint64{existing: 1, fresh: 1},
		code:    map[common.Address][]byte{},
		storage: map[common.Address]map[common.Hash]common.Hash{},
		touched: []common.Address{existing, fresh},
	}
	tr.Hooks().OnRewardGranted(&tracing.ExecutionResult{}, ibs)

	res := tr.Result()
	require.Equal(t, Changed, res[existing].Balance.Kind)
	require.Equal(t, Added, res[fresh].Balance.Kind)
	require.Equal(t, Added, res[fresh].Nonce.Kind)
}

func TestDiffStorageChangedSlot(t *testing.T) {
	a := addr(3)
	baseline := &fakeBaseline{balance: map[common.Address]*big.Int{a: big.NewInt(0)}}
	tr := New(baseline)

	key := common.HexToHash("0x1")
	val := common.HexToHash("0x2a")
	ibs := &fakeIBS{
		exists:  map[common.Address]bool{a: true},
		balance: map[common.Address]*big.Int{a: big.NewInt(0)},
		code:    map[common.Address][]byte{},
		storage: map[common.Address]map[common.Hash]common.Hash{a: {key: val}},
		touched: []common.Address{a},
	}

	var keyWord uint256.Int
	keyWord.SetBytes(key.Bytes())
	hooks := tr.Hooks()
	hooks.OnInstructionStart(0, &fakeStack{key: keyWord}, 2, &fakeExecState{recipient: a}, ibs)
	hooks.OnRewardGranted(&tracing.ExecutionResult{}, ibs)

	res := tr.Result()
	require.Equal(t, Changed, res[a].Storage[key].Kind)
}

func TestDiffStorageOnlyReportsSSTOREKeys(t *testing.T) {
	a := addr(4)
	baseline := &fakeBaseline{balance: map[common.Address]*big.Int{a: big.NewInt(0)}}
	tr := New(baseline)

	ibs := &fakeIBS{
		exists:  map[common.Address]bool{a: true},
		balance: map[common.Address]*big.Int{a: big.NewInt(0)},
		code:    map[common.Address][]byte{},
		storage: map[common.Address]map[common.Hash]common.Hash{a: {common.HexToHash("0x1"): common.HexToHash("0x2a")}},
		touched: []common.Address{a},
	}
	// No OnInstructionStart observed: nothing was recorded as SSTORE'd, so
	// the diff must not report the slot even though the fake IBS carries it.
	tr.Hooks().OnRewardGranted(&tracing.ExecutionResult{}, ibs)

	res := tr.Result()
	require.Empty(t, res[a].Storage)
}
