package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctt94/mindvault"
)

var (
	testContractAddr = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	testCreator      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOpponent     = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakeBackend struct {
	mu sync.Mutex

	callRet []byte
	callErr error

	nonce    uint64
	gasPrice *big.Int
	gasErr   error
	chainID  *big.Int
	sentTx   *ethtypes.Transaction
	sendErr  error

	receipt    *ethtypes.Receipt
	receiptErr error

	// receiptAfter delays receipt availability by this many polls.
	receiptAfter int
	receiptPolls int
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return f.callRet, f.callErr
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) { return 0, nil }

func (f *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	return nil, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if f.gasErr != nil {
		return 0, f.gasErr
	}
	return 50000, nil
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTx = tx
	return f.sendErr
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptPolls++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receiptPolls <= f.receiptAfter {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func newTestContract(t *testing.T, backend Backend, withKey bool) *Contract {
	t.Helper()
	var key *ecdsa.PrivateKey
	if withKey {
		k, err := ethcrypto.GenerateKey()
		require.NoError(t, err)
		key = k
	}
	c, err := New(slog.Disabled, backend, testContractAddr, key)
	require.NoError(t, err)
	c.confirmEvery = time.Millisecond
	return c
}

func TestGetRoom(t *testing.T) {
	wager := big.NewInt(1e16)
	ret, err := GameABI.Methods["getRoom"].Outputs.Pack(
		testCreator, testOpponent, wager, uint8(1), uint32(3),
		[32]byte{0xaa}, uint64(1700000000), uint64(1700000600),
	)
	require.NoError(t, err)

	backend := &fakeBackend{callRet: ret}
	c := newTestContract(t, backend, false)

	room, err := c.GetRoom(context.Background(), big.NewInt(42))
	require.NoError(t, err)
	assert.Zero(t, room.ID.Cmp(big.NewInt(42)))
	assert.Equal(t, testCreator, room.Creator)
	assert.Equal(t, testOpponent, room.Opponent)
	assert.Zero(t, room.Wager.Cmp(wager))
	assert.Equal(t, mindvault.PhaseInProgress, room.Phase)
	assert.Equal(t, uint32(3), room.TurnCount)
	assert.Equal(t, int64(1700000000), room.CreatedAt.Unix())
}

func TestGetProbe(t *testing.T) {
	ret, err := GameABI.Methods["getProbe"].Outputs.Pack(
		testCreator, [4]uint8{1, 2, 3, 4},
	)
	require.NoError(t, err)

	backend := &fakeBackend{callRet: ret}
	c := newTestContract(t, backend, false)

	submitter, digits, err := c.GetProbe(context.Background(), big.NewInt(42), 0)
	require.NoError(t, err)
	assert.Equal(t, testCreator, submitter)
	assert.Equal(t, [4]uint8{1, 2, 3, 4}, digits)
}

func TestCallViewErrors(t *testing.T) {
	backend := &fakeBackend{callErr: errors.New("connection refused")}
	c := newTestContract(t, backend, false)

	_, err := c.GetRoom(context.Background(), big.NewInt(1))
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "getRoom", rpcErr.Op)

	// Garbage return data is a decode error, not an RPC error.
	backend = &fakeBackend{callRet: []byte{0x01, 0x02}}
	c = newTestContract(t, backend, false)
	_, err = c.GetRoom(context.Background(), big.NewInt(1))
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
}

func TestSendTx(t *testing.T) {
	backend := &fakeBackend{
		nonce:    7,
		gasPrice: big.NewInt(2e9),
		chainID:  big.NewInt(1337),
	}
	c := newTestContract(t, backend, true)

	wager := big.NewInt(1e16)
	hash, err := c.SendTx(context.Background(), "createRoom", wager, [4]uint8{1, 2, 3, 4})
	require.NoError(t, err)

	tx := backend.sentTx
	require.NotNil(t, tx)
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, testContractAddr, *tx.To())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Zero(t, tx.Value().Cmp(wager))
	assert.Equal(t, uint64(50000), tx.Gas())

	// Calldata starts with the createRoom selector.
	want := GameABI.Methods["createRoom"].ID
	assert.Equal(t, want, tx.Data()[:4])

	// The signature recovers to the configured key.
	from, err := ethtypes.Sender(ethtypes.NewEIP155Signer(big.NewInt(1337)), tx)
	require.NoError(t, err)
	assert.Equal(t, c.From(), from)
}

func TestSendTxGasFallback(t *testing.T) {
	backend := &fakeBackend{
		gasPrice: big.NewInt(2e9),
		gasErr:   errors.New("execution reverted"),
		chainID:  big.NewInt(1337),
	}
	c := newTestContract(t, backend, true)

	_, err := c.SendTx(context.Background(), "cancelRoom", nil, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(defaultGasLimit), backend.sentTx.Gas())
}

func TestSendTxReadOnly(t *testing.T) {
	c := newTestContract(t, &fakeBackend{}, false)
	_, err := c.SendTx(context.Background(), "cancelRoom", nil, big.NewInt(1))
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
}

func TestAwaitConfirmation(t *testing.T) {
	txHash := common.HexToHash("0xabcd")
	backend := &fakeBackend{
		receipt:      &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: txHash},
		receiptAfter: 3,
	}
	c := newTestContract(t, backend, false)

	receipt, err := c.AwaitConfirmation(context.Background(), txHash, 0)
	require.NoError(t, err)
	assert.Equal(t, txHash, receipt.TxHash)
}

func TestAwaitConfirmationReverted(t *testing.T) {
	txHash := common.HexToHash("0xabcd")
	backend := &fakeBackend{
		receipt: &ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed, TxHash: txHash},
	}
	c := newTestContract(t, backend, false)

	receipt, err := c.AwaitConfirmation(context.Background(), txHash, 0)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.NotNil(t, receipt)
	assert.Equal(t, ethtypes.ReceiptStatusFailed, receipt.Status)
}

func TestAwaitConfirmationTimeout(t *testing.T) {
	backend := &fakeBackend{receiptErr: ethereum.NotFound}
	c := newTestContract(t, backend, false)

	_, err := c.AwaitConfirmation(context.Background(), common.HexToHash("0xabcd"), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestAwaitConfirmationContextCancel(t *testing.T) {
	backend := &fakeBackend{receiptErr: ethereum.NotFound}
	c := newTestContract(t, backend, false)
	c.confirmEvery = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.AwaitConfirmation(ctx, common.HexToHash("0xabcd"), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func packEventData(t *testing.T, name string, vals ...interface{}) []byte {
	t.Helper()
	data, err := GameABI.Events[name].Inputs.NonIndexed().Pack(vals...)
	require.NoError(t, err)
	return data
}

func TestDecodeLogRoomCreated(t *testing.T) {
	wager := big.NewInt(1e16)
	l := ethtypes.Log{
		Topics: []common.Hash{
			GameABI.Events["RoomCreated"].ID,
			common.BigToHash(big.NewInt(42)),
			common.BytesToHash(testCreator.Bytes()),
		},
		Data:        packEventData(t, "RoomCreated", wager),
		BlockNumber: 100,
		TxHash:      common.HexToHash("0x01"),
	}
	ev, ok := DecodeLog(l)
	require.True(t, ok)
	assert.Equal(t, EvRoomCreated, ev.Kind)
	assert.Zero(t, ev.RoomID.Cmp(big.NewInt(42)))
	assert.Equal(t, testCreator, ev.Creator)
	assert.Zero(t, ev.Wager.Cmp(wager))
	assert.Equal(t, uint64(100), ev.Block)
}

func TestDecodeLogResultComputed(t *testing.T) {
	l := ethtypes.Log{
		Topics: []common.Hash{
			GameABI.Events["ResultComputed"].ID,
			common.BigToHash(big.NewInt(7)),
		},
		Data: packEventData(t, "ResultComputed",
			uint32(3), testOpponent, false, uint8(1), uint8(2)),
	}
	ev, ok := DecodeLog(l)
	require.True(t, ok)
	assert.Equal(t, EvResultComputed, ev.Kind)
	assert.Equal(t, uint32(3), ev.TurnIndex)
	assert.Equal(t, testOpponent, ev.Submitter)
	assert.False(t, ev.IsWin)
	assert.Equal(t, uint8(1), ev.Breaches)
	assert.Equal(t, uint8(2), ev.Signals)
}

func TestDecodeLogGameFinished(t *testing.T) {
	amount := big.NewInt(2e16)
	l := ethtypes.Log{
		Topics: []common.Hash{
			GameABI.Events["GameFinished"].ID,
			common.BigToHash(big.NewInt(7)),
		},
		Data: packEventData(t, "GameFinished", testCreator, amount),
	}
	ev, ok := DecodeLog(l)
	require.True(t, ok)
	assert.Equal(t, EvGameFinished, ev.Kind)
	assert.Equal(t, testCreator, ev.Winner)
	assert.Zero(t, ev.Amount.Cmp(amount))
}

func TestDecodeLogMalformed(t *testing.T) {
	// No topics.
	_, ok := DecodeLog(ethtypes.Log{})
	assert.False(t, ok)

	// Unknown event signature.
	_, ok = DecodeLog(ethtypes.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	assert.False(t, ok)

	// Known event but missing the roomId topic.
	_, ok = DecodeLog(ethtypes.Log{Topics: []common.Hash{GameABI.Events["RoomJoined"].ID}})
	assert.False(t, ok)

	// Known event with truncated data.
	_, ok = DecodeLog(ethtypes.Log{
		Topics: []common.Hash{
			GameABI.Events["RoomJoined"].ID,
			common.BigToHash(big.NewInt(1)),
		},
		Data: []byte{0x01},
	})
	assert.False(t, ok)
}
