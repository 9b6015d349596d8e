package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vctt94/mindvault"
)

const (
	// Receipt polling runs at a fixed interval; with the default
	// timeout that is 30 attempts.
	confirmInterval = time.Second

	// DefaultConfirmTimeout is the receipt-wait window.
	DefaultConfirmTimeout = 30 * time.Second

	// Fallback when gas estimation fails.
	defaultGasLimit = 200000
)

// Backend is the subset of an Ethereum JSON-RPC client the binding
// needs. *ethclient.Client satisfies it; tests use a fake.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Contract binds the mind vault contract at a fixed address to a
// backend and an optional signing key. With a nil key the binding is
// read-only and SendTx fails with a SubmissionError.
type Contract struct {
	log     slog.Logger
	backend Backend
	addr    common.Address
	chainID *big.Int

	key  *ecdsa.PrivateKey
	from common.Address

	// confirmEvery is the receipt poll interval; fixed in production,
	// shortened in tests.
	confirmEvery time.Duration
}

func New(log slog.Logger, backend Backend, addr common.Address, key *ecdsa.PrivateKey) (*Contract, error) {
	if log == nil {
		return nil, fmt.Errorf("contract must have logger")
	}
	c := &Contract{
		log:          log,
		backend:      backend,
		addr:         addr,
		key:          key,
		confirmEvery: confirmInterval,
	}
	if key != nil {
		c.from = ethcrypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

// Address returns the bound contract address.
func (c *Contract) Address() common.Address { return c.addr }

// From returns the signing address, or the zero address when read-only.
func (c *Contract) From() common.Address { return c.from }

// CallView executes a read-only contract call and unpacks the return
// data into out. No side effects.
func (c *Contract) CallView(ctx context.Context, method string, out interface{}, args ...interface{}) error {
	data, err := GameABI.Pack(method, args...)
	if err != nil {
		return &DecodeError{Method: method, Err: err}
	}
	res, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.addr,
		Data: data,
	}, nil)
	if err != nil {
		return &RPCError{Op: method, Err: err}
	}
	if err := GameABI.UnpackIntoInterface(out, method, res); err != nil {
		return &DecodeError{Method: method, Err: err}
	}
	return nil
}

// SendTx encodes, signs and submits a state-changing call, returning
// the transaction hash. It does not wait for confirmation.
func (c *Contract) SendTx(ctx context.Context, method string, value *big.Int, args ...interface{}) (common.Hash, error) {
	if c.key == nil {
		return common.Hash{}, &SubmissionError{Method: method, Err: fmt.Errorf("no signing key")}
	}
	data, err := GameABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, &DecodeError{Method: method, Err: err}
	}
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, &RPCError{Op: "pending nonce", Err: err}
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, &RPCError{Op: "gas price", Err: err}
	}
	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &c.addr,
		Value: value,
		Data:  data,
	})
	if err != nil {
		// Estimation failures are often reverts-in-waiting, but the
		// node may also just refuse to estimate; fall back and let the
		// chain decide.
		gasLimit = defaultGasLimit
		c.log.Debugf("gas estimation for %s failed: %v; using default %d", method, err, gasLimit)
	}

	if c.chainID == nil {
		id, err := c.backend.ChainID(ctx)
		if err != nil {
			return common.Hash{}, &RPCError{Op: "chain id", Err: err}
		}
		c.chainID = id
	}

	tx := ethtypes.NewTransaction(nonce, c.addr, value, gasLimit, gasPrice, data)
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, &SubmissionError{Method: method, Err: err}
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, &SubmissionError{Method: method, Err: err}
	}
	c.log.Infof("sent %s tx %s (nonce=%d value=%s)", method, signed.Hash(), nonce, value)
	return signed.Hash(), nil
}

// AwaitConfirmation polls for the transaction receipt at a fixed
// interval until found or the timeout window is exceeded (pass 0 for
// the default 30s). It blocks the caller only; run it from its own
// goroutine when other work must continue. A mined-but-reverted
// transaction is reported as a SubmissionError.
func (c *Contract) AwaitConfirmation(ctx context.Context, txHash common.Hash, timeout time.Duration) (*ethtypes.Receipt, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	attempts := int(timeout / c.confirmEvery)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return receipt, &SubmissionError{Method: "confirm", Err: fmt.Errorf("transaction %s reverted", txHash)}
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.confirmEvery):
		}
	}
	return nil, ErrConfirmationTimeout
}

// roomResult matches getRoom's output tuple by name.
type roomResult struct {
	Creator         common.Address
	Opponent        common.Address
	Wager           *big.Int
	Phase           uint8
	TurnCount       uint32
	EncryptedWinner [32]byte
	CreatedAt       uint64
	LastActiveAt    uint64
}

// GetRoom fetches the authoritative state of a room.
func (c *Contract) GetRoom(ctx context.Context, roomID *big.Int) (*mindvault.RoomState, error) {
	var res roomResult
	if err := c.CallView(ctx, "getRoom", &res, roomID); err != nil {
		return nil, err
	}
	return &mindvault.RoomState{
		ID:              new(big.Int).Set(roomID),
		Creator:         res.Creator,
		Opponent:        res.Opponent,
		Wager:           res.Wager,
		Phase:           mindvault.RoomPhase(res.Phase),
		TurnCount:       res.TurnCount,
		EncryptedWinner: res.EncryptedWinner,
		CreatedAt:       time.Unix(int64(res.CreatedAt), 0),
		LastActiveAt:    time.Unix(int64(res.LastActiveAt), 0),
	}, nil
}

// probeResult matches getProbe's output tuple by name.
type probeResult struct {
	Submitter common.Address
	Digits    [4]uint8
}

// GetProbe fetches one recorded probe. Used to backfill digits the
// local view never saw (the opponent's probes).
func (c *Contract) GetProbe(ctx context.Context, roomID *big.Int, turnIndex uint32) (common.Address, [4]uint8, error) {
	var res probeResult
	if err := c.CallView(ctx, "getProbe", &res, roomID, turnIndex); err != nil {
		return common.Address{}, [4]uint8{}, err
	}
	return res.Submitter, res.Digits, nil
}
