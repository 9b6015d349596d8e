package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/vctt94/mindvault"
	"github.com/vctt94/mindvault/contract"
)

// CreateRoom submits a create-room transaction with the secret code and
// wager, waits for confirmation, and makes the new room active. The
// room id comes from the RoomCreated event in the receipt.
func (c *Client) CreateRoom(ctx context.Context, digits [mindvault.CodeLen]uint8, wagerWei *big.Int) (*mindvault.RoomState, error) {
	if err := mindvault.ValidateDigits(digits); err != nil {
		return nil, err
	}
	if err := mindvault.ValidateWager(wagerWei); err != nil {
		return nil, err
	}

	txHash, err := c.contract.SendTx(ctx, "createRoom", wagerWei, digits)
	if err != nil {
		return nil, err
	}
	receipt, err := c.contract.AwaitConfirmation(ctx, txHash, 0)
	if err != nil {
		if errors.Is(err, contract.ErrConfirmationTimeout) {
			return nil, fmt.Errorf("createRoom %s unconfirmed: %w", txHash, err)
		}
		return nil, err
	}

	var roomID *big.Int
	for _, l := range receipt.Logs {
		if ev, ok := contract.DecodeLog(*l); ok && ev.Kind == contract.EvRoomCreated {
			roomID = ev.RoomID
			break
		}
	}
	if roomID == nil {
		return nil, &contract.DecodeError{Method: "createRoom", Err: fmt.Errorf("no RoomCreated event in receipt %s", txHash)}
	}

	room, err := c.contract.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	c.rec.SetActiveRoom(room)
	c.log.Infof("created room %s (wager=%s)", roomID, mindvault.FormatWei(wagerWei))
	c.pushUpdate()
	return room, nil
}

// JoinRoom joins an existing room with the joiner's secret code,
// matching the creator's wager, and makes it active.
func (c *Client) JoinRoom(ctx context.Context, roomID *big.Int, digits [mindvault.CodeLen]uint8) (*mindvault.RoomState, error) {
	if err := mindvault.ValidateDigits(digits); err != nil {
		return nil, err
	}

	room, err := c.contract.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Phase != mindvault.PhaseWaitingForJoin {
		return nil, &mindvault.ValidationError{Field: "room", Msg: fmt.Sprintf("room is %s", room.Phase)}
	}
	if room.Creator == c.session.Address() {
		return nil, &mindvault.ValidationError{Field: "room", Msg: "cannot join your own room"}
	}

	txHash, err := c.contract.SendTx(ctx, "joinRoom", room.Wager, roomID, digits)
	if err != nil {
		return nil, err
	}
	if _, err := c.contract.AwaitConfirmation(ctx, txHash, 0); err != nil {
		if errors.Is(err, contract.ErrConfirmationTimeout) {
			return nil, fmt.Errorf("joinRoom %s unconfirmed: %w", txHash, err)
		}
		return nil, err
	}

	room, err = c.contract.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	c.rec.SetActiveRoom(room)
	c.log.Infof("joined room %s", roomID)
	c.pushUpdate()
	return room, nil
}

// SubmitProbe submits the local player's probe for the current turn.
// The guess appears immediately as a pending optimistic entry; if the
// node rejects the submission it is rolled back. Confirmation is waited
// for in the background, so the caller returns as soon as the
// transaction is accepted.
func (c *Client) SubmitProbe(ctx context.Context, digits [mindvault.CodeLen]uint8) error {
	if err := mindvault.ValidateDigits(digits); err != nil {
		return err
	}
	room := c.rec.Room()
	if room == nil {
		return &mindvault.ValidationError{Field: "room", Msg: "no active room"}
	}
	if room.Phase != mindvault.PhaseInProgress {
		return &mindvault.ValidationError{Field: "room", Msg: fmt.Sprintf("room is %s", room.Phase)}
	}
	if !c.rec.IsMyTurn() {
		return &mindvault.ValidationError{Field: "turn", Msg: "not your turn"}
	}

	turn := c.rec.CurrentTurn()
	localID := uuid.NewString()
	c.rec.AddOptimisticGuess(Guess{
		TurnIndex: turn,
		Digits:    digits,
		HasDigits: true,
		Pending:   true,
		LocalID:   localID,
		At:        time.Now(),
	})
	c.pushUpdate()

	txHash, err := c.contract.SendTx(ctx, "submitProbe", nil, room.ID, digits)
	if err != nil {
		// Roll back the optimistic entry; the submission never left.
		c.rec.RemoveGuess(turn, localID)
		c.pushUpdate()
		return err
	}
	c.rec.SetGuessTxHash(turn, txHash)

	go func() {
		_, err := c.contract.AwaitConfirmation(ctx, txHash, 0)
		switch {
		case err == nil:
			// Confirmed; the entry stays pending until the
			// ResultComputed event delivers the score.
		case errors.Is(err, contract.ErrConfirmationTimeout):
			// Outcome unknown: the tx may still land. Leave the entry
			// pending rather than falsely reporting failure.
			c.log.Warnf("probe tx %s unconfirmed after timeout", txHash)
			c.ntfns.notifyMessage(fmt.Sprintf("probe for turn %d submitted, unconfirmed", turn))
		default:
			// Mined and reverted, or the wait itself failed: roll back
			// this submission only, not a later one at the same turn.
			c.rec.RemoveGuess(turn, localID)
			c.log.Warnf("probe tx %s failed: %v", txHash, err)
			select {
			case c.ErrorsCh <- err:
			default:
			}
		}
		c.pushUpdate()
	}()
	return nil
}

// CancelRoom cancels the active room. Only meaningful for the creator
// while the room is waiting or in progress; the contract enforces the
// rest.
func (c *Client) CancelRoom(ctx context.Context) error {
	room := c.rec.Room()
	if room == nil {
		return &mindvault.ValidationError{Field: "room", Msg: "no active room"}
	}
	txHash, err := c.contract.SendTx(ctx, "cancelRoom", nil, room.ID)
	if err != nil {
		return err
	}
	if _, err := c.contract.AwaitConfirmation(ctx, txHash, 0); err != nil {
		if errors.Is(err, contract.ErrConfirmationTimeout) {
			return fmt.Errorf("cancelRoom %s unconfirmed: %w", txHash, err)
		}
		return err
	}
	return c.RefreshRoom(ctx)
}

// SetActiveRoom fetches a room and makes it the reconciliation target.
// Passing nil clears the active room.
func (c *Client) SetActiveRoom(ctx context.Context, roomID *big.Int) error {
	if roomID == nil {
		c.rec.SetActiveRoom(nil)
		c.pushUpdate()
		return nil
	}
	room, err := c.contract.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	c.rec.SetActiveRoom(room)
	c.pushUpdate()
	return nil
}

// RefreshRoom re-reads the active room from the contract and reconciles
// it into the local view.
func (c *Client) RefreshRoom(ctx context.Context) error {
	room := c.rec.Room()
	if room == nil {
		return nil
	}
	fresh, err := c.contract.GetRoom(ctx, room.ID)
	if err != nil {
		return err
	}
	c.rec.UpdateFromChain(fresh)
	c.pushUpdate()
	return nil
}
