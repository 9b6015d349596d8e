package mindvault

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDigits(t *testing.T) {
	assert.NoError(t, ValidateDigits([4]uint8{1, 2, 3, 4}))
	assert.NoError(t, ValidateDigits([4]uint8{0, 9, 5, 7}))

	// Repeated digit
	err := ValidateDigits([4]uint8{1, 1, 3, 4})
	assert.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	// Out of range
	assert.Error(t, ValidateDigits([4]uint8{1, 2, 3, 10}))
}

func TestParseDigits(t *testing.T) {
	d, err := ParseDigits("1234")
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{1, 2, 3, 4}, d)

	d, err = ParseDigits("5 6 7 8")
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{5, 6, 7, 8}, d)

	_, err = ParseDigits("123")
	assert.Error(t, err)
	_, err = ParseDigits("12345")
	assert.Error(t, err)
	_, err = ParseDigits("1123")
	assert.Error(t, err)
}

func TestValidateWager(t *testing.T) {
	assert.Error(t, ValidateWager(nil))
	assert.Error(t, ValidateWager(big.NewInt(0)))
	assert.Error(t, ValidateWager(big.NewInt(-1)))

	// Just below the 0.001 minimum.
	below := new(big.Int).Sub(MinWagerWei, big.NewInt(1))
	assert.Error(t, ValidateWager(below))

	assert.NoError(t, ValidateWager(MinWagerWei))

	// 0.01
	wager, err := ParseWager("0.01")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", wager.String())
}

func TestParseWagerExact(t *testing.T) {
	// The minimum itself must parse to exactly the minimum.
	wager, err := ParseWager("0.001")
	require.NoError(t, err)
	assert.Zero(t, wager.Cmp(MinWagerWei))

	// Full 18-decimal precision stays exact.
	wager, err = ParseWager("0.123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678", wager.String())

	// 0.3 has no exact binary representation; decimal parsing must not
	// care.
	wager, err = ParseWager("0.3")
	require.NoError(t, err)
	assert.Equal(t, "300000000000000000", wager.String())

	// Finer than a wei is rejected, not rounded.
	_, err = ParseWager("0.0000000000000000001")
	assert.Error(t, err)

	_, err = ParseWager("abc")
	assert.Error(t, err)
}

func TestFormatWei(t *testing.T) {
	assert.Equal(t, "0", FormatWei(nil))
	assert.Equal(t, "1", FormatWei(big.NewInt(1e18)))
	assert.Equal(t, "0.01", FormatWei(big.NewInt(1e16)))
	assert.Equal(t, "0.001", FormatWei(MinWagerWei))
	assert.Equal(t, "1.5", FormatWei(big.NewInt(15e17)))
}

func TestPhaseTransitions(t *testing.T) {
	// Forward transitions.
	assert.True(t, ValidPhaseTransition(PhaseWaitingForJoin, PhaseInProgress))
	assert.True(t, ValidPhaseTransition(PhaseInProgress, PhaseCompleted))
	assert.True(t, ValidPhaseTransition(PhaseWaitingForJoin, PhaseCancelled))
	assert.True(t, ValidPhaseTransition(PhaseInProgress, PhaseCancelled))

	// Self transitions are fine.
	assert.True(t, ValidPhaseTransition(PhaseInProgress, PhaseInProgress))
	assert.True(t, ValidPhaseTransition(PhaseCompleted, PhaseCompleted))

	// No regressions.
	assert.False(t, ValidPhaseTransition(PhaseInProgress, PhaseWaitingForJoin))
	assert.False(t, ValidPhaseTransition(PhaseCompleted, PhaseInProgress))
	assert.False(t, ValidPhaseTransition(PhaseCancelled, PhaseWaitingForJoin))
	assert.False(t, ValidPhaseTransition(PhaseCompleted, PhaseCancelled))

	// Waiting cannot jump straight to completed.
	assert.False(t, ValidPhaseTransition(PhaseWaitingForJoin, PhaseCompleted))
}

func TestTurnParity(t *testing.T) {
	for turn := uint32(0); turn < 16; turn++ {
		if turn%2 == 0 {
			assert.True(t, TurnOwnedByCreator(turn), "turn %d", turn)
			assert.True(t, TurnOwnedBy(turn, true), "turn %d", turn)
			assert.False(t, TurnOwnedBy(turn, false), "turn %d", turn)
		} else {
			assert.False(t, TurnOwnedByCreator(turn), "turn %d", turn)
			assert.False(t, TurnOwnedBy(turn, true), "turn %d", turn)
			assert.True(t, TurnOwnedBy(turn, false), "turn %d", turn)
		}
	}
}

func TestInviteLinkRoundTrip(t *testing.T) {
	id := big.NewInt(42)
	link := BuildInviteLink("https://mindvault.games", id)
	assert.Equal(t, "https://mindvault.games/join?room=42", link)

	got, err := ParseInviteLink(link)
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(id))

	// Trailing slash on origin is normalized.
	link = BuildInviteLink("https://mindvault.games/", id)
	assert.Equal(t, "https://mindvault.games/join?room=42", link)

	// Bare room id is accepted too.
	got, err = ParseInviteLink(" 42 ")
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(id))

	_, err = ParseInviteLink("https://mindvault.games/join")
	assert.Error(t, err)
	_, err = ParseInviteLink("https://mindvault.games/join?room=abc")
	assert.Error(t, err)
}
