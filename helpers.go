package mindvault

import (
	"fmt"
	"math/big"
	"net/url"
	"strings"
)

const (
	// CodeLen is the number of digits in a vault code or probe.
	CodeLen = 4

	// MaxDigit is the highest digit allowed in a code.
	MaxDigit = 9
)

// MinWagerWei is the smallest wager the client will submit (0.001 of the
// native unit). The contract enforces its own minimum; validating
// locally avoids a doomed round-trip.
var MinWagerWei = new(big.Int).Mul(big.NewInt(1e6), big.NewInt(1e9))

// ValidationError is a local input error. It is raised before any
// network call is made.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ValidateDigits checks a code or probe: exactly four digits, each 0-9,
// all four mutually distinct.
func ValidateDigits(digits [CodeLen]uint8) error {
	var seen [MaxDigit + 1]bool
	for i, d := range digits {
		if d > MaxDigit {
			return &ValidationError{
				Field: "digits",
				Msg:   fmt.Sprintf("digit %d out of range at position %d", d, i),
			}
		}
		if seen[d] {
			return &ValidationError{
				Field: "digits",
				Msg:   fmt.Sprintf("digit %d repeated", d),
			}
		}
		seen[d] = true
	}
	return nil
}

// ParseDigits parses user input like "1234" or "1 2 3 4" into a code
// and validates it.
func ParseDigits(s string) ([CodeLen]uint8, error) {
	var out [CodeLen]uint8
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(cleaned) != CodeLen {
		return out, &ValidationError{
			Field: "digits",
			Msg:   fmt.Sprintf("want exactly %d digits", CodeLen),
		}
	}
	for i := 0; i < CodeLen; i++ {
		out[i] = uint8(cleaned[i] - '0')
	}
	if err := ValidateDigits(out); err != nil {
		return out, err
	}
	return out, nil
}

// ValidateWager checks a wager against the local minimum.
func ValidateWager(wei *big.Int) error {
	if wei == nil || wei.Sign() <= 0 {
		return &ValidationError{Field: "wager", Msg: "must be positive"}
	}
	if wei.Cmp(MinWagerWei) < 0 {
		return &ValidationError{
			Field: "wager",
			Msg:   fmt.Sprintf("below minimum %s", FormatWei(MinWagerWei)),
		}
	}
	return nil
}

// FormatWei renders a wei amount as a decimal native-unit string with
// trailing zeros trimmed, e.g. 10000000000000000 -> "0.01".
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	whole := new(big.Int)
	frac := new(big.Int)
	whole.DivMod(wei, big.NewInt(1e18), frac)
	if frac.Sign() == 0 {
		return whole.String()
	}
	fs := frac.String()
	fs = strings.Repeat("0", 18-len(fs)) + fs
	return whole.String() + "." + strings.TrimRight(fs, "0")
}

// ParseWager parses a decimal native-unit amount ("0.01") into wei.
// The conversion is exact: amounts with more precision than a wei are
// rejected rather than rounded.
func ParseWager(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, &ValidationError{Field: "wager", Msg: "not a number"}
	}
	r.Mul(r, new(big.Rat).SetInt64(1e18))
	if !r.IsInt() {
		return nil, &ValidationError{Field: "wager", Msg: "finer than one wei"}
	}
	wei := new(big.Int).Set(r.Num())
	if err := ValidateWager(wei); err != nil {
		return nil, err
	}
	return wei, nil
}

// BuildInviteLink builds the shareable join link for a room:
// <origin>/join?room=<roomId>.
func BuildInviteLink(origin string, roomID *big.Int) string {
	return fmt.Sprintf("%s/join?room=%s", strings.TrimRight(origin, "/"), roomID.String())
}

// ParseInviteLink extracts the room id from an invite link. It also
// accepts a bare room id, so a pasted number still joins.
func ParseInviteLink(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if id, ok := new(big.Int).SetString(raw, 10); ok && id.Sign() >= 0 {
		return id, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ValidationError{Field: "invite", Msg: "not a link or room id"}
	}
	q := u.Query().Get("room")
	if q == "" {
		return nil, &ValidationError{Field: "invite", Msg: "missing room parameter"}
	}
	id, ok := new(big.Int).SetString(q, 10)
	if !ok || id.Sign() < 0 {
		return nil, &ValidationError{Field: "invite", Msg: "bad room id"}
	}
	return id, nil
}
