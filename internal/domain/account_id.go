package domain

import (
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/oklog/ulid/v2"
)

// AccountIDPrefix is the literal prefix of every account identifier.
const AccountIDPrefix = "acc-"

var accountIDPattern = regexp.MustCompile(`^acc-[a-f0-9]{32}$`)

// AccountID identifies an account: "acc-" followed by 32 lowercase hex characters.
type AccountID struct {
	value string
}

// ParseAccountID validates s and returns it as an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return AccountID{}, fmt.Errorf("%w: account ID cannot be empty", ErrInvalidAccountID)
	}

	if !accountIDPattern.MatchString(s) {
		return AccountID{}, fmt.Errorf("%w: %q does not match %s<32 hex>", ErrInvalidAccountID, s, AccountIDPrefix)
	}

	return AccountID{value: s}, nil
}

// MustAccountID is like ParseAccountID but panics on invalid input.
func MustAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewAccountIDFromULID hex-encodes the 16 ULID bytes, so IDs keep ULID ordering.
func NewAccountIDFromULID(id ulid.ULID) AccountID {
	return AccountID{value: AccountIDPrefix + hex.EncodeToString(id[:])}
}

func (id AccountID) String() string {
	return id.value
}

// IsZero reports whether id is the zero value.
func (id AccountID) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler.
func (id AccountID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
