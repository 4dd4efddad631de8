package party

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage"
)

// DefaultMaxSize is the default upper bound on characters in a working set
const DefaultMaxSize = 3

// Rejection reasons for working-set binding
const (
	ReasonNotAuthenticated  = "notAuthenticated"
	ReasonEmptySelection    = "emptySelection"
	ReasonTooManyCharacters = "tooManyCharacters"
	ReasonCharacterNotFound = "characterNotFound"
	ReasonCharacterNotOwned = "characterNotOwned"
	ReasonLookupFailed      = "lookupFailed"
)

// Error is a typed binding rejection. CharacterID names the offending
// reference where one exists.
type Error struct {
	Reason      string
	CharacterID string
	cause       error
}

func (e *Error) Error() string {
	if e.CharacterID != "" {
		return fmt.Sprintf("party: %s: character %s", e.Reason, e.CharacterID)
	}
	return "party: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ReasonOf returns the rejection reason of a binding error, or "" for other errors
func ReasonOf(err error) string {
	var bindErr *Error
	if errors.As(err, &bindErr) {
		return bindErr.Reason
	}
	return ""
}

// CharacterLookup is the slice of the store the binder needs
type CharacterLookup interface {
	GetCharacter(id string) (*storage.Character, error)
}

// Binder validates a caller-submitted character selection against ownership
// and cardinality before it becomes a session's working set
type Binder struct {
	characters CharacterLookup
	maxSize    int
}

// NewBinder creates a binder. maxSize <= 0 selects DefaultMaxSize.
func NewBinder(characters CharacterLookup, maxSize int) *Binder {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Binder{characters: characters, maxSize: maxSize}
}

// MaxSize returns the upper bound on working-set cardinality
func (b *Binder) MaxSize() int {
	return b.maxSize
}

// Bind validates every reference and returns the owned records, in the order
// submitted. The first missing or foreign reference fails the whole call:
// binding is all-or-nothing, the caller applies the result atomically or not
// at all. Caller-asserted ownership is never trusted.
func (b *Binder) Bind(accountID string, characterIDs []string) ([]*storage.Character, error) {
	if len(characterIDs) == 0 {
		return nil, &Error{Reason: ReasonEmptySelection}
	}
	if len(characterIDs) > b.maxSize {
		return nil, &Error{Reason: ReasonTooManyCharacters}
	}

	validated := make([]*storage.Character, 0, len(characterIDs))
	for _, id := range characterIDs {
		char, err := b.characters.GetCharacter(id)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil, &Error{Reason: ReasonCharacterNotFound, CharacterID: id}
			}
			return nil, &Error{Reason: ReasonLookupFailed, CharacterID: id, cause: err}
		}
		if char.AccountID != accountID {
			return nil, &Error{Reason: ReasonCharacterNotOwned, CharacterID: id}
		}
		validated = append(validated, char)
	}
	return validated, nil
}
