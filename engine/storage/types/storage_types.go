package storagetypes

import "github.com/pkg/errors"

// ErrNotFound is returned by lookups when no record exists for the id
var ErrNotFound = errors.New("record not found")

// Account is the read-only identity record owned by the account store.
// It never carries secret material.
type Account struct {
	ID       string `msgpack:"id" json:"id" bson:"_id"`
	Username string `msgpack:"username" json:"username" bson:"username"`
}

// Character is a game-controlled entity record owned by the character store
type Character struct {
	ID        string  `msgpack:"id" json:"id" bson:"_id"`
	AccountID string  `msgpack:"accountId" json:"accountId" bson:"accountId"`
	Name      string  `msgpack:"name" json:"name" bson:"name"`
	ClassName string  `msgpack:"className" json:"className" bson:"className"`
	X         float64 `msgpack:"x" json:"x" bson:"x"`
	Y         float64 `msgpack:"y" json:"y" bson:"y"`
	Health    int     `msgpack:"health" json:"health" bson:"health"`
	MaxHealth int     `msgpack:"maxHealth" json:"maxHealth" bson:"maxHealth"`
	Level     int     `msgpack:"level" json:"level" bson:"level"`
	State     string  `msgpack:"state" json:"state" bson:"state"`
}

// Backend is a storage engine holding accounts and characters.
// Get methods return ErrNotFound (possibly wrapped) when no record exists.
type Backend interface {
	GetAccount(id string) (*Account, error)
	GetCharacter(id string) (*Character, error)
	PutAccount(acct *Account) error
	PutCharacter(char *Character) error
	Close()
}
