package memstore

import (
	"sync"

	storagetypes "github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/types"
)

// MemStore is an in-memory account/character store, used for tests and
// for running the server without external storage
type MemStore struct {
	mu         sync.RWMutex
	accounts   map[string]storagetypes.Account
	characters map[string]storagetypes.Character
}

// OpenMemStore creates an empty in-memory store backend
func OpenMemStore() *MemStore {
	return &MemStore{
		accounts:   map[string]storagetypes.Account{},
		characters: map[string]storagetypes.Character{},
	}
}

func (db *MemStore) GetAccount(id string) (*storagetypes.Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	acct, ok := db.accounts[id]
	if !ok {
		return nil, storagetypes.ErrNotFound
	}
	return &acct, nil
}

func (db *MemStore) GetCharacter(id string) (*storagetypes.Character, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	char, ok := db.characters[id]
	if !ok {
		return nil, storagetypes.ErrNotFound
	}
	return &char, nil
}

func (db *MemStore) PutAccount(acct *storagetypes.Account) error {
	db.mu.Lock()
	db.accounts[acct.ID] = *acct
	db.mu.Unlock()
	return nil
}

func (db *MemStore) PutCharacter(char *storagetypes.Character) error {
	db.mu.Lock()
	db.characters[char.ID] = *char
	db.mu.Unlock()
	return nil
}

func (db *MemStore) Close() {}
