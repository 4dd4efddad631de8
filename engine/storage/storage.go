package storage

import (
	"github.com/pkg/errors"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/config"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/backend/memstore"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/backend/mongostore"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/backend/redisclusterstore"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/backend/redisstore"
	storagetypes "github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/types"
)

// Account is the identity record type
type Account = storagetypes.Account

// Character is the game entity record type
type Character = storagetypes.Character

// Backend is the store engine interface
type Backend = storagetypes.Backend

// ErrNotFound is returned by lookups when no record exists
var ErrNotFound = storagetypes.ErrNotFound

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Cause(err) == storagetypes.ErrNotFound
}

// Open opens the store backend selected by the storage config
func Open(cfg *config.StorageConfig) (Backend, error) {
	gamelog.Infof("storage initializing, config:\n%s", config.DumpPretty(cfg))

	switch cfg.Type {
	case "redis":
		return redisstore.OpenRedisStore(cfg.Host, cfg.DBIndex)
	case "rediscluster":
		return redisclusterstore.OpenRedisClusterStore(cfg.StartNodes)
	case "mongodb":
		return mongostore.OpenMongoStore(cfg.Url, cfg.DB, cfg.AccountCollection, cfg.CharacterCollection)
	case "memory":
		return memstore.OpenMemStore(), nil
	}
	return nil, errors.Errorf("unknown storage type: %s", cfg.Type)
}
