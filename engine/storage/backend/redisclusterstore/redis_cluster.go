package redisclusterstore

import (
	"encoding/json"
	"time"

	"github.com/chasex/redis-go-cluster"
	"github.com/pkg/errors"

	storagetypes "github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/types"
)

const (
	accountKeyPrefix   = "account:"
	characterKeyPrefix = "character:"
)

type redisClusterStore struct {
	c *redis.Cluster
}

// OpenRedisClusterStore opens a redis cluster as the account/character store backend
func OpenRedisClusterStore(startNodes []string) (storagetypes.Backend, error) {
	c, err := redis.NewCluster(&redis.Options{
		StartNodes:   startNodes,
		ConnTimeout:  10 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		KeepAlive:    1,
		AliveTime:    10 * time.Minute,
	})
	if err != nil {
		return nil, errors.Wrap(err, "redis cluster dial failed")
	}

	return &redisClusterStore{c: c}, nil
}

func (db *redisClusterStore) get(key string, doc interface{}) error {
	r, err := db.c.Do("GET", key)
	if err != nil {
		return errors.Wrapf(err, "redis cluster get %s failed", key)
	}
	if r == nil {
		return storagetypes.ErrNotFound
	}
	return json.Unmarshal(r.([]byte), doc)
}

func (db *redisClusterStore) put(key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = db.c.Do("SET", key, data)
	return errors.Wrapf(err, "redis cluster set %s failed", key)
}

func (db *redisClusterStore) GetAccount(id string) (*storagetypes.Account, error) {
	var acct storagetypes.Account
	if err := db.get(accountKeyPrefix+id, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (db *redisClusterStore) GetCharacter(id string) (*storagetypes.Character, error) {
	var char storagetypes.Character
	if err := db.get(characterKeyPrefix+id, &char); err != nil {
		return nil, err
	}
	return &char, nil
}

func (db *redisClusterStore) PutAccount(acct *storagetypes.Account) error {
	return db.put(accountKeyPrefix+acct.ID, acct)
}

func (db *redisClusterStore) PutCharacter(char *storagetypes.Character) error {
	return db.put(characterKeyPrefix+char.ID, char)
}

func (db *redisClusterStore) Close() {
	db.c.Close()
}
