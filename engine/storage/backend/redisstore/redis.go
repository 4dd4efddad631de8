package redisstore

import (
	"encoding/json"
	"sync"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"

	storagetypes "github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/types"
)

const (
	accountKeyPrefix   = "account:"
	characterKeyPrefix = "character:"
)

type redisStore struct {
	mu sync.Mutex // redigo connections are not safe for concurrent use
	c  redis.Conn
}

// OpenRedisStore opens a redis server as the account/character store backend
func OpenRedisStore(host string, dbindex int) (storagetypes.Backend, error) {
	c, err := redis.Dial("tcp", host)
	if err != nil {
		return nil, errors.Wrap(err, "redis dial failed")
	}

	if dbindex >= 0 {
		if _, err := c.Do("SELECT", dbindex); err != nil {
			c.Close()
			return nil, errors.Wrap(err, "redis select db failed")
		}
	}

	return &redisStore{c: c}, nil
}

func (db *redisStore) get(key string, doc interface{}) error {
	db.mu.Lock()
	r, err := redis.Bytes(db.c.Do("GET", key))
	db.mu.Unlock()

	if err == redis.ErrNil {
		return storagetypes.ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "redis get %s failed", key)
	}
	return json.Unmarshal(r, doc)
}

func (db *redisStore) put(key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	db.mu.Lock()
	_, err = db.c.Do("SET", key, data)
	db.mu.Unlock()
	return errors.Wrapf(err, "redis set %s failed", key)
}

func (db *redisStore) GetAccount(id string) (*storagetypes.Account, error) {
	var acct storagetypes.Account
	if err := db.get(accountKeyPrefix+id, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (db *redisStore) GetCharacter(id string) (*storagetypes.Character, error) {
	var char storagetypes.Character
	if err := db.get(characterKeyPrefix+id, &char); err != nil {
		return nil, err
	}
	return &char, nil
}

func (db *redisStore) PutAccount(acct *storagetypes.Account) error {
	return db.put(accountKeyPrefix+acct.ID, acct)
}

func (db *redisStore) PutCharacter(char *storagetypes.Character) error {
	return db.put(characterKeyPrefix+char.ID, char)
}

func (db *redisStore) Close() {
	db.c.Close()
}
