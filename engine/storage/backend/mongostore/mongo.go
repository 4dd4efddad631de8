package mongostore

import (
	"gopkg.in/mgo.v2"

	"github.com/pkg/errors"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
	storagetypes "github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/types"
)

const _DEFAULT_DB_NAME = "idlemmo"

type mongoStore struct {
	s          *mgo.Session
	accounts   *mgo.Collection
	characters *mgo.Collection
}

// OpenMongoStore opens mongodb as the account/character store backend
func OpenMongoStore(url string, dbname string, accountCollection string, characterCollection string) (storagetypes.Backend, error) {
	gamelog.Debugf("Connecting MongoDB %s ...", url)
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb dial failed")
	}

	session.SetMode(mgo.Monotonic, true)
	if dbname == "" {
		dbname = _DEFAULT_DB_NAME
	}
	db := session.DB(dbname)
	return &mongoStore{
		s:          session,
		accounts:   db.C(accountCollection),
		characters: db.C(characterCollection),
	}, nil
}

func (db *mongoStore) GetAccount(id string) (*storagetypes.Account, error) {
	var acct storagetypes.Account
	if err := db.accounts.FindId(id).One(&acct); err != nil {
		if err == mgo.ErrNotFound {
			return nil, storagetypes.ErrNotFound
		}
		return nil, errors.Wrapf(err, "mongodb find account %s failed", id)
	}
	return &acct, nil
}

func (db *mongoStore) GetCharacter(id string) (*storagetypes.Character, error) {
	var char storagetypes.Character
	if err := db.characters.FindId(id).One(&char); err != nil {
		if err == mgo.ErrNotFound {
			return nil, storagetypes.ErrNotFound
		}
		return nil, errors.Wrapf(err, "mongodb find character %s failed", id)
	}
	return &char, nil
}

func (db *mongoStore) PutAccount(acct *storagetypes.Account) error {
	_, err := db.accounts.UpsertId(acct.ID, acct)
	return errors.Wrapf(err, "mongodb upsert account %s failed", acct.ID)
}

func (db *mongoStore) PutCharacter(char *storagetypes.Character) error {
	_, err := db.characters.UpsertId(char.ID, char)
	return errors.Wrapf(err, "mongodb upsert character %s failed", char.ID)
}

func (db *mongoStore) Close() {
	db.s.Close()
}
