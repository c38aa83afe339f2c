package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	log "github.com/sirupsen/logrus"
)

// keyPrefixHandshake indexes entries by the textual peer address.
const keyPrefixHandshake = "HSK"

var ErrCorrupted = fmt.Errorf("ledger: corrupted")

// LevelDB is the persistent Ledger. Entries survive across runs so the
// status command can report past probe rounds.
type LevelDB struct {
	path string
	db   *leveldb.DB
}

var _ Ledger = (*LevelDB)(nil)

func keyFromAddr(addr string) []byte {
	return append([]byte(keyPrefixHandshake), []byte(addr)...)
}

func initLevelDb(path string) (*leveldb.DB, error) {
	opts := &opt.Options{
		Compression: opt.NoCompression,
	}

	// Open or create the new DB
	db, err := leveldb.OpenFile(path, opts)
	if ldberrors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}

	if err != nil {
		return nil, err
	}

	log.Infof("Opened LevelDB at %s", path)

	return db, nil
}

// NewLevelDB opens (or creates) the on-disk ledger at path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := initLevelDb(path)
	if err != nil {
		return nil, err
	}
	return &LevelDB{path: path, db: db}, nil
}

func (l *LevelDB) Record(addr string, e *Entry) error {
	raw, err := cbor.Marshal(e)
	if err != nil {
		return err
	}
	return l.db.Put(keyFromAddr(addr), raw, nil)
}

func (l *LevelDB) Get(addr string) (*Entry, error) {
	raw, err := l.db.Get(keyFromAddr(addr), nil)
	if err == ldberrors.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e := &Entry{}
	if err := cbor.Unmarshal(raw, e); err != nil {
		log.Errorf("Get: undecodable entry for %s: %v", addr, err)
		return nil, ErrCorrupted
	}
	return e, nil
}

func (l *LevelDB) All() (map[string]*Entry, error) {
	out := make(map[string]*Entry)

	iter := l.db.NewIterator(util.BytesPrefix([]byte(keyPrefixHandshake)), nil)
	defer iter.Release()
	for iter.Next() {
		addr := string(iter.Key()[len(keyPrefixHandshake):])
		e := &Entry{}
		if err := cbor.Unmarshal(iter.Value(), e); err != nil {
			log.Errorf("All: undecodable entry for %s: %v", addr, err)
			return nil, ErrCorrupted
		}
		out[addr] = e
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
