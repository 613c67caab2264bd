package wallet

import (
	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
)

// BadgerStore keeps identities in an embedded badger database. It suits
// clients that manage many identities and want transactional durability
// without an external database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if necessary) a badger database at dir
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open wallet database at '%s'", dir)
	}
	return &BadgerStore{db: db}, nil
}

// Put stores data under label
func (bs *BadgerStore) Put(label string, data []byte) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(label), data)
	})
}

// Get retrieves the data stored under label
func (bs *BadgerStore) Get(label string) ([]byte, error) {
	var data []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(label))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Remove deletes the data stored under label
func (bs *BadgerStore) Remove(label string) error {
	err := bs.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(label))
		if err != nil {
			return err
		}
		return txn.Delete([]byte(label))
	})
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	return err
}

// Exists reports whether data is stored under label
func (bs *BadgerStore) Exists(label string) (bool, error) {
	err := bs.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(label))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all stored labels
func (bs *BadgerStore) List() ([]string, error) {
	labels := []string{}
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			labels = append(labels, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// Close closes the underlying database
func (bs *BadgerStore) Close() error {
	return bs.db.Close()
}
