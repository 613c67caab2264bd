package wallet

import (
	"io"

	"github.com/pkg/errors"

	caerrors "github.com/coinkaraoke/ledger-identity/errors"
)

// ErrNotFound is returned by stores when no value exists under a label
var ErrNotFound = errors.New("label not found in wallet")

// Store is the persistence interface wallets are built on. Implementations
// must be safe for concurrent use.
type Store interface {
	Put(label string, data []byte) error
	Get(label string) ([]byte, error)
	Remove(label string) error
	Exists(label string) (bool, error)
	List() ([]string, error)
}

// Wallet holds enrolled identities keyed by label
type Wallet struct {
	store Store
}

// New creates a wallet over the given backing store
func New(store Store) *Wallet {
	return &Wallet{store: store}
}

// Put stores an identity under the given label, replacing any identity
// already stored there
func (w *Wallet) Put(label string, id *X509Identity) error {
	data, err := id.toJSON()
	if err != nil {
		return caerrors.NewWalletError("Failed to encode identity '%s': %s", label, err)
	}
	if err := w.store.Put(label, data); err != nil {
		return caerrors.NewWalletError("Failed to store identity '%s': %s", label, err)
	}
	return nil
}

// Get retrieves the identity stored under the given label. ErrNotFound from
// the store is passed through so callers can distinguish absence from
// failure.
func (w *Wallet) Get(label string) (*X509Identity, error) {
	data, err := w.store.Get(label)
	if err == ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, caerrors.NewWalletError("Failed to load identity '%s': %s", label, err)
	}
	return identityFromJSON(data)
}

// Exists reports whether an identity is stored under the given label
func (w *Wallet) Exists(label string) (bool, error) {
	exists, err := w.store.Exists(label)
	if err != nil {
		return false, caerrors.NewWalletError("Failed to query identity '%s': %s", label, err)
	}
	return exists, nil
}

// Remove deletes the identity stored under the given label. Removing an
// absent label is not an error.
func (w *Wallet) Remove(label string) error {
	err := w.store.Remove(label)
	if err != nil && err != ErrNotFound {
		return caerrors.NewWalletError("Failed to remove identity '%s': %s", label, err)
	}
	return nil
}

// List returns the labels of all stored identities
func (w *Wallet) List() ([]string, error) {
	labels, err := w.store.List()
	if err != nil {
		return nil, caerrors.NewWalletError("Failed to list identities: %s", err)
	}
	return labels, nil
}

// Close releases the backing store's resources if it holds any
func (w *Wallet) Close() error {
	if closer, ok := w.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
