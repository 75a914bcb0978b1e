package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"pegvault/storage"
)

// Manager adapts a raw storage.Database into the typed key-value surface the
// ledgers consume. Values are RLP encoded; list keys hold an RLP encoded
// [][]byte so appends stay cheap for small collections.
type Manager struct {
	db storage.Database
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key was present.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, fmt.Errorf("state: manager not initialised")
	}
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut encodes value and stores it under key, replacing any prior value.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, encoded)
}

// KVAppend appends the raw value to the list stored under key.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	var list [][]byte
	raw, err := m.db.Get(key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := rlp.DecodeBytes(raw, &list); err != nil {
			return fmt.Errorf("state: decode list %q: %w", key, err)
		}
	}
	list = append(list, value)
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return fmt.Errorf("state: encode list %q: %w", key, err)
	}
	return m.db.Put(key, encoded)
}

// KVGetList decodes the list stored under key into out (a *[][]byte). A
// missing key yields an empty list.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return fmt.Errorf("state: decode list %q: %w", key, err)
	}
	return nil
}
