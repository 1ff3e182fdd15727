// Package repo implements the persistence layer. This file provides the
// global SettingsStore, a small badger key-value database shared by every
// chat (e.g. the reply image file id). Values never expire.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SettingImageFileID is the key of the reply image (Telegram file id).
const SettingImageFileID = "image_file_id"

// SettingsStore is a process-wide key-value store. Badger serializes writes
// internally and gives every read a consistent snapshot, so the store needs
// no extra locking.
type SettingsStore struct {
	db *badger.DB
}

// OpenSettings opens (or creates) the settings database in dir. Errors wrap
// ErrConfiguration.
func OpenSettings(dir string) (*SettingsStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: empty settings path", ErrConfiguration)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create settings dir: %v", ErrConfiguration, err)
	}

	opts := badger.DefaultOptions(dir)
	// A handful of short keys: keep the memory footprint small.
	opts.MemTableSize = 8 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.BlockCacheSize = 8 << 20
	opts.IndexCacheSize = 8 << 20
	opts.NumMemtables = 2
	opts.NumCompactors = 2
	opts.SyncWrites = true
	opts.Logger = badgerLogger{l: log.With().Str("component", "badger").Logger()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open settings: %v", ErrConfiguration, err)
	}
	return &SettingsStore{db: db}, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *SettingsStore) Get(_ context.Context, key string) (string, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", storageErr("get setting "+key, 0, err)
	}
	return string(val), nil
}

// Set upserts key to value.
func (s *SettingsStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return errors.New("settings: empty key")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	return storageErr("set setting "+key, 0, err)
}

// Close flushes and closes the database.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.l.Error().Msgf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.l.Warn().Msgf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.l.Debug().Msgf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.l.Trace().Msgf(strings.TrimSpace(f), v...) }
