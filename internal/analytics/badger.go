// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analytics

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const badgerPrefix = "views/"

// BadgerStore keeps big-endian uint64 counters under views/<video>/<day>.
// Badger holds a directory lock, so the mutex serializes every writer.
type BadgerStore struct {
	mu sync.Mutex
	db *badger.DB
}

// OpenBadger opens or creates the database directory at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger analytics: open %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(video, day string) []byte {
	return []byte(badgerPrefix + video + "/" + day)
}

func decodeCount(val []byte) (int64, error) {
	if len(val) != 8 {
		return 0, fmt.Errorf("badger analytics: counter has %d bytes", len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

func (s *BadgerStore) increment(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var n int64
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				n, err = decodeCount(val)
				return err
			}); err != nil {
				return err
			}
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(n+1))
		return txn.Set(key, buf)
	})
}

func (s *BadgerStore) Track(ctx context.Context, video string, at time.Time) error {
	if err := checkVideo(video); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.increment(badgerKey(video, Day(at))); err != nil {
		return fmt.Errorf("badger analytics: track: %w", err)
	}
	return nil
}

// scan visits every counter under prefix.
func (s *BadgerStore) scan(prefix string, fn func(key string, n int64)) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				n, err := decodeCount(val)
				if err != nil {
					return err
				}
				fn(key, n)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) Stats(_ context.Context, video string) (Stats, error) {
	st := emptyStats(video)
	prefix := badgerPrefix + video + "/"
	err := s.scan(prefix, func(key string, n int64) {
		st.DailyViews[strings.TrimPrefix(key, prefix)] = n
		st.TotalViews += n
	})
	if err != nil {
		return Stats{}, fmt.Errorf("badger analytics: stats: %w", err)
	}
	return st, nil
}

func (s *BadgerStore) Total(context.Context) (int64, error) {
	var total int64
	if err := s.scan(badgerPrefix, func(_ string, n int64) { total += n }); err != nil {
		return 0, fmt.Errorf("badger analytics: total: %w", err)
	}
	return total, nil
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
