// Package store persists events in a bbolt file. It is the storage behind
// the event-persistence HTTP API.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	appLog "tzcal/internal/log"
	"tzcal/internal/model"
)

// ErrNotFound is returned when no event has the requested id.
var ErrNotFound = errors.New("event not found")

var (
	// eventsBucket maps an insertion sequence (big-endian) to the event JSON,
	// so a cursor walk yields creation order.
	eventsBucket = []byte("events")
	// idsBucket maps event id to its sequence key.
	idsBucket = []byte("ids")
)

// Store is a bbolt-backed event store.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{eventsBucket, idsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("unable to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	appLog.Info("event store opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// List returns all events in creation order.
func (s *Store) List(_ context.Context) ([]model.Event, error) {
	events := make([]model.Event, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(eventsBucket).ForEach(func(k, v []byte) error {
			var ev model.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				// Keep serving the rest; a corrupt record must not hide the others.
				appLog.Error("store: skipping undecodable event", err, "key", binary.BigEndian.Uint64(k))
				return nil
			}
			events = append(events, ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Get returns the event with id.
func (s *Store) Get(_ context.Context, id string) (model.Event, error) {
	var ev model.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(idsBucket).Get([]byte(id))
		if key == nil {
			return ErrNotFound
		}
		raw := tx.Bucket(eventsBucket).Get(key)
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &ev)
	})
	return ev, err
}

// Create resolves d into absolute instants, assigns a new id and stores it.
// Draft errors from model.Draft.Resolve are returned as is.
func (s *Store) Create(ctx context.Context, d model.Draft) (model.Event, error) {
	ev, err := d.Resolve()
	if err != nil {
		return model.Event{}, err
	}
	ev.ID = uuid.NewString()
	if err := s.Put(ctx, ev); err != nil {
		return model.Event{}, err
	}
	appLog.Info("event created", "id", ev.ID, "title", ev.Title)
	return ev, nil
}

// Put stores ev, replacing an existing event with the same id in place.
func (s *Store) Put(_ context.Context, ev model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		events := tx.Bucket(eventsBucket)
		ids := tx.Bucket(idsBucket)

		key := ids.Get([]byte(ev.ID))
		if key == nil {
			seq, err := events.NextSequence()
			if err != nil {
				return err
			}
			key = make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)
			if err := ids.Put([]byte(ev.ID), key); err != nil {
				return err
			}
		} else {
			// bbolt values are only valid inside the transaction.
			key = append([]byte(nil), key...)
		}
		return events.Put(key, raw)
	})
}

// Delete removes the event with id.
func (s *Store) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		ids := tx.Bucket(idsBucket)
		key := ids.Get([]byte(id))
		if key == nil {
			return ErrNotFound
		}
		key = append([]byte(nil), key...)
		if err := tx.Bucket(eventsBucket).Delete(key); err != nil {
			return err
		}
		return ids.Delete([]byte(id))
	})
	if err != nil {
		return err
	}
	appLog.Info("event deleted", "id", id)
	return nil
}
