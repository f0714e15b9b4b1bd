// Package filestore implements storage.Client on top of the JSON datastore. Records of one
// type live under a single datastore key as an ordered list.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keshon/orator/datastore"
	"github.com/keshon/orator/internal/storage"
)

const keyPrefix = "records/"

type Store struct {
	ds  *datastore.DataStore
	now func() time.Time
}

var _ storage.Client = (*Store)(nil)

// Open opens (or creates) the datastore file at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	cfg := datastore.DefaultConfig(path)
	cfg.Logger = log
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return &Store{ds: ds, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.ds.Close()
}

func (s *Store) Get(ctx context.Context, q storage.Query) (*storage.Record, error) {
	recs, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, storage.ErrNotFound
	}
	return recs[0], nil
}

func (s *Store) Find(_ context.Context, q storage.Query) ([]*storage.Record, error) {
	v, _ := s.ds.Get(keyPrefix + q.Type)
	recs, err := decode(v)
	if err != nil {
		return nil, err
	}
	var out []*storage.Record
	for _, r := range recs {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Add(_ context.Context, typ string, data map[string]any) (*storage.Record, error) {
	now := s.now()
	rec := (&storage.Record{
		ID:        uuid.NewString(),
		Type:      typ,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}).Clone()

	err := s.ds.Update(keyPrefix+typ, func(cur any) (any, error) {
		recs, err := decode(cur)
		if err != nil {
			return nil, err
		}
		return append(recs, rec), nil
	})
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (s *Store) Update(_ context.Context, r *storage.Record) (*storage.Record, error) {
	var updated *storage.Record
	err := s.ds.Update(keyPrefix+r.Type, func(cur any) (any, error) {
		recs, err := decode(cur)
		if err != nil {
			return nil, err
		}
		for i, old := range recs {
			if old.ID == r.ID {
				updated = r.Clone()
				updated.CreatedAt = old.CreatedAt
				updated.UpdatedAt = s.now()
				recs[i] = updated
				return recs, nil
			}
		}
		return nil, storage.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *Store) Delete(_ context.Context, r *storage.Record) error {
	return s.ds.Update(keyPrefix+r.Type, func(cur any) (any, error) {
		recs, err := decode(cur)
		if err != nil {
			return nil, err
		}
		for i, old := range recs {
			if old.ID == r.ID {
				recs = append(recs[:i], recs[i+1:]...)
				if len(recs) == 0 {
					return nil, nil
				}
				return recs, nil
			}
		}
		return nil, storage.ErrNotFound
	})
}

// decode turns whatever the datastore holds (typed on first write, generic JSON after a
// reload) into fresh record copies.
func decode(v any) ([]*storage.Record, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error marshalling records: %w", err)
	}
	var recs []*storage.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("error unmarshalling records: %w", err)
	}
	for _, r := range recs {
		if r.Data == nil {
			r.Data = map[string]any{}
		}
	}
	return recs, nil
}
