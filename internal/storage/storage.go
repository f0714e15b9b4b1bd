// Package storage defines the record-oriented persistence contract shared by guild settings,
// statuses and the command log. Backends live in the filestore and postgres subpackages.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotFound is returned by Get, Update and Delete when no record matches.
var ErrNotFound = errors.New("storage: record not found")

// Record is a typed bag of fields. Types group records like tables do.
type Record struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// String returns field as a string, or "" when absent.
func (r *Record) String(field string) string {
	v, ok := r.Data[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns field as an int, or 0 when absent or not numeric.
func (r *Record) Int(field string) int {
	f, ok := toFloat(r.Data[field])
	if !ok {
		if n, err := strconv.Atoi(r.String(field)); err == nil {
			return n
		}
		return 0
	}
	return int(f)
}

// Bool returns field as a bool.
func (r *Record) Bool(field string) bool {
	b, _ := r.Data[field].(bool)
	return b
}

// Clone returns a deep copy made through a JSON round trip, which also normalises numbers
// to float64 the way every backend returns them.
func (r *Record) Clone() *Record {
	raw, err := json.Marshal(r)
	if err != nil {
		cp := *r
		return &cp
	}
	var out Record
	if err := json.Unmarshal(raw, &out); err != nil {
		cp := *r
		return &cp
	}
	if out.Data == nil {
		out.Data = map[string]any{}
	}
	return &out
}

// Query selects records of one Type. A nil Where matches every record of that type.
type Query struct {
	Type  string
	Where Condition
}

// Matches reports whether r satisfies q.
func (q Query) Matches(r *Record) bool {
	if r.Type != q.Type {
		return false
	}
	return q.Where == nil || q.Where.Match(r)
}

// Client is the persistence contract consumed by the core. Find returns records in
// insertion order.
type Client interface {
	Get(ctx context.Context, q Query) (*Record, error)
	Find(ctx context.Context, q Query) ([]*Record, error)
	Add(ctx context.Context, typ string, data map[string]any) (*Record, error)
	Update(ctx context.Context, r *Record) (*Record, error)
	Delete(ctx context.Context, r *Record) error
	Close() error
}
