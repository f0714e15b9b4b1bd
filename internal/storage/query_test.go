package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditions(t *testing.T) {
	r := &Record{Type: "status", Data: map[string]any{
		"name":  "Overwatch",
		"type":  float64(0),
		"guild": "42",
	}}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"eq string", Eq("name", "Overwatch"), true},
		{"eq int against float", Eq("type", 0), true},
		{"eq mismatch", Eq("name", "Tetris"), false},
		{"ne", Ne("name", "Tetris"), true},
		{"ne missing field", Ne("missing", "x"), true},
		{"eq missing field", Eq("missing", "x"), false},
		{"lt numeric", Lt("type", 1), true},
		{"gt numeric", Gt("type", -1), true},
		{"lt missing", Lt("missing", 1), false},
		{"gt string", Gt("name", "Apex"), true},
		{"and", And(Eq("name", "Overwatch"), Eq("guild", "42")), true},
		{"and short", And(Eq("name", "Overwatch"), Eq("guild", "7")), false},
		{"or", Or(Eq("guild", "7"), Eq("type", 0)), true},
		{"empty and", And(), true},
		{"empty or", Or(), false},
		{"nested", Or(And(Eq("guild", "42"), Ne("type", 0)), Gt("type", 5)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Match(r))
		})
	}
}

func TestQuery_MatchesType(t *testing.T) {
	r := &Record{Type: "setting", Data: map[string]any{"key": "prefix"}}
	assert.True(t, Query{Type: "setting"}.Matches(r))
	assert.False(t, Query{Type: "status"}.Matches(r))
	assert.True(t, Query{Type: "setting", Where: Eq("key", "prefix")}.Matches(r))
}

func TestRecord_Accessors(t *testing.T) {
	r := &Record{Data: map[string]any{"n": 3, "s": "7", "b": true}}
	assert.Equal(t, 3, r.Int("n"))
	assert.Equal(t, 7, r.Int("s"))
	assert.Equal(t, 0, r.Int("missing"))
	assert.Equal(t, "3", r.String("n"))
	assert.True(t, r.Bool("b"))

	cp := r.Clone()
	cp.Data["s"] = "changed"
	assert.Equal(t, "7", r.String("s"))
	assert.Equal(t, float64(3), cp.Data["n"])
}
