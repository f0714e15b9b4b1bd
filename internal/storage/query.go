package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Op is a comparison or grouping operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpLt  Op = "lt"
	OpGt  Op = "gt"
	OpAnd Op = "and"
	OpOr  Op = "or"
)

// Condition filters records. Backends may translate the concrete types below into their own
// query language; Match is the reference semantics.
type Condition interface {
	Match(r *Record) bool
}

// Compare tests a single data field against Value.
type Compare struct {
	Op    Op
	Field string
	Value any
}

// Group combines conditions. An empty And matches everything, an empty Or nothing.
type Group struct {
	Op    Op
	Conds []Condition
}

func Eq(field string, value any) Compare { return Compare{Op: OpEq, Field: field, Value: value} }
func Ne(field string, value any) Compare { return Compare{Op: OpNe, Field: field, Value: value} }
func Lt(field string, value any) Compare { return Compare{Op: OpLt, Field: field, Value: value} }
func Gt(field string, value any) Compare { return Compare{Op: OpGt, Field: field, Value: value} }

func And(conds ...Condition) Group { return Group{Op: OpAnd, Conds: conds} }
func Or(conds ...Condition) Group  { return Group{Op: OpOr, Conds: conds} }

// Match implements Condition. Numbers compare numerically whatever their Go type; other
// values compare by their string form. A missing field only satisfies Ne.
func (c Compare) Match(r *Record) bool {
	got, ok := r.Data[c.Field]
	if !ok {
		return c.Op == OpNe
	}
	cmp := compare(got, c.Value)
	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpGt:
		return cmp > 0
	}
	return false
}

func (g Group) Match(r *Record) bool {
	switch g.Op {
	case OpAnd:
		for _, c := range g.Conds {
			if !c.Match(r) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range g.Conds {
			if c.Match(r) {
				return true
			}
		}
		return false
	}
	return false
}

func compare(a, b any) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

// IsNumber reports whether v is one of the numeric types toFloat understands.
func IsNumber(v any) bool {
	_, ok := toFloat(v)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}
