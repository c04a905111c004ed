// Package store implements the typed key-value store (§4.B) and the expiry
// policy attached to every value (§4.D).
package store

import (
	"github.com/edirooss/vredis/internal/container/list"
	"github.com/edirooss/vredis/internal/container/stream"
	"github.com/edirooss/vredis/internal/container/zset"
)

// Kind tags which variant of StoredValue an Entry holds.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindStream
	KindZSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindStream:
		return "stream"
	case KindZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// Expiry is Never or AtEpochMillis(d); Never is a distinct state, not an
// infinite timestamp.
type Expiry struct {
	Never    bool
	AtMillis int64
}

func Never() Expiry { return Expiry{Never: true} }

func At(epochMillis int64) Expiry { return Expiry{AtMillis: epochMillis} }

// Expired reports whether the policy's deadline is at or before nowMillis.
func (e Expiry) Expired(nowMillis int64) bool {
	return !e.Never && nowMillis >= e.AtMillis
}

// Entry is the tagged variant over {String, List, Stream, SortedSet} paired
// with its expiry policy. Per-key version counters live in the Store, not
// in the Entry.
type Entry struct {
	Kind    Kind
	Str     []byte
	List    *list.List
	Stream  *stream.Stream
	ZSet    *zset.ZSet
	Expiry  Expiry
}

func NewString(b []byte, exp Expiry) *Entry {
	return &Entry{Kind: KindString, Str: b, Expiry: exp}
}

func NewList(l *list.List, exp Expiry) *Entry {
	return &Entry{Kind: KindList, List: l, Expiry: exp}
}

func NewStream(s *stream.Stream, exp Expiry) *Entry {
	return &Entry{Kind: KindStream, Stream: s, Expiry: exp}
}

func NewZSet(z *zset.ZSet, exp Expiry) *Entry {
	return &Entry{Kind: KindZSet, ZSet: z, Expiry: exp}
}

// Empty reports whether a container-typed entry has no elements left — such
// entries must never be retained in the store (§3 invariant).
func (e *Entry) Empty() bool {
	switch e.Kind {
	case KindList:
		return e.List.Len() == 0
	case KindZSet:
		return e.ZSet.Len() == 0
	case KindStream:
		return false // streams are never auto-pruned and may legitimately be empty
	default:
		return false
	}
}
