package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edirooss/vredis/internal/container/list"
)

type recordingSink struct {
	mu      sync.Mutex
	added   []string
	removed []string
}

func (r *recordingSink) DataAdded(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, key)
}

func (r *recordingSink) DataRemoved(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, key)
}

func newTestStore(nowFn func() int64, sink EventSink) *Store {
	if sink == nil {
		sink = &recordingSink{}
	}
	return New(sink, nowFn)
}

func TestPutAndGetValid(t *testing.T) {
	now := int64(1000)
	s := newTestStore(func() int64 { return now }, nil)

	s.Put("k", NewString([]byte("v"), Never()))
	e, ok := s.GetValid("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(e.Str))
}

func TestGetValidReapsExpiredEntry(t *testing.T) {
	now := int64(1000)
	sink := &recordingSink{}
	s := newTestStore(func() int64 { return now }, sink)

	s.Put("k", NewString([]byte("v"), At(1500)))
	now = 1500
	_, ok := s.GetValid("k")
	assert.False(t, ok)
	assert.False(t, s.Exists("k"))
	assert.Contains(t, sink.removed, "k")
}

func TestDeleteReportsWhetherRemoved(t *testing.T) {
	s := newTestStore(func() int64 { return 0 }, nil)
	s.Put("k", NewString([]byte("v"), Never()))
	assert.True(t, s.Delete("k"))
	assert.False(t, s.Delete("k"))
}

func TestFlushRemovesEverything(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStore(func() int64 { return 0 }, sink)
	s.Put("a", NewString([]byte("1"), Never()))
	s.Put("b", NewString([]byte("2"), Never()))
	s.Flush()
	assert.False(t, s.Exists("a"))
	assert.False(t, s.Exists("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, sink.removed)
}

func TestVersionIncrementsOnMutation(t *testing.T) {
	s := newTestStore(func() int64 { return 0 }, nil)
	v0 := s.Version("k")
	s.Put("k", NewString([]byte("v"), Never()))
	v1 := s.Version("k")
	assert.Greater(t, v1, v0)
	s.Delete("k")
	assert.Greater(t, s.Version("k"), v1)
}

func TestTypeAndKeysGlob(t *testing.T) {
	s := newTestStore(func() int64 { return 0 }, nil)
	s.Put("foo", NewString([]byte("x"), Never()))
	s.Put("foobar", NewList(list.New(), Never()))

	assert.Equal(t, "string", s.Type("foo"))
	assert.Equal(t, "", s.Type("missing"))

	got := s.Keys("foo*")
	assert.ElementsMatch(t, []string{"foo", "foobar"}, got)

	got = s.Keys("foo?ar")
	assert.ElementsMatch(t, []string{"foobar"}, got)
}

func TestComputeCreateMutateDelete(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStore(func() int64 { return 0 }, sink)

	// create
	_, mutated, err := s.Compute("mylist", func(cur *Entry, exists bool) (*Entry, bool, error) {
		require.False(t, exists)
		l := list.New()
		l.PushTail([]byte("a"))
		return NewList(l, Never()), true, nil
	})
	require.NoError(t, err)
	require.True(t, mutated)
	assert.Contains(t, sink.added, "mylist")

	// mutate in place (append another element), still mutated
	_, mutated, err = s.Compute("mylist", func(cur *Entry, exists bool) (*Entry, bool, error) {
		require.True(t, exists)
		cur.List.PushTail([]byte("b"))
		return cur, true, nil
	})
	require.NoError(t, err)
	require.True(t, mutated)

	e, ok := s.GetValid("mylist")
	require.True(t, ok)
	assert.Equal(t, 2, e.List.Len())

	// drain to empty: Compute must auto-delete the now-empty container
	_, mutated, err = s.Compute("mylist", func(cur *Entry, exists bool) (*Entry, bool, error) {
		cur.List.PopHead()
		cur.List.PopHead()
		return cur, true, nil
	})
	require.NoError(t, err)
	require.True(t, mutated)
	assert.False(t, s.Exists("mylist"))
	assert.Contains(t, sink.removed, "mylist")
}

func TestComputeNoOpDoesNotBumpVersionOrFireEvent(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStore(func() int64 { return 0 }, sink)
	s.Put("k", NewString([]byte("v"), Never()))
	before := s.Version("k")

	_, mutated, err := s.Compute("k", func(cur *Entry, exists bool) (*Entry, bool, error) {
		return cur, false, nil
	})
	require.NoError(t, err)
	assert.False(t, mutated)
	assert.Equal(t, before, s.Version("k"))
}

func TestTypedAccessorsWrongTypeSemantics(t *testing.T) {
	s := newTestStore(func() int64 { return 0 }, nil)
	s.Put("k", NewString([]byte("v"), Never()))

	// read of wrong type: neutral, no error
	_, ok, err := s.GetList("k", false)
	require.NoError(t, err)
	assert.False(t, ok)

	// write of wrong type: error
	_, ok, err = s.GetList("k", true)
	assert.Error(t, err)
	assert.False(t, ok)

	// correct type read
	v, ok, err := s.GetString("k", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestSweepExpiredReapsAndReports(t *testing.T) {
	now := int64(1000)
	sink := &recordingSink{}
	s := newTestStore(func() int64 { return now }, sink)

	s.Put("a", NewString([]byte("1"), At(1100)))
	s.Put("b", NewString([]byte("2"), Never()))
	now = 1200

	reaped := s.SweepExpired(10)
	assert.Equal(t, []string{"a"}, reaped)
	assert.False(t, s.Exists("a"))
	assert.True(t, s.Exists("b"))
	assert.Contains(t, sink.removed, "a")
}
