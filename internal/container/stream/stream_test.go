package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIDAuto(t *testing.T) {
	s := New()
	id, err := s.ResolveID("*", 100)
	require.NoError(t, err)
	assert.Equal(t, ID{Ms: 100, Seq: 0}, id)
	require.NoError(t, s.Append(id, nil))

	id2, err := s.ResolveID("*", 100) // same ms, bump seq
	require.NoError(t, err)
	assert.Equal(t, ID{Ms: 100, Seq: 1}, id2)
}

func TestResolveIDSeqWildcard(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(ID{Ms: 5, Seq: 0}, nil))
	id, err := s.ResolveID("5-*", 0)
	require.NoError(t, err)
	assert.Equal(t, ID{Ms: 5, Seq: 1}, id)
}

func TestResolveIDRejectsZero(t *testing.T) {
	s := New()
	_, err := s.ResolveID("0-0", 0)
	assert.ErrorContains(t, err, "0-0")
}

func TestResolveIDRejectsNonIncreasing(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(ID{Ms: 10, Seq: 0}, nil))
	_, err := s.ResolveID("10-0", 0)
	assert.Error(t, err)
	_, err = s.ResolveID("9-5", 0)
	assert.Error(t, err)
}

func TestAppendRejectsOutOfOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(ID{Ms: 1, Seq: 0}, nil))
	err := s.Append(ID{Ms: 1, Seq: 0}, nil)
	assert.Error(t, err)
}

func TestRangeInclusive(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(ID{Ms: 1, Seq: 0}, []Field{{Name: "k", Value: "1"}}))
	require.NoError(t, s.Append(ID{Ms: 2, Seq: 0}, []Field{{Name: "k", Value: "2"}}))
	require.NoError(t, s.Append(ID{Ms: 3, Seq: 0}, []Field{{Name: "k", Value: "3"}}))

	got := s.Range(ID{Ms: 2, Seq: 0}, MaxID, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Fields[0].Value)
	assert.Equal(t, "3", got[1].Fields[0].Value)
}

func TestAfterIsStrictlyGreater(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(ID{Ms: 1, Seq: 0}, nil))
	require.NoError(t, s.Append(ID{Ms: 2, Seq: 0}, nil))

	got := s.After(ID{Ms: 1, Seq: 0}, 0)
	require.Len(t, got, 1)
	assert.Equal(t, ID{Ms: 2, Seq: 0}, got[0].ID)
}

func TestParseRangeIDShortcuts(t *testing.T) {
	id, err := ParseRangeID("-", 0)
	require.NoError(t, err)
	assert.Equal(t, MinID, id)

	id, err = ParseRangeID("+", 0)
	require.NoError(t, err)
	assert.Equal(t, MaxID, id)
}
