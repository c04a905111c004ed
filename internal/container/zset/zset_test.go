package zset

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReportsNewOnly(t *testing.T) {
	z := New()
	assert.True(t, z.Add("a", 1))
	assert.False(t, z.Add("a", 1)) // unchanged score
	assert.False(t, z.Add("a", 2)) // score updated, still not new
	assert.True(t, z.Add("b", 3))
}

func TestRankOrdersByScoreThenMember(t *testing.T) {
	z := New()
	z.Add("charlie", 3)
	z.Add("alpha", 1)
	z.Add("bravo", 1)

	rank, ok := z.Rank("alpha")
	require.True(t, ok)
	assert.Equal(t, 0, rank)

	rank, ok = z.Rank("bravo")
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	rank, ok = z.Rank("charlie")
	require.True(t, ok)
	assert.Equal(t, 2, rank)
}

func TestRemoveDrainsEmptyBucket(t *testing.T) {
	z := New()
	z.Add("only", 5)
	require.True(t, z.Rem("only"))
	assert.False(t, z.Rem("only"))
	assert.Equal(t, 0, z.Len())
}

func TestRangeByRankNegative(t *testing.T) {
	z := New()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("c", 3)
	got := z.RangeByRank(-2, -1)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}

func TestRangeByScore(t *testing.T) {
	z := New()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("c", 3)
	got := z.RangeByScore(1.5, 3)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}

func TestPopMinMax(t *testing.T) {
	z := New()
	z.Add("low", 1)
	z.Add("high", 10)

	m, ok := z.PopMin()
	require.True(t, ok)
	assert.Equal(t, "low", m.Name)

	m, ok = z.PopMax()
	require.True(t, ok)
	assert.Equal(t, "high", m.Name)

	_, ok = z.PopMin()
	assert.False(t, ok)
}

func TestScoreUpdateMovesRank(t *testing.T) {
	z := New()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("a", 5) // move a above b
	rank, _ := z.Rank("b")
	assert.Equal(t, 0, rank, "unexpected rank ordering:\n%s", spew.Sdump(z.RangeByRank(0, -1)))
	rank, _ = z.Rank("a")
	assert.Equal(t, 1, rank, "unexpected rank ordering:\n%s", spew.Sdump(z.RangeByRank(0, -1)))
}
