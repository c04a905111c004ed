package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b(s string) []byte { return []byte(s) }

func TestPushPopOrder(t *testing.T) {
	l := New()
	l.PushTail(b("a"), b("b"), b("c"))
	require.Equal(t, 3, l.Len())

	v, ok := l.PopHead()
	require.True(t, ok)
	assert.Equal(t, "a", string(v))

	v, ok = l.PopTail()
	require.True(t, ok)
	assert.Equal(t, "c", string(v))

	assert.Equal(t, 1, l.Len())
}

func TestPushHeadOrderReversesArgs(t *testing.T) {
	l := New()
	l.PushHead(b("a"), b("b"), b("c"))
	// each successive element is pushed in front of the previous, so c ends
	// up at the head
	got := l.Range(0, -1)
	require.Len(t, got, 3)
	assert.Equal(t, "c", string(got[0]))
	assert.Equal(t, "b", string(got[1]))
	assert.Equal(t, "a", string(got[2]))
}

func TestPopNSpansMultipleNodes(t *testing.T) {
	l := New()
	vals := make([][]byte, 0, 200)
	for i := 0; i < 200; i++ {
		vals = append(vals, b(string(rune('a'+(i%26)))))
	}
	l.PushTail(vals...)
	require.Equal(t, 200, l.Len())

	popped := l.PopHeadN(150)
	assert.Len(t, popped, 150)
	assert.Equal(t, 50, l.Len())
	for i, v := range popped {
		assert.Equal(t, string(vals[i]), string(v))
	}
}

func TestPopTailNPreservesOrder(t *testing.T) {
	l := New()
	l.PushTail(b("1"), b("2"), b("3"), b("4"), b("5"))
	popped := l.PopTailN(3)
	require.Len(t, popped, 3)
	assert.Equal(t, []string{"3", "4", "5"}, toStrings(popped))
}

func TestRangeNegativeIndices(t *testing.T) {
	l := New()
	l.PushTail(b("0"), b("1"), b("2"), b("3"), b("4"))
	got := l.Range(-3, -1)
	assert.Equal(t, []string{"2", "3", "4"}, toStrings(got))
}

func TestRangeEmptyList(t *testing.T) {
	l := New()
	assert.Nil(t, l.Range(0, -1))
}

func TestPopUntilEmptyThenPushAgain(t *testing.T) {
	l := New()
	l.PushTail(b("x"))
	_, ok := l.PopHead()
	require.True(t, ok)
	_, ok = l.PopHead()
	require.False(t, ok)
	assert.Equal(t, 0, l.Len())

	l.PushTail(b("y"))
	v, ok := l.PopHead()
	require.True(t, ok)
	assert.Equal(t, "y", string(v))
}

func toStrings(vals [][]byte) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
