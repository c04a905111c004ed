package resp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeToString(t *testing.T, m *Message) string {
	t.Helper()
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, Encode(w, m))
	return buf.String()
}

func TestEncodeSimpleKinds(t *testing.T) {
	assert.Equal(t, "+OK\r\n", encodeToString(t, OK))
	assert.Equal(t, "-ERR boom\r\n", encodeToString(t, Error("ERR boom")))
	assert.Equal(t, ":42\r\n", encodeToString(t, Integer(42)))
	assert.Equal(t, "$3\r\nfoo\r\n", encodeToString(t, BulkString("foo")))
	assert.Equal(t, "$-1\r\n", encodeToString(t, NilBulk()))
	assert.Equal(t, "*-1\r\n", encodeToString(t, NilArray()))
}

func TestEncodeNestedArray(t *testing.T) {
	m := Array(BulkString("a"), Integer(1), ArrayOf(nil))
	assert.Equal(t, "*3\r\n$1\r\na\r\n:1\r\n*0\r\n", encodeToString(t, m))
}

func TestEncodeRawBulkHasNoTrailingCRLF(t *testing.T) {
	got := encodeToString(t, RawBulk([]byte("abc")))
	assert.Equal(t, "$3\r\nabc", got)
}

func TestDecoderRoundTrip(t *testing.T) {
	d := NewDecoder(0)
	d.Feed([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	args, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, [][]byte{[]byte("GET"), []byte("foo")}, args)
}

func TestDecoderNeedsMoreData(t *testing.T) {
	d := NewDecoder(0)
	d.Feed([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfo"))
	_, ok, err := d.Next()
	require.NoError(t, err)
	require.False(t, ok)

	d.Feed([]byte("o\r\n"))
	args, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "foo", string(args[1]))
}

func TestDecoderNilArrayRequest(t *testing.T) {
	d := NewDecoder(0)
	d.Feed([]byte("*-1\r\n"))
	args, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, args, 0)
}

func TestDecoderRejectsBadType(t *testing.T) {
	d := NewDecoder(0)
	d.Feed([]byte("+hello\r\n"))
	_, _, err := d.Next()
	assert.Error(t, err)
}

func TestDecoderEnforcesMaxBulkLen(t *testing.T) {
	d := NewDecoder(4)
	d.Feed([]byte("*1\r\n$10\r\n0123456789\r\n"))
	_, _, err := d.Next()
	assert.Error(t, err)
}

func TestDecoderCompactDropsConsumedPrefix(t *testing.T) {
	d := NewDecoder(0)
	d.Feed([]byte("*1\r\n$1\r\na\r\n*1\r\n$1\r\nb\r\n"))
	_, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	d.Compact()
	assert.Equal(t, "*1\r\n$1\r\nb\r\n", string(d.buf))
}
