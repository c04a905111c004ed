package resp

import (
	"fmt"
	"strconv"

	"github.com/edirooss/vredis/internal/errs"
)

// Decoder incrementally parses inbound request frames. Callers Feed bytes as
// they arrive from the socket and call Next in a loop until it reports
// needMore; the buffer is compactable via Compact so the next read can
// append contiguously instead of growing without bound.
//
// Requests are always arrays of bulk strings (§4.A); Decoder only accepts
// that shape. MaxBulkLen caps any single declared length (bulk payload or
// array arity) to guard against a hostile/garbled prefix.
type Decoder struct {
	buf        []byte
	pos        int
	MaxBulkLen int
}

func NewDecoder(maxBulkLen int) *Decoder {
	return &Decoder{MaxBulkLen: maxBulkLen}
}

// Feed appends newly-read bytes to the internal buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Compact drops the already-consumed prefix of the buffer.
func (d *Decoder) Compact() {
	if d.pos == 0 {
		return
	}
	n := copy(d.buf, d.buf[d.pos:])
	d.buf = d.buf[:n]
	d.pos = 0
}

// Buffered reports how many unconsumed bytes are currently held.
func (d *Decoder) Buffered() int { return len(d.buf) - d.pos }

// Next attempts to decode one complete request starting at the current
// cursor. If the buffer doesn't yet hold a full request it returns
// (nil, false, nil) and leaves the cursor untouched — the caller should Feed
// more bytes and retry. A malformed prefix (bad type byte, negative length
// other than -1, or a length exceeding MaxBulkLen) is a protocol error.
func (d *Decoder) Next() ([][]byte, bool, error) {
	start := d.pos
	args, ok, err := d.tryArray()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		d.pos = start
		return nil, false, nil
	}
	return args, true, nil
}

func (d *Decoder) tryArray() ([][]byte, bool, error) {
	line, ok := d.readLine()
	if !ok {
		return nil, false, nil
	}
	if len(line) == 0 || line[0] != '*' {
		return nil, false, fmt.Errorf("%w: expected '*', got %q", errs.ErrProtocol, firstByte(line))
	}
	n, err := parseLen(line[1:], d.MaxBulkLen)
	if err != nil {
		return nil, false, err
	}
	if n < 0 {
		// "*-1\r\n" nil array request: treated as an empty request, ignored by caller.
		return [][]byte{}, true, nil
	}

	args := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		bulk, ok, err := d.tryBulk()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		args = append(args, bulk)
	}
	return args, true, nil
}

func (d *Decoder) tryBulk() ([]byte, bool, error) {
	line, ok := d.readLine()
	if !ok {
		return nil, false, nil
	}
	if len(line) == 0 || line[0] != '$' {
		return nil, false, fmt.Errorf("%w: expected '$', got %q", errs.ErrProtocol, firstByte(line))
	}
	n, err := parseLen(line[1:], d.MaxBulkLen)
	if err != nil {
		return nil, false, err
	}
	if n < 0 {
		return nil, true, nil // $-1 nil bulk
	}
	if d.Buffered() < n+2 {
		return nil, false, nil
	}
	payload := d.buf[d.pos : d.pos+n]
	if d.buf[d.pos+n] != '\r' || d.buf[d.pos+n+1] != '\n' {
		return nil, false, fmt.Errorf("%w: bulk string missing CRLF terminator", errs.ErrProtocol)
	}
	out := make([]byte, n)
	copy(out, payload)
	d.pos += n + 2
	return out, true, nil
}

// readLine returns the bytes up to (not including) the next CRLF, advancing
// the cursor past it. Byte-safe: only the declared-length path reads bulk
// payloads, so a CRLF inside a bulk body never confuses line scanning here.
func (d *Decoder) readLine() ([]byte, bool) {
	for i := d.pos; i+1 < len(d.buf); i++ {
		if d.buf[i] == '\r' && d.buf[i+1] == '\n' {
			line := d.buf[d.pos:i]
			d.pos = i + 2
			return line, true
		}
	}
	return nil, false
}

func parseLen(b []byte, maxLen int) (int, error) {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid length %q", errs.ErrProtocol, b)
	}
	if n < -1 {
		return 0, fmt.Errorf("%w: negative length %d", errs.ErrProtocol, n)
	}
	if maxLen > 0 && n > maxLen {
		return 0, fmt.Errorf("%w: length %d exceeds configured cap %d", errs.ErrProtocol, n, maxLen)
	}
	return n, nil
}

func firstByte(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return string(b[0])
}
