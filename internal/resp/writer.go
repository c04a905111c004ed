package resp

import (
	"bufio"
	"strconv"
)

// encode serializes m into w without flushing.
func encode(w *bufio.Writer, m *Message) error {
	switch m.Kind {
	case KindSimple:
		w.WriteByte('+')
		w.WriteString(m.Str)
		w.WriteString("\r\n")
	case KindError:
		w.WriteByte('-')
		w.WriteString(m.Str)
		w.WriteString("\r\n")
	case KindInteger:
		w.WriteByte(':')
		w.WriteString(strconv.FormatInt(m.Int, 10))
		w.WriteString("\r\n")
	case KindBulk:
		w.WriteByte('$')
		w.WriteString(strconv.Itoa(len(m.Bulk)))
		w.WriteString("\r\n")
		w.Write(m.Bulk)
		w.WriteString("\r\n")
	case KindNilBulk:
		w.WriteString("$-1\r\n")
	case KindNilArray:
		w.WriteString("*-1\r\n")
	case KindArray:
		w.WriteByte('*')
		w.WriteString(strconv.Itoa(len(m.Items)))
		w.WriteString("\r\n")
		for _, it := range m.Items {
			if err := encode(w, it); err != nil {
				return err
			}
		}
	case KindRawBulk:
		w.WriteByte('$')
		w.WriteString(strconv.Itoa(len(m.Raw)))
		w.WriteString("\r\n")
		w.Write(m.Raw)
		// no trailing CRLF, per §4.A / §6
	case KindRaw:
		w.Write(m.Raw)
	}
	return nil
}

// Encode serializes m into w and flushes it onto the connection.
func Encode(w *bufio.Writer, m *Message) error {
	if err := encode(w, m); err != nil {
		return err
	}
	return w.Flush()
}

// EncodeNoFlush serializes m into w without flushing, so several messages
// (e.g. the replication handshake's multi-line preamble) can be batched into
// one syscall with a single trailing Flush.
func EncodeNoFlush(w *bufio.Writer, m *Message) error {
	return encode(w, m)
}

// EncodeCommand renders a client-style request array of bulk strings and
// flushes it, used to build the replica's outbound handshake frames.
// Propagation and AOF append use EncodeCommandToBytes instead.
func EncodeCommand(w *bufio.Writer, args [][]byte) error {
	w.WriteByte('*')
	w.WriteString(strconv.Itoa(len(args)))
	w.WriteString("\r\n")
	for _, a := range args {
		w.WriteByte('$')
		w.WriteString(strconv.Itoa(len(a)))
		w.WriteString("\r\n")
		w.Write(a)
		w.WriteString("\r\n")
	}
	return w.Flush()
}

// EncodeCommandToBytes renders a command array without touching a
// connection, for backlog/AOF storage.
func EncodeCommandToBytes(args [][]byte) []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, '\r', '\n')
	for _, a := range args {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(a)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, a...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}
