// Package resp implements the RESP wire codec: frame parsing for inbound
// requests and reply serialization for outbound responses, as specified in
// §4.A. Requests are always arrays of bulk strings; replies may be any RESP
// type, including nested arrays and a raw-bulk variant (no trailing CRLF)
// used for RDB transfer during replication.
package resp

// Kind identifies the wire representation of a Message.
type Kind int

const (
	KindSimple Kind = iota
	KindError
	KindInteger
	KindBulk
	KindNilBulk
	KindArray
	KindNilArray
	KindRawBulk   // "$<len>\r\n<bytes>" with no trailing CRLF (RDB transfer)
	KindRaw       // bytes embedded verbatim, no framing added at all
)

// Message is a reply value. Only the fields relevant to Kind are populated.
type Message struct {
	Kind  Kind
	Str   string
	Int   int64
	Bulk  []byte
	Items []*Message
	Raw   []byte
}

func Simple(s string) *Message { return &Message{Kind: KindSimple, Str: s} }
func Error(s string) *Message  { return &Message{Kind: KindError, Str: s} }
func Integer(n int64) *Message { return &Message{Kind: KindInteger, Int: n} }
func Bulk(b []byte) *Message   { return &Message{Kind: KindBulk, Bulk: b} }
func BulkString(s string) *Message { return &Message{Kind: KindBulk, Bulk: []byte(s)} }
func NilBulk() *Message        { return &Message{Kind: KindNilBulk} }
func NilArray() *Message       { return &Message{Kind: KindNilArray} }
func Array(items ...*Message) *Message { return &Message{Kind: KindArray, Items: items} }
func ArrayOf(items []*Message) *Message { return &Message{Kind: KindArray, Items: items} }

// RawBulk frames b as "$<len>\r\n<b>" without a trailing CRLF, used to embed
// the full-resync RDB payload into the reply stream.
func RawBulk(b []byte) *Message { return &Message{Kind: KindRawBulk, Raw: b} }

// Preformatted wraps an already-encoded buffer to be embedded verbatim
// inside an array, supporting arrays-of-preformed-buffers replies.
func Preformatted(b []byte) *Message { return &Message{Kind: KindRaw, Raw: b} }

var OK = Simple("OK")
