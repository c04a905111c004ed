// Package stream implements the append-only stream value (§3, §4.C): a
// sorted mapping from StreamId to StreamEntry that never prunes entries
// automatically.
package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edirooss/vredis/internal/errs"
)

// ID is a stream entry identifier, lexicographically ordered by (Ms, Seq).
type ID struct {
	Ms, Seq uint64
}

func (id ID) Less(o ID) bool {
	if id.Ms != o.Ms {
		return id.Ms < o.Ms
	}
	return id.Seq < o.Seq
}

func (id ID) Equal(o ID) bool { return id.Ms == o.Ms && id.Seq == o.Seq }
func (id ID) IsZero() bool    { return id.Ms == 0 && id.Seq == 0 }

func (id ID) String() string {
	return fmt.Sprintf("%d-%d", id.Ms, id.Seq)
}

var (
	// MinID is the absolute minimum id, denoted "-" in range queries.
	MinID = ID{0, 0}
	// MaxID is the absolute maximum id, denoted "+" in range queries.
	MaxID = ID{Ms: ^uint64(0), Seq: ^uint64(0)}
)

// Field is one ordered field/value pair of an entry.
type Field struct {
	Name, Value string
}

// Entry is a single stream record.
type Entry struct {
	ID     ID
	Fields []Field
}

// Stream is the append-only, id-ordered container. Entries are always
// appended in increasing id order, so a plain slice suffices — no
// background pruning is ever performed, per §3.
type Stream struct {
	entries []Entry
	top     ID
	hasTop  bool
}

func New() *Stream { return &Stream{} }

func (s *Stream) Len() int { return len(s.entries) }

// LastID returns the id of the most recently appended entry.
func (s *Stream) LastID() (ID, bool) { return s.top, s.hasTop }

// ResolveID computes the concrete id for a requested id spec against the
// current top, without mutating the stream. now is the caller-supplied
// current epoch millis, used only for "*".
func (s *Stream) ResolveID(spec string, now uint64) (ID, error) {
	switch {
	case spec == "*":
		return s.nextAuto(now), nil
	case strings.HasSuffix(spec, "-*"):
		msStr := strings.TrimSuffix(spec, "-*")
		ms, err := strconv.ParseUint(msStr, 10, 64)
		if err != nil {
			return ID{}, errs.Err("Invalid stream ID specified as stream command argument")
		}
		return s.nextSeqForMs(ms)
	default:
		id, err := ParseExplicitID(spec)
		if err != nil {
			return ID{}, err
		}
		if id.IsZero() {
			return ID{}, errs.ErrFor(errs.ErrXAddZero)
		}
		if s.hasTop && !s.top.Less(id) {
			return ID{}, errs.ErrFor(errs.ErrXAddTopOrEqual)
		}
		return id, nil
	}
}

func (s *Stream) nextAuto(nowMs uint64) ID {
	ms := nowMs
	seq := uint64(0)
	if s.hasTop && ms <= s.top.Ms {
		ms = s.top.Ms
		seq = s.top.Seq + 1
	}
	if ms == 0 && seq == 0 {
		seq = 1 // 0-0 is forbidden; bump to the first valid id in ms 0
	}
	return ID{Ms: ms, Seq: seq}
}

func (s *Stream) nextSeqForMs(ms uint64) (ID, error) {
	var seq uint64
	switch {
	case s.hasTop && ms == s.top.Ms:
		seq = s.top.Seq + 1
	case s.hasTop && ms < s.top.Ms:
		return ID{}, errs.ErrFor(errs.ErrXAddTopOrEqual)
	default:
		seq = 0
	}
	id := ID{Ms: ms, Seq: seq}
	if id.IsZero() {
		seq = 1
		id = ID{Ms: ms, Seq: seq}
	}
	return id, nil
}

// ParseExplicitID parses a literal "<ms>-<seq>" id.
func ParseExplicitID(spec string) (ID, error) {
	parts := strings.SplitN(spec, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return ID{}, errs.Err("Invalid stream ID specified as stream command argument")
	}
	if len(parts) == 1 {
		return ID{Ms: ms, Seq: 0}, nil
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return ID{}, errs.Err("Invalid stream ID specified as stream command argument")
	}
	return ID{Ms: ms, Seq: seq}, nil
}

// ParseRangeID parses a range endpoint: "-" => MinID, "+" => MaxID, and a
// bare ms gets seq bareSeq. Callers pass 0 for the start side and the max
// seq for the end side, so a bare ms covers that whole millisecond.
func ParseRangeID(spec string, bareSeq uint64) (ID, error) {
	switch spec {
	case "-":
		return MinID, nil
	case "+":
		return MaxID, nil
	default:
		parts := strings.SplitN(spec, "-", 2)
		ms, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return ID{}, errs.Err("Invalid stream ID specified as stream command argument")
		}
		if len(parts) == 1 {
			return ID{Ms: ms, Seq: bareSeq}, nil
		}
		seq, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return ID{}, errs.Err("Invalid stream ID specified as stream command argument")
		}
		return ID{Ms: ms, Seq: seq}, nil
	}
}

// Append validates id against the current top (must be strictly greater,
// and never 0-0) and appends the entry.
func (s *Stream) Append(id ID, fields []Field) error {
	if id.IsZero() {
		return errs.ErrFor(errs.ErrXAddZero)
	}
	if s.hasTop && !s.top.Less(id) {
		return errs.ErrFor(errs.ErrXAddTopOrEqual)
	}
	s.entries = append(s.entries, Entry{ID: id, Fields: fields})
	s.top = id
	s.hasTop = true
	return nil
}

// Range returns entries with id in [start, end] inclusive.
func (s *Stream) Range(start, end ID, count int) []Entry {
	out := make([]Entry, 0)
	for _, e := range s.entries {
		if e.ID.Less(start) {
			continue
		}
		if end.Less(e.ID) {
			break
		}
		out = append(out, e)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}

// After returns entries with id strictly greater than after, used by
// XREAD to resume from a client's last-observed id.
func (s *Stream) After(after ID, count int) []Entry {
	out := make([]Entry, 0)
	for _, e := range s.entries {
		if !after.Less(e.ID) {
			continue
		}
		out = append(out, e)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}
