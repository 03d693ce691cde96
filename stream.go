package peadb

import (
	"bytes"
	"errors"
	"math"
	"sort"
	"strconv"

	"github.com/alsatianco/peadb/resp"
)

// streamID is the (ms, sequence) entry id. Ids are strictly increasing per
// key.
type streamID struct {
	ms  uint64
	seq uint64
}

var streamIDZero = streamID{}
var streamIDMax = streamID{math.MaxUint64, math.MaxUint64}

func (a streamID) cmp(b streamID) int {
	switch {
	case a.ms < b.ms:
		return -1
	case a.ms > b.ms:
		return 1
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

func (a streamID) next() streamID {
	if a.seq == math.MaxUint64 {
		return streamID{a.ms + 1, 0}
	}
	return streamID{a.ms, a.seq + 1}
}

func (a streamID) prev() streamID {
	if a.seq == 0 {
		return streamID{a.ms - 1, math.MaxUint64}
	}
	return streamID{a.ms, a.seq - 1}
}

func (a streamID) String() string {
	return strconv.FormatUint(a.ms, 10) + "-" + strconv.FormatUint(a.seq, 10)
}

var errInvalidStreamID = errors.New("Invalid stream ID specified as stream command argument")

// parseStreamID parses "ms" or "ms-seq". When the seq part is omitted it
// defaults to defSeq ("-" range edges use 0, "+" edges use max).
func parseStreamID(b []byte, defSeq uint64) (streamID, error) {
	dash := bytes.IndexByte(b, '-')
	if dash == 0 {
		return streamID{}, errInvalidStreamID
	}
	var msPart, seqPart []byte
	if dash < 0 {
		msPart = b
	} else {
		msPart, seqPart = b[:dash], b[dash+1:]
	}
	ms, ok := resp.ParseUint(msPart)
	if !ok {
		return streamID{}, errInvalidStreamID
	}
	if dash < 0 {
		return streamID{ms, defSeq}, nil
	}
	seq, ok := resp.ParseUint(seqPart)
	if !ok {
		return streamID{}, errInvalidStreamID
	}
	return streamID{ms, seq}, nil
}

type streamEntry struct {
	id     streamID
	fields [][]byte // flattened field/value pairs
}

type pelEntry struct {
	id            streamID
	consumer      string
	deliveryTime  int64
	deliveryCount int64
}

type streamGroup struct {
	lastDelivered streamID
	pending       map[streamID]*pelEntry
	consumers     map[string]struct{}
}

func newStreamGroup(start streamID) *streamGroup {
	return &streamGroup{
		lastDelivered: start,
		pending:       make(map[streamID]*pelEntry),
		consumers:     make(map[string]struct{}),
	}
}

// sortedPending returns the group PEL in id order, optionally restricted to
// one consumer.
func (g *streamGroup) sortedPending(consumer string) []*pelEntry {
	out := make([]*pelEntry, 0, len(g.pending))
	for _, p := range g.pending {
		if consumer == "" || p.consumer == consumer {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id.cmp(out[j].id) < 0 })
	return out
}

// streamVal is the stream variant: an append-only, id-ordered entry log
// plus per-group consumer state.
type streamVal struct {
	entries    []streamEntry // ascending by id
	lastID     streamID
	maxDeleted streamID
	added      uint64 // entries-added counter, survives XDEL/XTRIM
	groups     map[string]*streamGroup
}

func newStream() *streamVal {
	return &streamVal{groups: make(map[string]*streamGroup)}
}

func (*streamVal) vtype() ValueType { return TypeStream }

func (s *streamVal) Len() int { return len(s.entries) }

var errStreamIDTooSmall = errors.New(
	"The ID specified in XADD is equal or smaller than the target stream top item")

// Add appends an entry. id must exceed lastID or the add is rejected.
func (s *streamVal) Add(id streamID, fields [][]byte) error {
	if id.cmp(s.lastID) <= 0 {
		return errStreamIDTooSmall
	}
	s.entries = append(s.entries, streamEntry{id: id, fields: fields})
	s.lastID = id
	s.added++
	return nil
}

// indexGE returns the index of the first entry with id >= want.
func (s *streamVal) indexGE(want streamID) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].id.cmp(want) >= 0
	})
}

func (s *streamVal) get(id streamID) *streamEntry {
	i := s.indexGE(id)
	if i < len(s.entries) && s.entries[i].id == id {
		return &s.entries[i]
	}
	return nil
}

// Range visits entries with start <= id <= end; rev walks backwards.
// count<=0 means unlimited.
func (s *streamVal) Range(start, end streamID, rev bool, count int, visit func(e *streamEntry) bool) {
	lo := s.indexGE(start)
	hi := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].id.cmp(end) > 0 }) // first index past end
	if lo >= hi {
		return
	}
	n := 0
	if rev {
		for i := hi - 1; i >= lo; i-- {
			if count > 0 && n >= count {
				return
			}
			n++
			if !visit(&s.entries[i]) {
				return
			}
		}
		return
	}
	for i := lo; i < hi; i++ {
		if count > 0 && n >= count {
			return
		}
		n++
		if !visit(&s.entries[i]) {
			return
		}
	}
}

// Delete removes the entry with the given id, returning true on success.
func (s *streamVal) Delete(id streamID) bool {
	i := s.indexGE(id)
	if i >= len(s.entries) || s.entries[i].id != id {
		return false
	}
	if id.cmp(s.maxDeleted) > 0 {
		s.maxDeleted = id
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

// TrimMaxLen drops oldest entries until at most maxlen remain, returning
// the number removed.
func (s *streamVal) TrimMaxLen(maxlen int) int64 {
	if len(s.entries) <= maxlen {
		return 0
	}
	n := len(s.entries) - maxlen
	for i := 0; i < n; i++ {
		if s.entries[i].id.cmp(s.maxDeleted) > 0 {
			s.maxDeleted = s.entries[i].id
		}
	}
	s.entries = append([]streamEntry(nil), s.entries[n:]...)
	return int64(n)
}

// TrimMinID drops entries with id < minid, returning the number removed.
func (s *streamVal) TrimMinID(minid streamID) int64 {
	n := s.indexGE(minid)
	if n == 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		if s.entries[i].id.cmp(s.maxDeleted) > 0 {
			s.maxDeleted = s.entries[i].id
		}
	}
	s.entries = append([]streamEntry(nil), s.entries[n:]...)
	return int64(n)
}

// nextID derives an auto-generated id at time nowMS.
func (s *streamVal) nextID(nowMS int64) streamID {
	ms := uint64(nowMS)
	if ms > s.lastID.ms {
		return streamID{ms, 0}
	}
	return s.lastID.next()
}

// serialize appends a canonical byte form for digests and DUMP payloads.
// Group maps are emitted in sorted name order; PELs in id order.
func (s *streamVal) serialize(buf []byte) []byte {
	buf = resp.AppendBulkString(buf, s.lastID.String())
	buf = resp.AppendBulkString(buf, s.maxDeleted.String())
	buf = resp.AppendBulk(buf, []byte(strconv.FormatUint(s.added, 10)))
	buf = resp.AppendArrayHeader(buf, len(s.entries))
	for i := range s.entries {
		e := &s.entries[i]
		buf = resp.AppendBulkString(buf, e.id.String())
		buf = resp.AppendArrayHeader(buf, len(e.fields))
		for _, f := range e.fields {
			buf = resp.AppendBulk(buf, f)
		}
	}
	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	buf = resp.AppendArrayHeader(buf, len(names))
	for _, name := range names {
		g := s.groups[name]
		buf = resp.AppendBulkString(buf, name)
		buf = resp.AppendBulkString(buf, g.lastDelivered.String())
		pend := g.sortedPending("")
		buf = resp.AppendArrayHeader(buf, len(pend))
		for _, p := range pend {
			buf = resp.AppendBulkString(buf, p.id.String())
			buf = resp.AppendBulkString(buf, p.consumer)
			buf = resp.AppendInt(buf, p.deliveryTime)
			buf = resp.AppendInt(buf, p.deliveryCount)
		}
	}
	return buf
}
