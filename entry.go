package peadb

import (
	"sort"
	"strconv"

	"github.com/alsatianco/peadb/resp"
	"github.com/cespare/xxhash/v2"
)

// ValueType tags the keyspace value variants.
type ValueType uint8

const (
	TypeNone ValueType = iota
	TypeString
	TypeList
	TypeSet
	TypeZSet
	TypeHash
	TypeStream
)

func (t ValueType) Name() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	case TypeHash:
		return "hash"
	case TypeStream:
		return "stream"
	}
	return "none"
}

// Entry is a keyspace value: one variant plus an optional absolute-ms
// expiry. Each variant owns its storage; there are no dormant fields.
type Entry struct {
	val      value
	expireAt int64 // absolute unix ms; 0 = no expiry
}

type value interface {
	vtype() ValueType
}

func (e *Entry) Type() ValueType { return e.val.vtype() }

func newStringEntry(b []byte) *Entry { return &Entry{val: &stringVal{b: b}} }
func newListEntry() *Entry           { return &Entry{val: &listVal{}} }
func newHashEntry() *Entry           { return &Entry{val: &hashVal{m: make(map[string][]byte)}} }
func newSetEntry() *Entry            { return &Entry{val: newSetVal()} }
func newZSetEntry() *Entry           { return &Entry{val: newZSet()} }
func newStreamEntry() *Entry         { return &Entry{val: newStream()} }

func (e *Entry) str() *stringVal    { return e.val.(*stringVal) }
func (e *Entry) list() *listVal     { return e.val.(*listVal) }
func (e *Entry) hash() *hashVal     { return e.val.(*hashVal) }
func (e *Entry) set() *setVal       { return e.val.(*setVal) }
func (e *Entry) zset() *zsetVal     { return e.val.(*zsetVal) }
func (e *Entry) stream() *streamVal { return e.val.(*streamVal) }

// ———————————————————————————————————————————————————————————————————————
// string

type stringVal struct {
	b []byte
}

func (*stringVal) vtype() ValueType { return TypeString }

// ———————————————————————————————————————————————————————————————————————
// hash

type hashVal struct {
	m map[string][]byte
}

func (*hashVal) vtype() ValueType { return TypeHash }

func (h *hashVal) sortedFields() []string {
	fields := make([]string, 0, len(h.m))
	for f := range h.m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ———————————————————————————————————————————————————————————————————————
// set

type setVal struct {
	m map[string]struct{}

	// intset reports whether every member ever added parsed as an integer.
	// Like redis's intset encoding it is sticky: adding a non-integer
	// converts for good (until the set empties).
	intset bool
}

func newSetVal() *setVal {
	return &setVal{m: make(map[string]struct{}), intset: true}
}

func (*setVal) vtype() ValueType { return TypeSet }

func (s *setVal) Add(member string) bool {
	if _, ok := s.m[member]; ok {
		return false
	}
	if s.intset {
		if _, ok := resp.ParseInt([]byte(member)); !ok {
			s.intset = false
		}
	}
	s.m[member] = struct{}{}
	return true
}

func (s *setVal) Remove(member string) bool {
	if _, ok := s.m[member]; !ok {
		return false
	}
	delete(s.m, member)
	if len(s.m) == 0 {
		s.intset = true
	}
	return true
}

func (s *setVal) Has(member string) bool {
	_, ok := s.m[member]
	return ok
}

func (s *setVal) sortedMembers() []string {
	members := make([]string, 0, len(s.m))
	for m := range s.m {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

// ———————————————————————————————————————————————————————————————————————
// list
//
// listVal is a ring-buffer deque; pushes and pops at both ends are O(1).

type listVal struct {
	buf  [][]byte
	head int
	n    int
}

func (*listVal) vtype() ValueType { return TypeList }

func (l *listVal) Len() int { return l.n }

func (l *listVal) At(i int) []byte {
	return l.buf[(l.head+i)%len(l.buf)]
}

func (l *listVal) SetAt(i int, v []byte) {
	l.buf[(l.head+i)%len(l.buf)] = v
}

func (l *listVal) growIfFull() {
	if len(l.buf) == 0 {
		l.buf = make([][]byte, 8)
		l.head = 0
		return
	}
	if l.n < len(l.buf) {
		return
	}
	buf := make([][]byte, len(l.buf)*2)
	for i := 0; i < l.n; i++ {
		buf[i] = l.At(i)
	}
	l.buf = buf
	l.head = 0
}

func (l *listVal) PushFront(v []byte) {
	l.growIfFull()
	l.head = (l.head - 1 + len(l.buf)) % len(l.buf)
	l.buf[l.head] = v
	l.n++
}

func (l *listVal) PushBack(v []byte) {
	l.growIfFull()
	l.buf[(l.head+l.n)%len(l.buf)] = v
	l.n++
}

func (l *listVal) PopFront() []byte {
	v := l.buf[l.head]
	l.buf[l.head] = nil
	l.head = (l.head + 1) % len(l.buf)
	l.n--
	return v
}

func (l *listVal) PopBack() []byte {
	i := (l.head + l.n - 1) % len(l.buf)
	v := l.buf[i]
	l.buf[i] = nil
	l.n--
	return v
}

// Trim keeps elements [start,stop] (inclusive, already clamped by caller).
func (l *listVal) Trim(start, stop int) {
	if start > stop || start >= l.n {
		l.buf = nil
		l.head = 0
		l.n = 0
		return
	}
	if stop >= l.n {
		stop = l.n - 1
	}
	n := stop - start + 1
	buf := make([][]byte, len(l.buf))
	for i := 0; i < n; i++ {
		buf[i] = l.At(start + i)
	}
	l.buf = buf
	l.head = 0
	l.n = n
}

// RemoveAt deletes the element at index i.
func (l *listVal) RemoveAt(i int) {
	for ; i < l.n-1; i++ {
		l.SetAt(i, l.At(i+1))
	}
	l.PopBack()
}

// InsertAt places v before index i (i==n appends).
func (l *listVal) InsertAt(i int, v []byte) {
	l.PushBack(nil)
	for j := l.n - 1; j > i; j-- {
		l.SetAt(j, l.At(j-1))
	}
	l.SetAt(i, v)
}

// ———————————————————————————————————————————————————————————————————————
// OBJECT ENCODING
//
// The names are contractual; the size heuristics follow redis 7.2 defaults
// (128 entries / 64 byte values for the listpack class, 512 for intset,
// 44 bytes for embstr).

const (
	encListpackEntries = 128
	encListpackValue   = 64
	encIntsetEntries   = 512
	encEmbstrMax       = 44
)

func (e *Entry) Encoding() string {
	switch v := e.val.(type) {
	case *stringVal:
		if _, ok := resp.ParseInt(v.b); ok && len(v.b) <= 20 {
			return "int"
		}
		if len(v.b) <= encEmbstrMax {
			return "embstr"
		}
		return "raw"
	case *listVal:
		if v.n <= encListpackEntries && listValuesFit(v) {
			return "listpack"
		}
		return "quicklist"
	case *hashVal:
		if len(v.m) <= encListpackEntries && hashValuesFit(v) {
			return "listpack"
		}
		return "hashtable"
	case *setVal:
		if v.intset && len(v.m) <= encIntsetEntries {
			return "intset"
		}
		if len(v.m) <= encListpackEntries && setValuesFit(v) {
			return "listpack"
		}
		return "hashtable"
	case *zsetVal:
		if v.Len() <= encListpackEntries && zsetValuesFit(v) {
			return "listpack"
		}
		return "skiplist"
	case *streamVal:
		return "stream"
	}
	return "unknown"
}

func listValuesFit(l *listVal) bool {
	for i := 0; i < l.n; i++ {
		if len(l.At(i)) > encListpackValue {
			return false
		}
	}
	return true
}

func hashValuesFit(h *hashVal) bool {
	for f, v := range h.m {
		if len(f) > encListpackValue || len(v) > encListpackValue {
			return false
		}
	}
	return true
}

func zsetValuesFit(z *zsetVal) bool {
	ok := true
	z.RangeByRank(0, z.Len()-1, false, func(m string, _ float64) bool {
		if len(m) > encListpackValue {
			ok = false
			return false
		}
		return true
	})
	return ok
}

func setValuesFit(s *setVal) bool {
	for m := range s.m {
		if len(m) > encListpackValue {
			return false
		}
	}
	return true
}

// ———————————————————————————————————————————————————————————————————————
// digest & sizing

// digest produces a short deterministic fingerprint of the value contents,
// independent of iteration order. Used by WATCH to detect delete-recreate
// and exposed as DEBUG DIGEST-VALUE. Not cryptographic.
func (e *Entry) digest() uint64 {
	return xxhash.Sum64(e.serialize(nil))
}

// serialize appends a canonical, type-tagged byte form of the value.
// Unordered variants are serialized in sorted order so the form is
// deterministic. This same form is the DUMP payload body.
func (e *Entry) serialize(buf []byte) []byte {
	buf = append(buf, byte(e.Type()))
	switch v := e.val.(type) {
	case *stringVal:
		buf = resp.AppendBulk(buf, v.b)
	case *listVal:
		buf = resp.AppendArrayHeader(buf, v.n)
		for i := 0; i < v.n; i++ {
			buf = resp.AppendBulk(buf, v.At(i))
		}
	case *hashVal:
		buf = resp.AppendArrayHeader(buf, len(v.m)*2)
		for _, f := range v.sortedFields() {
			buf = resp.AppendBulkString(buf, f)
			buf = resp.AppendBulk(buf, v.m[f])
		}
	case *setVal:
		buf = resp.AppendArrayHeader(buf, len(v.m))
		for _, m := range v.sortedMembers() {
			buf = resp.AppendBulkString(buf, m)
		}
	case *zsetVal:
		buf = resp.AppendArrayHeader(buf, v.Len()*2)
		v.RangeByRank(0, v.Len()-1, false, func(member string, score float64) bool {
			buf = resp.AppendBulkString(buf, member)
			buf = resp.AppendBulk(buf, resp.AppendFloat(nil, score))
			return true
		})
	case *streamVal:
		buf = v.serialize(buf)
	}
	return buf
}

// sizeEstimate approximates the memory held by the value, used for the
// maxmemory gate. Coarse on purpose.
func (e *Entry) sizeEstimate() int64 {
	const overhead = 48
	var z int64 = overhead
	switch v := e.val.(type) {
	case *stringVal:
		z += int64(len(v.b))
	case *listVal:
		for i := 0; i < v.n; i++ {
			z += int64(len(v.At(i))) + 16
		}
	case *hashVal:
		for f, val := range v.m {
			z += int64(len(f)+len(val)) + 32
		}
	case *setVal:
		for m := range v.m {
			z += int64(len(m)) + 24
		}
	case *zsetVal:
		v.RangeByRank(0, v.Len()-1, false, func(member string, score float64) bool {
			z += int64(len(member)) + 48
			return true
		})
	case *streamVal:
		for i := range v.entries {
			ent := &v.entries[i]
			z += 32
			for _, f := range ent.fields {
				z += int64(len(f)) + 8
			}
		}
	}
	return z
}

// parseIndex resolves a possibly-negative index against length n (no
// clamping; callers range-check).
func parseIndex(i int64, n int) int {
	if i < 0 {
		return n + int(i)
	}
	return int(i)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
