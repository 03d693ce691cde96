package peadb

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"strconv"

	"github.com/alsatianco/peadb/resp"
	"github.com/cespare/xxhash/v2"
)

// skiplist level source for payload loads; levels are not part of the
// serialized form
var dumpRand = rand.New(rand.NewSource(1))

// DUMP payload: one format-version byte, the canonical value serialization
// (the same bytes the digest hashes), and an 8-byte little-endian xxhash64
// footer. Opaque to clients; only RESTORE on a compatible build reads it.
const dumpFormatVersion = 1

func dumpEntry(e *Entry) []byte {
	body := e.serialize([]byte{dumpFormatVersion})
	var footer [8]byte
	binary.LittleEndian.PutUint64(footer[:], xxhash.Sum64(body))
	return append(body, footer[:]...)
}

var errBadDumpPayload = errors.New("Bad data format")

// loadDump parses a DUMP payload back into an Entry.
func loadDump(payload []byte) (*Entry, error) {
	if len(payload) < 1+8 || payload[0] != dumpFormatVersion {
		return nil, errBadDumpPayload
	}
	body := payload[:len(payload)-8]
	sum := binary.LittleEndian.Uint64(payload[len(payload)-8:])
	if xxhash.Sum64(body) != sum {
		return nil, errBadDumpPayload
	}
	d := dumpReader{buf: body[1:]}
	e := d.readEntry()
	if d.err != nil || len(d.buf) != 0 {
		return nil, errBadDumpPayload
	}
	return e, nil
}

// dumpReader decodes the canonical value serialization. Errors latch like
// the protocol reader's do.
type dumpReader struct {
	buf []byte
	err error
}

func (d *dumpReader) fail() {
	if d.err == nil {
		d.err = errBadDumpPayload
	}
}

func (d *dumpReader) readByte() byte {
	if d.err != nil || len(d.buf) == 0 {
		d.fail()
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

// readHeader consumes "<t><n>\r\n" returning n.
func (d *dumpReader) readHeader(t byte) int64 {
	if d.readByte() != t {
		d.fail()
		return 0
	}
	i := 0
	for i < len(d.buf) && d.buf[i] != '\r' {
		i++
	}
	if i+1 >= len(d.buf) || d.buf[i+1] != '\n' {
		d.fail()
		return 0
	}
	n, err := strconv.ParseInt(string(d.buf[:i]), 10, 64)
	if err != nil {
		d.fail()
		return 0
	}
	d.buf = d.buf[i+2:]
	return n
}

func (d *dumpReader) readBulk() []byte {
	n := d.readHeader(resp.TypeBulkString)
	if d.err != nil || n < 0 || int64(len(d.buf)) < n+2 {
		d.fail()
		return nil
	}
	b := append([]byte(nil), d.buf[:n]...)
	if d.buf[n] != '\r' || d.buf[n+1] != '\n' {
		d.fail()
		return nil
	}
	d.buf = d.buf[n+2:]
	return b
}

func (d *dumpReader) readInt() int64 {
	return d.readHeader(resp.TypeInteger)
}

func (d *dumpReader) readArrayHeader() int {
	return int(d.readHeader(resp.TypeArray))
}

func (d *dumpReader) readEntry() *Entry {
	switch ValueType(d.readByte()) {
	case TypeString:
		return newStringEntry(d.readBulk())
	case TypeList:
		e := newListEntry()
		n := d.readArrayHeader()
		for i := 0; i < n && d.err == nil; i++ {
			e.list().PushBack(d.readBulk())
		}
		return e
	case TypeHash:
		e := newHashEntry()
		n := d.readArrayHeader()
		for i := 0; i < n && d.err == nil; i += 2 {
			f := d.readBulk()
			e.hash().m[string(f)] = d.readBulk()
		}
		return e
	case TypeSet:
		e := newSetEntry()
		n := d.readArrayHeader()
		for i := 0; i < n && d.err == nil; i++ {
			e.set().Add(string(d.readBulk()))
		}
		return e
	case TypeZSet:
		e := newZSetEntry()
		n := d.readArrayHeader()
		for i := 0; i < n && d.err == nil; i += 2 {
			member := string(d.readBulk())
			score, ok := resp.ParseFloat(d.readBulk())
			if !ok {
				d.fail()
				return nil
			}
			e.zset().Add(dumpRand, member, score)
		}
		return e
	case TypeStream:
		return d.readStream()
	}
	d.fail()
	return nil
}

func (d *dumpReader) readStreamID() streamID {
	id, err := parseStreamID(d.readBulk(), 0)
	if err != nil {
		d.fail()
	}
	return id
}

func (d *dumpReader) readStream() *Entry {
	e := newStreamEntry()
	s := e.stream()
	s.lastID = d.readStreamID()
	s.maxDeleted = d.readStreamID()
	added, ok := resp.ParseUint(d.readBulk())
	if !ok {
		d.fail()
	}
	s.added = added
	n := d.readArrayHeader()
	for i := 0; i < n && d.err == nil; i++ {
		id := d.readStreamID()
		fn := d.readArrayHeader()
		fields := make([][]byte, 0, fn)
		for j := 0; j < fn && d.err == nil; j++ {
			fields = append(fields, d.readBulk())
		}
		s.entries = append(s.entries, streamEntry{id: id, fields: fields})
	}
	gn := d.readArrayHeader()
	for i := 0; i < gn && d.err == nil; i++ {
		name := string(d.readBulk())
		g := newStreamGroup(d.readStreamID())
		pn := d.readArrayHeader()
		for j := 0; j < pn && d.err == nil; j++ {
			p := &pelEntry{}
			p.id = d.readStreamID()
			p.consumer = string(d.readBulk())
			p.deliveryTime = d.readInt()
			p.deliveryCount = d.readInt()
			g.pending[p.id] = p
			g.consumers[p.consumer] = struct{}{}
		}
		s.groups[name] = g
	}
	return e
}
