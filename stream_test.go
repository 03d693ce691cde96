package peadb

import (
	"testing"

	"github.com/rsms/go-testutil"
)

func TestStreamIDParse(t *testing.T) {
	assert := testutil.NewAssert(t)

	id, err := parseStreamID([]byte("5-3"), 0)
	assert.Ok("no error", err == nil)
	assert.Eq("id", id, streamID{5, 3})

	id, err = parseStreamID([]byte("7"), 0)
	assert.Ok("no error", err == nil)
	assert.Eq("default seq", id, streamID{7, 0})

	_, err = parseStreamID([]byte("x-1"), 0)
	assert.Ok("rejects garbage", err != nil)
	_, err = parseStreamID([]byte("-1"), 0)
	assert.Ok("rejects leading dash", err != nil)

	assert.Eq("string form", streamID{12, 34}.String(), "12-34")
	assert.Ok("ordering", streamID{1, 9}.cmp(streamID{2, 0}) < 0)
	assert.Eq("next rolls seq", streamID{1, 1}.next(), streamID{1, 2})
}

func TestStreamAddMonotonic(t *testing.T) {
	assert := testutil.NewAssert(t)
	s := newStream()

	assert.Ok("first add", s.Add(streamID{1, 1}, nil) == nil)
	assert.Ok("bigger ok", s.Add(streamID{2, 0}, nil) == nil)
	assert.Ok("equal rejected", s.Add(streamID{2, 0}, nil) != nil)
	assert.Ok("smaller rejected", s.Add(streamID{1, 5}, nil) != nil)
	assert.Eq("len", s.Len(), 2)
	assert.Eq("added counter", s.added, uint64(2))

	// auto ids always advance
	id := s.nextID(1)
	assert.Eq("clock behind last id", id, streamID{2, 1})
	id = s.nextID(50)
	assert.Eq("clock ahead", id, streamID{50, 0})
}

func TestStreamRangeAndTrim(t *testing.T) {
	assert := testutil.NewAssert(t)
	s := newStream()
	for ms := uint64(1); ms <= 5; ms++ {
		s.Add(streamID{ms, 0}, [][]byte{[]byte("f"), []byte("v")})
	}

	var ids []string
	s.Range(streamID{2, 0}, streamID{4, 0}, false, -1, func(e *streamEntry) bool {
		ids = append(ids, e.id.String())
		return true
	})
	assert.Eq("range", ids, []string{"2-0", "3-0", "4-0"})

	ids = nil
	s.Range(streamIDZero, streamIDMax, true, 2, func(e *streamEntry) bool {
		ids = append(ids, e.id.String())
		return true
	})
	assert.Eq("rev limited", ids, []string{"5-0", "4-0"})

	assert.Eq("trim maxlen", s.TrimMaxLen(3), int64(2))
	assert.Eq("len after trim", s.Len(), 3)
	assert.Eq("max deleted", s.maxDeleted, streamID{2, 0})
	assert.Eq("added survives trim", s.added, uint64(5))

	assert.Eq("trim minid", s.TrimMinID(streamID{5, 0}), int64(2))
	assert.Eq("only newest left", s.entries[0].id, streamID{5, 0})

	assert.Ok("delete", s.Delete(streamID{5, 0}))
	assert.Ok("delete missing", !s.Delete(streamID{5, 0}))
	assert.Eq("empty", s.Len(), 0)
}
