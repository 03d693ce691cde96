package peadb

import (
	"github.com/alsatianco/peadb/resp"
)

// parseI64 validates a client-supplied integer argument with string2ll
// strictness.
func parseI64(b []byte) (int64, bool) {
	return resp.ParseInt(b)
}

// typedRead resolves key for a read, counting keyspace hits/misses and
// replying WRONGTYPE on a variant mismatch (ok=false means the reply was
// already written).
func (c *ctx) typedRead(key string, t ValueType) (*Entry, bool) {
	e, wrong := c.db.lookupTyped(key, t)
	if wrong {
		c.w.Error(errWrongType)
		return nil, false
	}
	if e == nil {
		c.srv.stats.keyspaceMisses++
	} else {
		c.srv.stats.keyspaceHits++
	}
	return e, true
}

// typedWrite resolves key for a mutation. The wrongtype check runs before
// any effect; ok=false means WRONGTYPE was replied and nothing may change.
func (c *ctx) typedWrite(key string, t ValueType) (*Entry, bool) {
	e, wrong := c.db.lookupTyped(key, t)
	if wrong {
		c.w.Error(errWrongType)
		return nil, false
	}
	return e, true
}

// deleteIfEmpty removes aggregate keys that emptied out, as redis does.
func (c *ctx) deleteIfEmpty(key string, e *Entry) {
	empty := false
	switch v := e.val.(type) {
	case *listVal:
		empty = v.Len() == 0
	case *hashVal:
		empty = len(v.m) == 0
	case *setVal:
		empty = len(v.m) == 0
	case *zsetVal:
		empty = v.Len() == 0
	}
	if empty {
		c.db.delete(key)
	}
}

// parseTimeoutSecs parses a blocking-timeout argument: a float number of
// seconds. Negative values are returned as parsed; callers reject them.
func parseTimeoutSecs(b []byte) (float64, bool) {
	f, ok := resp.ParseFloat(b)
	if !ok {
		return 0, false
	}
	return f, true
}

// writeBulkOrNull replies b, or the protocol's null bulk when b is nil.
func (c *ctx) writeBulkOrNull(b []byte) {
	if b == nil {
		c.w.Null()
	} else {
		c.w.Bulk(b)
	}
}
