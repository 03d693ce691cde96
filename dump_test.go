package peadb

import (
	"testing"
	"time"

	"github.com/rsms/go-testutil"
)

func TestDumpRestoreRoundTrip(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("RPUSH", "l", "a", "b", "c")
	e.do("HSET", "h", "f", "v")
	e.do("SADD", "s", "1", "2")
	e.do("ZADD", "z", "1.5", "m")
	e.do("XADD", "st", "3-1", "k", "v")
	e.do("SET", "str", "plain")

	for _, key := range []string{"l", "h", "s", "z", "st", "str"} {
		payload := e.srv.dbs[0].lookup(key)
		dump := dumpEntry(payload)
		restored, err := loadDump(dump)
		assert.Ok("load "+key, err == nil)
		assert.Eq("digest "+key, restored.digest(), payload.digest())
	}
}

func TestRestoreCommand(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("RPUSH", "l", "a", "b")
	raw := dumpEntry(e.srv.dbs[0].lookup("l"))
	assert.Eq("dump framing", e.do("DUMP", "l"), bulk(string(raw)))

	assert.Eq("busykey", e.do("RESTORE", "l", "0", string(raw)), "-"+errBusyKey+"\r\n")
	assert.Eq("restore copy", e.do("RESTORE", "l2", "0", string(raw)), "+OK\r\n")
	assert.Eq("digests equal",
		e.do("DEBUG", "DIGEST-VALUE", "l2"), e.do("DEBUG", "DIGEST-VALUE", "l"))
	assert.Eq("replace", e.do("RESTORE", "l", "0", string(raw), "REPLACE"), "+OK\r\n")

	assert.Eq("garbage payload", e.do("RESTORE", "x", "0", "nonsense"),
		"-ERR Bad data format\r\n")

	// ttl is relative ms; ABSTTL switches to absolute
	assert.Eq("with ttl", e.do("RESTORE", "t1", "5000", string(raw)), "+OK\r\n")
	assert.Eq("ttl applied", e.do("TTL", "t1"), intReply(5))
	abs := e.srv.nowMS() + 9000
	assert.Eq("absttl", e.do("RESTORE", "t2", itoa(abs), string(raw), "ABSTTL"), "+OK\r\n")
	assert.Eq("absttl applied", e.do("TTL", "t2"), intReply(9))
}

func TestDumpMissingKey(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	assert.Eq("nil", e.do("DUMP", "ghost"), "$-1\r\n")
}

func TestDumpRejectsCorruption(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("SET", "k", "v")
	raw := dumpEntry(e.srv.dbs[0].lookup("k"))
	raw[len(raw)/2] ^= 0xFF
	_, err := loadDump(raw)
	assert.Ok("checksum catches flip", err != nil)
}

func TestSnapshotRoundTrip(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("SET", "a", "1")
	e.do("RPUSH", "l", "x", "y")
	e.do("SELECT", "2")
	e.do("SET", "b", "two")
	e.do("EXPIRE", "b", "500")

	blob := e.srv.snapshotBytes()

	f := newTestEngine(t)
	f.clk.Set(e.clk.Now())
	assert.Ok("load ok", f.srv.loadSnapshot(blob) == nil)
	assert.Eq("db0 string", f.do("GET", "a"), bulk("1"))
	assert.Eq("db0 list", f.do("LRANGE", "l", "0", "-1"), "*2\r\n$1\r\nx\r\n$1\r\ny\r\n")
	f.do("SELECT", "2")
	assert.Eq("db2 string", f.do("GET", "b"), bulk("two"))
	ttl := f.do("TTL", "b")
	assert.Eq("expiry carried", ttl, intReply(500))

	// loading replicated nothing
	assert.Eq("no journal events", len(f.srv.journal.Events()), 0)
}

func TestSnapshotSkipsExpired(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("SET", "gone", "x", "PX", "10")
	e.do("SET", "kept", "y")
	e.clk.Add(20 * time.Millisecond)

	n := 0
	e.srv.SnapshotEach(func(_ int, key string, _ *Entry) bool {
		n++
		assert.Eq("only live key", key, "kept")
		return true
	})
	assert.Eq("one entry", n, 1)
}
