package peadb

import (
	"testing"

	"github.com/alsatianco/peadb/resp"
	"github.com/rsms/go-testutil"
)

func TestOffsetTracksOriginalEncoding(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	assert.Eq("starts at zero", e.srv.journal.Offset(), int64(0))
	wire := len(resp.EncodeCommandStr("SET", "k", "v"))
	e.do("SET", "k", "v")
	assert.Eq("offset is the original request size", e.srv.journal.Offset(), int64(wire))

	// reads do not move the offset
	e.do("GET", "k")
	assert.Eq("reads free", e.srv.journal.Offset(), int64(wire))

	// failed writes do not move the offset
	e.do("LPUSH", "k", "x") // WRONGTYPE
	assert.Eq("failed writes free", e.srv.journal.Offset(), int64(wire))

	// a TTL'd SET accounts the original form, not the PXAT rewrite
	wire2 := len(resp.EncodeCommandStr("SET", "k2", "v", "EX", "100"))
	e.do("SET", "k2", "v", "EX", "100")
	assert.Eq("original form accounted", e.srv.journal.Offset(), int64(wire+wire2))
}

func TestEpochStrictlyIncreasesOnWrites(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e0 := e.srv.journal.Epoch()
	e.do("SET", "a", "1")
	e1 := e.srv.journal.Epoch()
	assert.Ok("write bumps", e1 > e0)
	e.do("GET", "a")
	assert.Eq("read does not", e.srv.journal.Epoch(), e1)
	e.do("DEL", "nope")
	assert.Eq("no-op write does not", e.srv.journal.Epoch(), e1)
	e.do("DEL", "a")
	assert.Ok("delete bumps", e.srv.journal.Epoch() > e1)
}

func TestExpiryRewrites(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	now := e.srv.nowMS()

	e.do("SET", "k", "v", "EX", "10")
	e.do("SETEX", "k2", "10", "v")
	e.do("EXPIRE", "k", "20")
	events := e.events()
	assert.Eq("set ex to pxat", events[1], []string{"SET", "k", "v", "PXAT", itoa(now + 10000)})
	assert.Eq("setex to pxat", events[2], []string{"SET", "k2", "v", "PXAT", itoa(now + 10000)})
	assert.Eq("expire to pexpireat", events[3], []string{"PEXPIREAT", "k", itoa(now + 20000)})
}

func TestGetExRewrites(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	now := e.srv.nowMS()

	e.do("SET", "k", "v")
	n := len(e.srv.journal.Events())

	// plain GETEX replicates nothing
	e.do("GETEX", "k")
	assert.Eq("suppressed", len(e.srv.journal.Events()), n)

	e.do("GETEX", "k", "EX", "10")
	events := e.events()
	assert.Eq("pexpireat", events[len(events)-1], []string{"PEXPIREAT", "k", itoa(now + 10000)})

	e.do("GETEX", "k", "PERSIST")
	events = e.events()
	assert.Eq("persist", events[len(events)-1], []string{"PERSIST", "k"})

	e.do("GETDEL", "k")
	events = e.events()
	assert.Eq("getdel to del", events[len(events)-1], []string{"DEL", "k"})
}

func TestIncrByFloatRewrite(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("SET", "k", "3.0")
	assert.Eq("reply", e.do("INCRBYFLOAT", "k", "0.1"), bulk("3.1"))
	events := e.events()
	assert.Eq("post-op literal", events[len(events)-1],
		[]string{"SET", "k", "3.1", "KEEPTTL"})
}

func TestDelOfNothingIsSuppressed(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	n := len(e.srv.journal.Events())
	assert.Eq("del zero", e.do("DEL", "ghost"), intReply(0))
	assert.Eq("unlink zero", e.do("UNLINK", "ghost"), intReply(0))
	assert.Eq("no events", len(e.srv.journal.Events()), n)
}

func TestSelectTracking(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("SET", "a", "1")
	e.do("SELECT", "3")
	e.do("SET", "b", "2")
	e.do("SELECT", "0")
	e.do("SET", "c", "3")
	assert.Eq("select interleaved", e.events(), [][]string{
		{"SELECT", "0"},
		{"SET", "a", "1"},
		{"SELECT", "3"},
		{"SET", "b", "2"},
		{"SELECT", "0"},
		{"SET", "c", "3"},
	})
}

func TestReplayFidelity(t *testing.T) {
	assert := testutil.NewAssert(t)
	master := newTestEngine(t)

	master.do("SET", "s", "v", "EX", "100")
	master.do("RPUSH", "l", "a", "b", "c")
	master.do("LPOP", "l")
	master.do("HSET", "h", "f1", "1", "f2", "2")
	master.do("SADD", "set", "x", "y")
	master.do("ZADD", "z", "1", "a", "2", "b")
	master.do("INCRBYFLOAT", "f", "0.5")
	master.do("XADD", "st", "5-1", "k", "v")

	// apply the replication stream to a fresh replica
	replica := newTestEngine(t)
	rs := replica.session()
	rs.fromMaster = true
	for _, ev := range master.srv.journal.Events() {
		args, _, err := resp.DecodeRequest(ev)
		assert.Ok("event decodes", err == nil)
		replica.srv.Exec(rs, args, len(ev))
	}

	for _, key := range []string{"s", "l", "h", "set", "z", "f", "st"} {
		assert.Eq("digest "+key,
			replica.do("DEBUG", "DIGEST-VALUE", key),
			master.do("DEBUG", "DIGEST-VALUE", key))
	}
}

func TestMonotonicOffsetAcrossTrace(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	last := int64(0)
	cmds := [][]string{
		{"SET", "a", "1"},
		{"GET", "a"},
		{"INCR", "a"},
		{"LPUSH", "l", "x"},
		{"DEL", "a"},
		{"NOSUCH"},
		{"EXPIRE", "l", "10"},
	}
	for _, cmd := range cmds {
		e.do(cmd...)
		off := e.srv.journal.Offset()
		assert.Ok("non-decreasing", off >= last)
		last = off
	}
}
