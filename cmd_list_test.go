package peadb

import (
	"testing"

	"github.com/rsms/go-testutil"
)

func TestListPushPopEnds(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	assert.Eq("rpush", e.do("RPUSH", "l", "b", "c"), intReply(2))
	assert.Eq("lpush", e.do("LPUSH", "l", "a"), intReply(3))
	assert.Eq("llen", e.do("LLEN", "l"), intReply(3))
	assert.Eq("lrange", e.do("LRANGE", "l", "0", "-1"),
		"*3\r\n$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n")
	assert.Eq("lpop", e.do("LPOP", "l"), bulk("a"))
	assert.Eq("rpop", e.do("RPOP", "l"), bulk("c"))
	assert.Eq("lpop count", e.do("LPOP", "l", "5"), "*1\r\n$1\r\nb\r\n")
	// popping the last element removes the key
	assert.Eq("key gone", e.do("EXISTS", "l"), intReply(0))
	assert.Eq("pushx on missing", e.do("LPUSHX", "l", "x"), intReply(0))
}

func TestListIndexSetTrim(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("RPUSH", "l", "a", "b", "c", "d")
	assert.Eq("lindex", e.do("LINDEX", "l", "1"), bulk("b"))
	assert.Eq("lindex negative", e.do("LINDEX", "l", "-1"), bulk("d"))
	assert.Eq("lindex oob", e.do("LINDEX", "l", "9"), "$-1\r\n")
	assert.Eq("lset", e.do("LSET", "l", "0", "A"), "+OK\r\n")
	assert.Eq("lset oob", e.do("LSET", "l", "9", "x"), "-"+errIndexRange+"\r\n")
	assert.Eq("lset missing", e.do("LSET", "ghost", "0", "x"), "-"+errNoSuchKey+"\r\n")
	assert.Eq("ltrim", e.do("LTRIM", "l", "1", "2"), "+OK\r\n")
	assert.Eq("after trim", e.do("LRANGE", "l", "0", "-1"), "*2\r\n$1\r\nb\r\n$1\r\nc\r\n")
}

func TestListRemInsertPos(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("RPUSH", "l", "x", "a", "x", "b", "x")
	assert.Eq("lrem head", e.do("LREM", "l", "2", "x"), intReply(2))
	assert.Eq("after lrem", e.do("LRANGE", "l", "0", "-1"),
		"*3\r\n$1\r\na\r\n$1\r\nb\r\n$1\r\nx\r\n")
	assert.Eq("lrem tail", e.do("LREM", "l", "-1", "x"), intReply(1))
	assert.Eq("linsert before", e.do("LINSERT", "l", "BEFORE", "b", "B"), intReply(3))
	assert.Eq("linsert missing pivot", e.do("LINSERT", "l", "AFTER", "zzz", "x"), intReply(-1))
	assert.Eq("lpos", e.do("LPOS", "l", "b"), intReply(2))
	assert.Eq("lpos missing", e.do("LPOS", "l", "nope"), "$-1\r\n")
}

func TestRPopLPush(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("RPUSH", "src", "a", "b")
	assert.Eq("moved", e.do("RPOPLPUSH", "src", "dst"), bulk("b"))
	assert.Eq("src", e.do("LRANGE", "src", "0", "-1"), "*1\r\n$1\r\na\r\n")
	assert.Eq("dst", e.do("LRANGE", "dst", "0", "-1"), "*1\r\n$1\r\nb\r\n")
	assert.Eq("lmove right right", e.do("LMOVE", "src", "dst", "RIGHT", "RIGHT"), bulk("a"))
	assert.Eq("dst after", e.do("LRANGE", "dst", "0", "-1"), "*2\r\n$1\r\nb\r\n$1\r\na\r\n")
	assert.Eq("missing src", e.do("LMOVE", "src", "dst", "LEFT", "LEFT"), "$-1\r\n")
}

func TestHashCommands(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	assert.Eq("hset", e.do("HSET", "h", "f1", "a", "f2", "b"), intReply(2))
	assert.Eq("hset update", e.do("HSET", "h", "f1", "c"), intReply(0))
	assert.Eq("hget", e.do("HGET", "h", "f1"), bulk("c"))
	assert.Eq("hget missing field", e.do("HGET", "h", "zzz"), "$-1\r\n")
	assert.Eq("hmget", e.do("HMGET", "h", "f2", "zzz"), "*2\r\n$1\r\nb\r\n$-1\r\n")
	assert.Eq("hsetnx", e.do("HSETNX", "h", "f1", "x"), intReply(0))
	assert.Eq("hsetnx new", e.do("HSETNX", "h", "f3", "x"), intReply(1))
	assert.Eq("hlen", e.do("HLEN", "h"), intReply(3))
	assert.Eq("hexists", e.do("HEXISTS", "h", "f3"), intReply(1))
	assert.Eq("hstrlen", e.do("HSTRLEN", "h", "f2"), intReply(1))
	assert.Eq("hincrby", e.do("HINCRBY", "cnt", "n", "5"), intReply(5))
	assert.Eq("hincrby bad", e.do("HINCRBY", "h", "f1", "1"),
		"-ERR hash value is not an integer\r\n")
	assert.Eq("hdel", e.do("HDEL", "h", "f1", "f2", "zzz"), intReply(2))
	// deleting every field removes the key
	e.do("HDEL", "h", "f3")
	assert.Eq("empty hash gone", e.do("EXISTS", "h"), intReply(0))
}

func TestSetOperations(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("SADD", "a", "1", "2", "3")
	e.do("SADD", "b", "2", "3", "4")
	assert.Eq("inter", e.do("SINTER", "a", "b"), "*2\r\n$1\r\n2\r\n$1\r\n3\r\n")
	assert.Eq("diff", e.do("SDIFF", "a", "b"), "*1\r\n$1\r\n1\r\n")
	assert.Eq("inter card", e.do("SINTERCARD", "2", "a", "b"), intReply(2))
	assert.Eq("intercard limit", e.do("SINTERCARD", "2", "a", "b", "LIMIT", "1"), intReply(1))
	assert.Eq("interstore", e.do("SINTERSTORE", "dst", "a", "b"), intReply(2))
	assert.Eq("stored", e.do("SCARD", "dst"), intReply(2))
	assert.Eq("smove", e.do("SMOVE", "a", "b", "1"), intReply(1))
	assert.Eq("smove gone", e.do("SMOVE", "a", "b", "1"), intReply(0))
	assert.Eq("mismember", e.do("SMISMEMBER", "b", "1", "99"), "*2\r\n:1\r\n:0\r\n")
	// storing an empty result deletes the destination
	assert.Eq("empty store", e.do("SINTERSTORE", "dst", "a", "nosuch"), intReply(0))
	assert.Eq("dst gone", e.do("EXISTS", "dst"), intReply(0))
}

func TestZAddModifiers(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	assert.Eq("zadd", e.do("ZADD", "z", "1", "a", "2", "b"), intReply(2))
	assert.Eq("nx skips existing", e.do("ZADD", "z", "NX", "9", "a"), intReply(0))
	assert.Eq("score unchanged", e.do("ZSCORE", "z", "a"), bulk("1"))
	assert.Eq("xx skips new", e.do("ZADD", "z", "XX", "5", "c"), intReply(0))
	assert.Eq("gt only raises", e.do("ZADD", "z", "GT", "CH", "0", "b"), intReply(0))
	assert.Eq("gt raises", e.do("ZADD", "z", "GT", "CH", "9", "b"), intReply(1))
	assert.Eq("incompatible", e.do("ZADD", "z", "NX", "XX", "1", "m"),
		"-ERR GT, LT, and/or NX options at the same time are not compatible\r\n")
	assert.Eq("incr", e.do("ZADD", "z", "INCR", "2", "a"), bulk("3"))
	assert.Eq("bad float", e.do("ZADD", "z", "x", "m"), "-"+errNotFloat+"\r\n")
}

func TestZRangeForms(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("ZADD", "z", "1", "a", "2", "b", "3", "c")
	assert.Eq("by rank", e.do("ZRANGE", "z", "0", "1"), "*2\r\n$1\r\na\r\n$1\r\nb\r\n")
	assert.Eq("withscores", e.do("ZRANGE", "z", "0", "0", "WITHSCORES"),
		"*2\r\n$1\r\na\r\n$1\r\n1\r\n")
	assert.Eq("rev", e.do("ZRANGE", "z", "0", "0", "REV"), "*1\r\n$1\r\nc\r\n")
	assert.Eq("legacy zrevrange", e.do("ZREVRANGE", "z", "0", "0"), "*1\r\n$1\r\nc\r\n")
	assert.Eq("byscore", e.do("ZRANGE", "z", "(1", "+inf", "BYSCORE"),
		"*2\r\n$1\r\nb\r\n$1\r\nc\r\n")
	assert.Eq("byscore rev", e.do("ZRANGE", "z", "+inf", "-inf", "BYSCORE", "REV"),
		"*3\r\n$1\r\nc\r\n$1\r\nb\r\n$1\r\na\r\n")
	assert.Eq("bylex", e.do("ZRANGEBYLEX", "z", "[a", "(c"), "*2\r\n$1\r\na\r\n$1\r\nb\r\n")
	assert.Eq("zrank", e.do("ZRANK", "z", "b"), intReply(1))
	assert.Eq("zrevrank", e.do("ZREVRANK", "z", "b"), intReply(1))
	assert.Eq("zrank missing", e.do("ZRANK", "z", "zzz"), "$-1\r\n")
	assert.Eq("zcount", e.do("ZCOUNT", "z", "2", "+inf"), intReply(2))
	assert.Eq("zpopmin", e.do("ZPOPMIN", "z"), "*2\r\n$1\r\na\r\n$1\r\n1\r\n")
	assert.Eq("zremrange", e.do("ZREMRANGEBYSCORE", "z", "-inf", "+inf"), intReply(2))
	assert.Eq("emptied key gone", e.do("EXISTS", "z"), intReply(0))
}

func TestStreamCommands(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	assert.Eq("explicit id", e.do("XADD", "s", "5-1", "f", "v"), bulk("5-1"))
	assert.Eq("id must grow", e.do("XADD", "s", "5-1", "f", "v"),
		"-ERR The ID specified in XADD is equal or smaller than the target stream top item\r\n")
	assert.Eq("zero id", e.do("XADD", "empty", "0-0", "f", "v"),
		"-ERR The ID specified in XADD must be greater than 0-0\r\n")
	auto := e.do("XADD", "s", "*", "g", "w")
	assert.Ok("auto id allocated", auto[0] == '$')
	assert.Eq("xlen", e.do("XLEN", "s"), intReply(2))
	assert.Eq("xrange", e.do("XRANGE", "s", "5", "5"),
		"*1\r\n*2\r\n$3\r\n5-1\r\n*2\r\n$1\r\nf\r\n$1\r\nv\r\n")
	assert.Eq("xdel", e.do("XDEL", "s", "5-1"), intReply(1))

	// consumer groups
	e.do("XADD", "q", "1-1", "job", "a")
	e.do("XADD", "q", "2-1", "job", "b")
	assert.Eq("group create", e.do("XGROUP", "CREATE", "q", "g", "0"), "+OK\r\n")
	assert.Eq("busygroup", e.do("XGROUP", "CREATE", "q", "g", "0"),
		"-BUSYGROUP Consumer Group name already exists\r\n")
	reply := e.do("XREADGROUP", "GROUP", "g", "c1", "COUNT", "1", "STREAMS", "q", ">")
	assert.Ok("delivered", len(reply) > 0 && reply[0] == '*')

	// the delivery left a PEL entry
	pending := e.do("XPENDING", "q", "g")
	assert.Ok("one pending", len(pending) > 0 && pending[:4] == "*4\r\n")
	assert.Eq("ack", e.do("XACK", "q", "g", "1-1"), intReply(1))
	assert.Eq("ack again", e.do("XACK", "q", "g", "1-1"), intReply(0))

	assert.Eq("nogroup", e.do("XREADGROUP", "GROUP", "nope", "c", "STREAMS", "q", ">"),
		"-"+noGroupErr("nope", "q")+"\r\n")
}

func TestXReadNonBlocking(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("XADD", "s", "1-1", "f", "a")
	e.do("XADD", "s", "2-1", "f", "b")
	reply := e.do("XREAD", "COUNT", "10", "STREAMS", "s", "1-1")
	assert.Eq("entries after id", reply,
		"*1\r\n*2\r\n$1\r\ns\r\n*1\r\n*2\r\n$3\r\n2-1\r\n*2\r\n$1\r\nf\r\n$1\r\nb\r\n")
	assert.Eq("nothing new", e.do("XREAD", "STREAMS", "s", "$"), "*-1\r\n")
}

func TestXReadBlockingWake(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	producer := e.session()

	e.do("XADD", "s", "1-1", "f", "a")
	assert.Eq("parked", e.do("XREAD", "BLOCK", "0", "STREAMS", "s", "$"), "")
	e.doOn(producer, "XADD", "s", "2-1", "f", "b")
	out := string(e.sess.takeOutput())
	assert.Eq("woken with new entry", out,
		"*1\r\n*2\r\n$1\r\ns\r\n*1\r\n*2\r\n$3\r\n2-1\r\n*2\r\n$1\r\nf\r\n$1\r\nb\r\n")
}
