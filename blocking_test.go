package peadb

import (
	"testing"
	"time"

	"github.com/rsms/go-testutil"
)

func TestBlpopImmediate(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("RPUSH", "q", "x")
	assert.Eq("pops available data", e.do("BLPOP", "q", "5"),
		"*2\r\n$1\r\nq\r\n$1\r\nx\r\n")
	// the pop replicated as LPOP
	events := e.events()
	assert.Eq("lpop event", events[len(events)-1], []string{"LPOP", "q"})
}

func TestBlpopWakesOnProducer(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	producer := e.session()

	reply := e.do("BLPOP", "q", "5")
	assert.Eq("parked, no reply yet", reply, "")
	assert.Ok("session blocked", e.sess.block != nil)

	// parked sessions refuse further work until they unblock
	e.clk.Add(200 * time.Millisecond)
	e.srv.Tick()
	assert.Eq("still parked", string(e.sess.takeOutput()), "")

	assert.Eq("push", e.doOn(producer, "RPUSH", "q", "x"), intReply(1))
	// afterCommand already ran inside doOn: the waiter was served
	assert.Eq("woken with payload", string(e.sess.takeOutput()),
		"*2\r\n$1\r\nq\r\n$1\r\nx\r\n")
	assert.Ok("unblocked", e.sess.block == nil)
}

func TestBlpopFirstWaiterWins(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	second := e.session()
	producer := e.session()

	e.do("BLPOP", "q", "0")
	e.doOn(second, "BLPOP", "q", "0")
	e.doOn(producer, "RPUSH", "q", "only")

	assert.Eq("first waiter got it", string(e.sess.takeOutput()),
		"*2\r\n$1\r\nq\r\n$4\r\nonly\r\n")
	assert.Eq("second still parked", string(second.takeOutput()), "")
	assert.Ok("second blocked", second.block != nil)
}

func TestBlpopTimeout(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("BLPOP", "q", "1")
	e.clk.Add(1100 * time.Millisecond)
	e.srv.Tick()
	assert.Eq("nil array on timeout", string(e.sess.takeOutput()), "*-1\r\n")
	assert.Ok("unblocked", e.sess.block == nil)

	// zero timeout blocks forever
	e.do("BLPOP", "q", "0")
	e.clk.Add(time.Hour)
	e.srv.Tick()
	assert.Eq("still parked", string(e.sess.takeOutput()), "")
}

func TestBlockedSessionQueuesRequests(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	producer := e.session()

	e.do("BLPOP", "q", "0")
	// requests from a parked session wait for the unblock
	e.srv.dispatch(&request{sess: e.sess, args: [][]byte{[]byte("PING")}, wire: 14})
	assert.Eq("not served yet", string(e.sess.takeOutput()), "")

	e.doOn(producer, "RPUSH", "q", "x")
	out := string(e.sess.takeOutput())
	assert.Eq("pop then pending ping", out, "*2\r\n$1\r\nq\r\n$1\r\nx\r\n+PONG\r\n")
}

func TestBlpopInsideMultiDoesNotBlock(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("MULTI")
	e.do("BLPOP", "q", "0")
	assert.Eq("exec returns nil array", e.do("EXEC"), "*1\r\n*-1\r\n")
	assert.Ok("not blocked", e.sess.block == nil)
}

func TestBzpopminWakes(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	producer := e.session()

	e.do("BZPOPMIN", "z", "0")
	e.doOn(producer, "ZADD", "z", "2", "b", "1", "a")
	assert.Eq("min popped", string(e.sess.takeOutput()),
		"*3\r\n$1\r\nz\r\n$1\r\na\r\n$1\r\n1\r\n")
}

func TestBlmoveWakes(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	producer := e.session()

	e.do("BLMOVE", "src", "dst", "LEFT", "RIGHT", "0")
	e.doOn(producer, "RPUSH", "src", "v")
	assert.Eq("moved element", string(e.sess.takeOutput()), bulk("v"))
	assert.Eq("landed", e.do("LRANGE", "dst", "0", "-1"), "*1\r\n$1\r\nv\r\n")
	// replicated as a deterministic LMOVE
	events := e.events()
	assert.Eq("lmove event", events[len(events)-1],
		[]string{"LMOVE", "src", "dst", "LEFT", "RIGHT"})
}

func TestWaitWithNoReplicas(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	assert.Eq("zero replicas satisfied", e.do("WAIT", "0", "0"), intReply(0))

	e.do("WAIT", "1", "50")
	assert.Ok("parked", e.sess.wait != nil)
	e.clk.Add(60 * time.Millisecond)
	e.srv.Tick()
	assert.Eq("timeout reports count", string(e.sess.takeOutput()), intReply(0))
	assert.Ok("cleared", e.sess.wait == nil)
}
