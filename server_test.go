package peadb

import (
	"testing"
	"time"

	"github.com/mediocregopher/radix/v3"
	"github.com/rsms/go-testutil"
)

// startServer boots a real listener on a random port and returns its
// address. The executor runs on the wall clock.
func startServer(t *testing.T) (*Server, string) {
	srv := NewServer(Options{})
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Run()
	go srv.Serve()
	t.Cleanup(srv.Shutdown)
	return srv, srv.Addr()
}

func TestEndToEndBasics(t *testing.T) {
	assert := testutil.NewAssert(t)
	_, addr := startServer(t)

	conn, err := radix.Dial("tcp", addr)
	assert.Ok("dial", err == nil)
	defer conn.Close()

	var pong string
	assert.Ok("ping", conn.Do(radix.Cmd(&pong, "PING")) == nil)
	assert.Eq("pong", pong, "PONG")

	var ok string
	assert.Ok("set", conn.Do(radix.Cmd(&ok, "SET", "k", "hello")) == nil)
	assert.Eq("set ok", ok, "OK")

	var got string
	assert.Ok("get", conn.Do(radix.Cmd(&got, "GET", "k")) == nil)
	assert.Eq("round trip", got, "hello")

	var n int
	assert.Ok("incr", conn.Do(radix.Cmd(&n, "INCR", "counter")) == nil)
	assert.Eq("one", n, 1)
	assert.Ok("incrby", conn.Do(radix.Cmd(&n, "INCRBY", "counter", "9")) == nil)
	assert.Eq("ten", n, 10)

	var members []string
	assert.Ok("rpush", conn.Do(radix.Cmd(nil, "RPUSH", "l", "a", "b")) == nil)
	assert.Ok("lrange", conn.Do(radix.Cmd(&members, "LRANGE", "l", "0", "-1")) == nil)
	assert.Eq("list", members, []string{"a", "b"})

	// an error reply decodes as a client-side error
	err = conn.Do(radix.Cmd(nil, "INCR", "k"))
	assert.Ok("wrongtype surfaces", err != nil)
}

func TestEndToEndPipelining(t *testing.T) {
	assert := testutil.NewAssert(t)
	_, addr := startServer(t)

	conn, err := radix.Dial("tcp", addr)
	assert.Ok("dial", err == nil)
	defer conn.Close()

	var a, b, c string
	err = conn.Do(radix.Pipeline(
		radix.Cmd(&a, "SET", "x", "1"),
		radix.Cmd(&b, "SET", "y", "2"),
		radix.Cmd(&c, "GET", "x"),
	))
	assert.Ok("pipeline", err == nil)
	assert.Eq("first", a, "OK")
	assert.Eq("last", c, "1")
}

func TestEndToEndMultiExec(t *testing.T) {
	assert := testutil.NewAssert(t)
	_, addr := startServer(t)

	conn, err := radix.Dial("tcp", addr)
	assert.Ok("dial", err == nil)
	defer conn.Close()

	var status string
	assert.Ok("multi", conn.Do(radix.Cmd(&status, "MULTI")) == nil)
	assert.Eq("ok", status, "OK")
	assert.Ok("queue", conn.Do(radix.Cmd(&status, "SET", "t", "1")) == nil)
	assert.Eq("queued", status, "QUEUED")
	assert.Ok("exec", conn.Do(radix.Cmd(nil, "EXEC")) == nil)

	var got string
	assert.Ok("get", conn.Do(radix.Cmd(&got, "GET", "t")) == nil)
	assert.Eq("committed", got, "1")
}

func TestEndToEndBlpopWake(t *testing.T) {
	assert := testutil.NewAssert(t)
	_, addr := startServer(t)

	waiter, err := radix.Dial("tcp", addr)
	assert.Ok("dial waiter", err == nil)
	defer waiter.Close()
	pusher, err := radix.Dial("tcp", addr)
	assert.Ok("dial pusher", err == nil)
	defer pusher.Close()

	done := make(chan []string, 1)
	go func() {
		var reply []string
		if err := waiter.Do(radix.Cmd(&reply, "BLPOP", "q", "5")); err != nil {
			done <- nil
			return
		}
		done <- reply
	}()

	time.Sleep(200 * time.Millisecond)
	assert.Ok("push", pusher.Do(radix.Cmd(nil, "RPUSH", "q", "x")) == nil)

	select {
	case reply := <-done:
		assert.Eq("woken", reply, []string{"q", "x"})
	case <-time.After(2 * time.Second):
		t.Fatal("BLPOP did not wake after the push")
	}
}

func TestEndToEndExpiry(t *testing.T) {
	assert := testutil.NewAssert(t)
	_, addr := startServer(t)

	conn, err := radix.Dial("tcp", addr)
	assert.Ok("dial", err == nil)
	defer conn.Close()

	assert.Ok("set px", conn.Do(radix.Cmd(nil, "SET", "k", "v", "PX", "1")) == nil)
	time.Sleep(10 * time.Millisecond)
	var got string
	assert.Ok("get", conn.Do(radix.Cmd(&got, "GET", "k")) == nil)
	assert.Eq("expired", got, "")
}
