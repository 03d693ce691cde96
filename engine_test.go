package peadb

import (
	"testing"
	"time"

	"github.com/alsatianco/peadb/resp"
	"github.com/benbjohnson/clock"
)

// testEngine drives the dispatcher directly, with a frozen mock clock.
type testEngine struct {
	t    *testing.T
	srv  *Server
	clk  *clock.Mock
	sess *Session
}

func newTestEngine(t *testing.T) *testEngine {
	clk := clock.NewMock()
	clk.Add(24 * time.Hour) // away from the epoch so expiries are nonzero
	srv := NewServer(Options{Clock: clk, Seed: 7})
	return &testEngine{t: t, srv: srv, clk: clk, sess: srv.NewSession(nil)}
}

func (e *testEngine) session() *Session {
	return e.srv.NewSession(nil)
}

func (e *testEngine) doOn(s *Session, args ...string) string {
	bb := make([][]byte, len(args))
	for i, a := range args {
		bb[i] = []byte(a)
	}
	wire := len(resp.EncodeCommand(bb...))
	reply := e.srv.Exec(s, bb, wire)
	e.srv.afterCommand()
	return string(reply)
}

func (e *testEngine) do(args ...string) string {
	return e.doOn(e.sess, args...)
}

// events renders the journal as decoded argument lists, skipping nothing.
func (e *testEngine) events() [][]string {
	var out [][]string
	for _, ev := range e.srv.journal.Events() {
		args, _, err := resp.DecodeRequest(ev)
		if err != nil {
			e.t.Fatalf("bad journal event %q: %v", ev, err)
		}
		strs := make([]string, len(args))
		for i, a := range args {
			strs[i] = string(a)
		}
		out = append(out, strs)
	}
	return out
}

func bulk(s string) string {
	return string(resp.AppendBulkString(nil, s))
}

func intReply(v int64) string {
	return string(resp.AppendInt(nil, v))
}
