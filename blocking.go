package peadb

import (
	"github.com/alsatianco/peadb/resp"
)

// serveBlocked re-polls every parked session in park order: the first
// eligible waiter receives newly available data. Deadlines resolve to a
// nil reply.
func (srv *Server) serveBlocked() {
	if len(srv.blocked) == 0 {
		return
	}
	now := srv.nowMS()
	// iterate over a snapshot; handlers mutate srv.blocked on success
	snapshot := append([]*Session(nil), srv.blocked...)
	for _, s := range snapshot {
		b := s.block
		if b == nil || s.closed {
			continue
		}
		if b.deadline != 0 && now >= b.deadline {
			srv.unparkSession(s)
			w := resp.NewReplyWriter(s.proto3)
			if blockingRepliesNullArray(upperCmd(b.args[0])) {
				w.NullArray()
			} else {
				w.Null()
			}
			s.write(w.Bytes())
			srv.drainPending(s)
			continue
		}
		srv.retryBlocked(s, b)
	}
}

// retryBlocked re-runs the parked request. On success the handler replies,
// the park clears and pending requests drain; otherwise it stays parked.
func (srv *Server) retryBlocked(s *Session, b *blockState) {
	c := &ctx{
		srv:      srv,
		s:        s,
		db:       srv.dbs[b.db],
		args:     b.args,
		wire:     b.wire,
		w:        resp.NewReplyWriter(s.proto3),
		retrying: true,
	}
	c.cmd = srv.commands[upperCmd(b.args[0])]
	c.cmd.handler(c)
	if c.parked {
		return // still nothing; stay in the registry
	}
	srv.unparkSession(s)
	srv.completeWrite(c)
	s.write(c.w.Bytes())
	srv.drainPending(s)
}

// completeWrite applies the post-handler write accounting (epoch, offset,
// replication) for a context not driven through exec().
func (srv *Server) completeWrite(c *ctx) {
	reply := c.w.Bytes()
	if len(reply) > 0 && reply[0] == resp.TypeError {
		srv.binError(reply)
		return
	}
	if c.cmd.is(flagWrite) && c.dirty > 0 {
		srv.journal.BumpEpoch()
		srv.journal.AddOffset(c.wire)
		if !c.suppressRepl && !c.explicitRepl && !srv.loading {
			srv.journal.Propagate(c.db.id, c.args...)
		}
		srv.stats.dirtySinceSave += int64(c.dirty)
	}
}

func blockingRepliesNullArray(name string) bool {
	switch name {
	case "BLPOP", "BRPOP", "BZPOPMIN", "BZPOPMAX", "XREAD", "XREADGROUP":
		return true
	}
	return false
}
