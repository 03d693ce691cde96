package peadb

import (
	"strconv"
	"strings"

	"github.com/alsatianco/peadb/resp"
)

// ctx carries one command invocation through the gate pipeline and its
// handler.
type ctx struct {
	srv  *Server
	s    *Session
	db   *DB
	cmd  *Command
	args [][]byte
	w    *resp.ReplyWriter
	wire int

	script *scriptRun // non-nil when dispatched through the script callback

	dirty        int  // mutations performed by the handler
	explicitRepl bool // handler emitted its own replication events
	suppressRepl bool // handler suppressed replication entirely
	parked       bool // handler parked the session (blocking command)
	retrying     bool // re-poll of an already parked command
}

func (c *ctx) arg(i int) []byte { return c.args[i] }
func (c *ctx) str(i int) string { return string(c.args[i]) }
func (c *ctx) argc() int        { return len(c.args) }
func (c *ctx) nowMS() int64     { return c.srv.nowMS() }

func (c *ctx) markDirty() { c.dirty++ }

// propagate emits an explicit replication event in place of the verbatim
// request. May be called multiple times for multi-event rewrites.
func (c *ctx) propagate(args ...string) {
	c.explicitRepl = true
	if c.srv.loading {
		return
	}
	c.srv.journal.PropagateStr(c.db.id, args...)
}

func (c *ctx) propagateB(args ...[]byte) {
	c.explicitRepl = true
	if c.srv.loading {
		return
	}
	c.srv.journal.Propagate(c.db.id, args...)
}

// noRepl suppresses replication for this invocation (reply-0 deletes,
// TTL-less GETEX and the like).
func (c *ctx) noRepl() { c.suppressRepl = true }

// park records blocking state on the session. The arbiter re-polls the
// original request every tick until data arrives or the deadline passes.
func (c *ctx) park(kind ValueType, keys []string, deadline int64) {
	c.parked = true
	if c.retrying {
		return // already registered
	}
	c.s.block = &blockState{
		kind:     kind,
		keys:     keys,
		db:       c.s.db,
		args:     c.args,
		wire:     c.wire,
		deadline: deadline,
	}
	c.srv.parkSession(c.s)
}

// mayBlock reports whether this invocation is allowed to park: not inside
// MULTI..EXEC, not inside a script, not a blocked-session retry decision.
func (c *ctx) mayBlock() bool {
	return c.script == nil && !c.s.inMulti && !c.srv.inExec
}

// Exec runs args through the full dispatch pipeline for session s and
// returns the encoded reply. A parked blocking command returns nil.
func (srv *Server) Exec(s *Session, args [][]byte, wire int) []byte {
	return srv.exec(&ctx{srv: srv, s: s, args: args, wire: wire})
}

// execScript dispatches a command issued by the scripting VM's callback.
func (srv *Server) execScript(s *Session, args [][]byte, sr *scriptRun) []byte {
	return srv.exec(&ctx{srv: srv, s: s, args: args, wire: len(resp.EncodeCommand(args...)), script: sr})
}

func (srv *Server) exec(c *ctx) []byte {
	s := c.s
	c.db = srv.dbs[s.db]
	c.w = resp.NewReplyWriter(s.proto3)

	if len(c.args) == 0 {
		return nil
	}
	name := upperCmd(c.args[0])
	cmd := srv.commands[name]

	// table miss / arity first: inside MULTI these taint the transaction
	if cmd == nil {
		srv.stats.totalCommands++
		if s.inMulti {
			s.multiDirty = true
		}
		c.w.Error(unknownCmdError(c.args))
		srv.binError(c.w.Bytes())
		return c.w.Bytes()
	}
	c.cmd = cmd
	st := srv.cmdStat(name)
	srv.stats.totalCommands++

	if !cmd.arityOK(len(c.args)) {
		if s.inMulti {
			s.multiDirty = true
		}
		st.rejected++
		c.w.Error(errWrongArgs(strings.ToLower(name)))
		srv.binError(c.w.Bytes())
		return c.w.Bytes()
	}

	// gate a (plus auth and script-callback restrictions) applies even to
	// commands about to be queued
	if msg := srv.gatesEarly(c, name); msg != "" {
		if s.inMulti && name != "MULTI" {
			s.multiDirty = true
		}
		st.rejected++
		c.w.Error(msg)
		srv.binError(c.w.Bytes())
		return c.w.Bytes()
	}

	// b. transaction queueing: everything but the transaction-control set
	// is buffered and answered QUEUED. Gates c-g are deferred to the
	// re-dispatch at EXEC time.
	if s.inMulti && !isTxControl(name) {
		s.queued = append(s.queued, queuedCmd{args: c.args, wire: c.wire})
		c.w.SimpleString("QUEUED")
		return c.w.Bytes()
	}

	if msg := srv.gatesLate(c, name); msg != "" {
		st.rejected++
		c.w.Error(msg)
		srv.binError(c.w.Bytes())
		return c.w.Bytes()
	}

	st.calls++
	cmd.handler(c)
	if c.parked {
		return nil
	}

	reply := c.w.Bytes()
	if len(reply) > 0 && reply[0] == resp.TypeError {
		st.errors++
		srv.binError(reply)
	} else if cmd.is(flagWrite) && c.dirty > 0 {
		srv.journal.BumpEpoch()
		srv.journal.AddOffset(c.wire)
		if !c.suppressRepl && !c.explicitRepl && !srv.loading {
			srv.journal.Propagate(c.db.id, c.args...)
		}
		srv.stats.dirtySinceSave += int64(c.dirty)
	}
	return reply
}

// gatesEarly applies the checks that precede transaction queueing:
// authentication, script-callback restrictions and the script-busy gate.
func (srv *Server) gatesEarly(c *ctx, name string) string {
	s, cmd := c.s, c.cmd

	// authentication
	if srv.requiresAuth() && !s.authed && !cmd.is(flagNoAuth) {
		return errNoAuth
	}

	// script callback restrictions
	if c.script != nil {
		if cmd.is(flagNoScript) {
			return errNoScriptCmd
		}
		if c.script.readonly && cmd.is(flagWrite) {
			return errScriptRO
		}
	}

	// a. script-busy: only the kill set may run while a script hogs the vm
	if c.script == nil && srv.scripts.busy() && !busyAllowed(name, c.args) {
		return errBusyScript
	}

	return ""
}

// gatesLate applies the post-queueing checks in redis's precedence order,
// returning the error message of the first gate that denies. Queued
// commands meet these at EXEC's re-dispatch.
func (srv *Server) gatesLate(c *ctx, name string) string {
	s, cmd := c.s, c.cmd

	// c. cluster slot
	if msg := srv.cluster.check(c); msg != "" {
		return msg
	}

	// d. OOM
	if cmd.is(flagDenyOOM) && !oomExempt(name) && !(c.script != nil && c.script.allowOOM) {
		if max := srv.config.GetInt("maxmemory", 0); max > 0 && srv.usedMemory() > max {
			return errOOM
		}
	}

	// e. replica write
	if cmd.is(flagWrite) && srv.isReplica() && !s.fromMaster && srv.config.GetBool("replica-read-only") {
		return errReadonly
	}

	// f. min-replicas-to-write
	if cmd.is(flagWrite) && !s.fromMaster {
		if min := srv.config.GetInt("min-replicas-to-write", 0); min > 0 && int64(srv.goodReplicas()) < min {
			return errNoReplicas
		}
	}

	// g. stale replica reads
	if srv.isReplica() && srv.masterLinkDown && !srv.config.GetBool("replica-serve-stale-data") && !cmd.is(flagStale) {
		return errMasterDown
	}

	return ""
}

func isTxControl(name string) bool {
	switch name {
	case "EXEC", "DISCARD", "MULTI", "WATCH", "QUIT", "RESET":
		return true
	}
	return false
}

func busyAllowed(name string, args [][]byte) bool {
	switch name {
	case "SCRIPT", "FUNCTION":
		return len(args) >= 2 && upperCmd(args[1]) == "KILL"
	case "SHUTDOWN":
		return len(args) >= 2 && upperCmd(args[1]) == "NOSAVE"
	case "MULTI":
		return true
	}
	return false
}

func oomExempt(name string) bool {
	switch name {
	case "CONFIG", "FLUSHDB", "FLUSHALL":
		return true
	}
	return false
}

func unknownCmdError(args [][]byte) string {
	var b strings.Builder
	b.WriteString("ERR unknown command '")
	b.WriteString(string(args[0]))
	b.WriteString("', with args beginning with: ")
	for i := 1; i < len(args) && i <= 10; i++ {
		b.WriteString(strconv.Quote(string(args[i])))
		b.WriteString(", ")
	}
	return b.String()
}

type cmdStat struct {
	calls    int64
	errors   int64
	rejected int64
}

func (srv *Server) cmdStat(name string) *cmdStat {
	st := srv.cmdStats[name]
	if st == nil {
		st = &cmdStat{}
		srv.cmdStats[name] = st
	}
	return st
}

// binError buckets an error reply by its space-terminated code prefix.
func (srv *Server) binError(reply []byte) {
	if len(reply) == 0 || reply[0] != resp.TypeError {
		return
	}
	code := reply[1:]
	for i, b := range code {
		if b == ' ' || b == '\r' {
			code = code[:i]
			break
		}
	}
	srv.errStats[string(code)]++
}
