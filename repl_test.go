package peadb

import (
	"strings"
	"testing"

	"github.com/rsms/go-testutil"
)

func TestPSyncEnrollsReplica(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	replica := e.session()

	e.do("SET", "a", "1")
	reply := e.doOn(replica, "PSYNC", "?", "-1")
	assert.Ok("fullresync header",
		strings.HasPrefix(reply, "+FULLRESYNC "+e.srv.journal.ReplID()))
	assert.Ok("snapshot blob follows", strings.Contains(reply, "\r\n$"))
	assert.Ok("enrolled", replica.replica)
	assert.Eq("one replica", len(e.srv.replicas), 1)

	// writes after enrollment stream to the replica
	e.do("SET", "b", "2")
	out := string(replica.takeOutput())
	assert.Ok("streamed set", strings.Contains(out, "SET"))
	assert.Ok("streamed select", strings.Contains(out, "SELECT"))
}

func TestReplConfAck(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	replica := e.session()

	assert.Eq("listening-port", e.doOn(replica, "REPLCONF", "listening-port", "6380"), "+OK\r\n")
	assert.Eq("capa", e.doOn(replica, "REPLCONF", "capa", "eof", "capa", "psync2"), "+OK\r\n")
	e.doOn(replica, "PSYNC", "?", "-1")

	e.do("SET", "a", "1")
	off := e.srv.journal.Offset()

	// ACK carries no reply at all
	assert.Eq("silent ack", e.doOn(replica, "REPLCONF", "ACK", itoa(off)), "")
	assert.Eq("ack recorded", replica.ackOffset, off)

	// GETACK on the replica side reports the current offset
	getack := e.do("REPLCONF", "GETACK", "*")
	assert.Ok("replies with ack", strings.Contains(getack, "ACK"))
}

func TestWaitSatisfiedByAck(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	replica := e.session()

	e.doOn(replica, "PSYNC", "?", "-1")
	replica.takeOutput()
	e.do("SET", "a", "1")
	off := e.srv.journal.Offset()

	e.do("WAIT", "1", "0")
	assert.Ok("parked until ack", e.sess.wait != nil)

	e.doOn(replica, "REPLCONF", "ACK", itoa(off))
	e.srv.Tick()
	assert.Eq("released with count", string(e.sess.takeOutput()), intReply(1))
}

func TestReplicaSessionDropsOnClose(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)
	replica := e.session()

	e.doOn(replica, "SYNC")
	assert.Eq("enrolled", len(e.srv.replicas), 1)
	e.srv.closeSession(replica)
	assert.Eq("dropped", len(e.srv.replicas), 0)
}

func TestInfoReplicationSection(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	info := e.srv.renderInfo("replication")
	assert.Ok("master role", strings.Contains(info, "role:master"))
	assert.Ok("offset", strings.Contains(info, "master_repl_offset:0"))

	e.do("REPLICAOF", "example.org", "6379")
	info = e.srv.renderInfo("replication")
	assert.Ok("slave role", strings.Contains(info, "role:slave"))
	assert.Ok("master host", strings.Contains(info, "master_host:example.org"))
	assert.Ok("link up", strings.Contains(info, "master_link_status:up"))
}
