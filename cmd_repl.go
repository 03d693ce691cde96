package peadb

import (
	"strconv"

	"github.com/alsatianco/peadb/resp"
)

// cmdReplicaOf serves REPLICAOF and the legacy SLAVEOF. The outbound
// master link itself belongs to the connection collaborator; the engine
// tracks the role switch.
func cmdReplicaOf(c *ctx) {
	host, port := c.str(1), c.str(2)
	if upperCmd(c.arg(1)) == "NO" && upperCmd(c.arg(2)) == "ONE" {
		if c.srv.isReplica() && c.srv.Logger != nil {
			c.srv.Logger.Info("MASTER MODE enabled (user request)")
		}
		c.srv.masterHost = ""
		c.srv.masterPort = ""
		c.srv.masterLinkDown = false
		c.w.OK()
		return
	}
	if _, err := strconv.Atoi(port); err != nil {
		c.w.Error("ERR Invalid master port")
		return
	}
	c.srv.masterHost = host
	c.srv.masterPort = port
	c.srv.masterLinkDown = false
	if c.srv.Logger != nil {
		c.srv.Logger.Info("REPLICAOF %s:%s enabled (user request)", host, port)
	}
	c.w.OK()
}

func cmdReplConf(c *ctx) {
	if c.argc() < 2 {
		c.w.OK()
		return
	}
	switch upperCmd(c.arg(1)) {
	case "LISTENING-PORT":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("replconf"))
			return
		}
		c.s.listeningPort = c.str(2)
		c.w.OK()
	case "CAPA":
		for i := 2; i < c.argc(); i++ {
			c.s.capa = append(c.s.capa, lower(c.str(i)))
		}
		c.w.OK()
	case "GETACK":
		// replica side: report the offset seen so far; no status reply
		c.w.Raw(resp.EncodeCommandStr("REPLCONF", "ACK", itoa(c.srv.journal.Offset())))
	case "ACK":
		if c.argc() == 3 {
			if off, ok := parseI64(c.arg(2)); ok {
				c.s.ackOffset = off
			}
		}
		// ACK gets no reply at all
	default:
		c.w.OK()
	}
}

// cmdPSync serves PSYNC and the legacy SYNC: full resynchronization (a
// snapshot blob) followed by enrollment on the live event stream.
func cmdPSync(c *ctx) {
	full := upperCmd(c.arg(0)) == "PSYNC"
	blob := c.srv.snapshotBytes()
	if full {
		c.w.SimpleString("FULLRESYNC " + c.srv.journal.ReplID() + " " + itoa(c.srv.journal.Offset()))
	}
	c.w.Bulk(blob)
	c.s.replica = true
	c.s.fromMaster = false
	c.s.replIndex = len(c.srv.journal.Events())
	// the next streamed event must restate the db context
	c.srv.journal.lastDB = -1
	c.srv.replicas = append(c.srv.replicas, c.s)
	if c.srv.Logger != nil {
		c.srv.Logger.Info("replica session %d enrolled (offset %d)", c.s.id, c.srv.journal.Offset())
	}
}

func cmdWait(c *ctx) {
	numreplicas, ok1 := parseI64(c.arg(1))
	timeoutMS, ok2 := parseI64(c.arg(2))
	if !ok1 || !ok2 {
		c.w.Error(errNotInt)
		return
	}
	if timeoutMS < 0 {
		c.w.Error("ERR timeout is negative")
		return
	}
	offset := c.srv.journal.Offset()
	acked := c.srv.countAcked(offset)
	if int64(acked) >= numreplicas || !c.mayBlock() {
		c.w.Int(int64(acked))
		return
	}
	deadline := int64(0)
	if timeoutMS > 0 {
		deadline = c.nowMS() + timeoutMS
	}
	c.parked = true
	c.s.wait = &waitState{
		numreplicas: int(numreplicas),
		offset:      offset,
		deadline:    deadline,
	}
	c.srv.waiting = append(c.srv.waiting, c.s)
}
