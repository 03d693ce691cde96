package peadb

import (
	"strconv"
	"strings"
)

func cmdCluster(c *ctx) {
	sub := upperCmd(c.arg(1))
	switch sub {
	case "INFO":
		var b strings.Builder
		b.WriteString("cluster_enabled:0\r\n")
		b.WriteString("cluster_state:ok\r\n")
		b.WriteString("cluster_slots_assigned:" + strconv.Itoa(c.srv.cluster.ownedCount()) + "\r\n")
		b.WriteString("cluster_slots_ok:" + strconv.Itoa(c.srv.cluster.ownedCount()) + "\r\n")
		b.WriteString("cluster_slots_pfail:0\r\n")
		b.WriteString("cluster_slots_fail:0\r\n")
		b.WriteString("cluster_known_nodes:1\r\n")
		b.WriteString("cluster_size:1\r\n")
		c.w.BulkString(b.String())
	case "MYID":
		c.w.BulkString(c.srv.clusterID())
	case "KEYSLOT":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("cluster|keyslot"))
			return
		}
		c.w.Int(int64(Slot(c.arg(2))))
	case "COUNTKEYSINSLOT":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("cluster|countkeysinslot"))
			return
		}
		slot, ok := parseI64(c.arg(2))
		if !ok || slot < 0 || slot >= numSlots {
			c.w.Error("ERR Invalid slot")
			return
		}
		n := int64(0)
		c.db.dict.Each(func(key string, _ *Entry) bool {
			if Slot([]byte(key)) == int(slot) {
				n++
			}
			return true
		})
		c.w.Int(n)
	case "SETSLOT":
		// CLUSTER SETSLOT <slot> {STABLE | MOVED addr | ASK addr}
		if c.argc() < 4 {
			c.w.Error(errWrongArgs("cluster|setslot"))
			return
		}
		slot, ok := parseI64(c.arg(2))
		if !ok || slot < 0 || slot >= numSlots {
			c.w.Error("ERR Invalid slot")
			return
		}
		switch upperCmd(c.arg(3)) {
		case "STABLE":
			c.srv.cluster.setSlot(int(slot), routeOwned, "")
		case "MOVED", "MIGRATING":
			if c.argc() != 5 {
				c.w.Error(errWrongArgs("cluster|setslot"))
				return
			}
			c.srv.cluster.setSlot(int(slot), routeMoved, c.str(4))
		case "ASK", "IMPORTING":
			if c.argc() != 5 {
				c.w.Error(errWrongArgs("cluster|setslot"))
				return
			}
			c.srv.cluster.setSlot(int(slot), routeAsk, c.str(4))
		default:
			c.w.Error(errSyntax)
			return
		}
		c.w.OK()
	case "SLOTS":
		// one range covering every slot, owned by this node; slots redirected
		// with CLUSTER SETSLOT are still included
		c.w.ArrayHeader(1)
		c.w.ArrayHeader(3)
		c.w.Int(0)
		c.w.Int(numSlots - 1)
		c.w.ArrayHeader(3)
		c.w.BulkString("127.0.0.1")
		c.w.Int(c.srv.config.GetInt("port", 6379))
		c.w.BulkString(c.srv.clusterID())
	case "SHARDS":
		c.w.ArrayHeader(0)
	case "RESET":
		c.srv.cluster = newSlotMap()
		c.w.OK()
	default:
		c.w.Error(errUnknownSub(lower(sub), "CLUSTER"))
	}
}

// clusterID is a stable 40-char node id derived from the replication id.
func (srv *Server) clusterID() string {
	return srv.journal.ReplID()
}

func cmdAsking(c *ctx) {
	c.s.asking = true
	c.w.OK()
}

// cmdReadOnlyMode serves READONLY and READWRITE (cluster replica reads;
// accepted as no-ops on a standalone node).
func cmdReadOnlyMode(c *ctx) {
	c.w.OK()
}
