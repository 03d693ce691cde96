package peadb

import (
	"strings"
	"testing"

	"github.com/rsms/go-testutil"
)

func TestSlotDerivation(t *testing.T) {
	assert := testutil.NewAssert(t)

	// redis's documented CRC16 reference vector
	assert.Eq("crc16 vector", crc16([]byte("123456789")), uint16(0x31C3))
	assert.Eq("slot of foo", Slot([]byte("foo")), 12182)

	// hash tags constrain the slot to the tag contents
	assert.Eq("tagged", Slot([]byte("{user1000}.following")), Slot([]byte("{user1000}.followers")))
	assert.Eq("tag equals bare", Slot([]byte("{foo}bar")), Slot([]byte("foo")))
	// an empty tag hashes the whole key
	assert.Eq("empty tag", Slot([]byte("{}x")), int(crc16([]byte("{}x")))%numSlots)
	assert.Ok("slot in range", Slot([]byte("anything")) < numSlots)
}

func TestClusterRedirects(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	e.do("SET", "foo", "v")
	slot := Slot([]byte("foo"))

	assert.Eq("setslot moved",
		e.do("CLUSTER", "SETSLOT", itoa(int64(slot)), "MOVED", "10.0.0.2:6379"), "+OK\r\n")
	assert.Eq("moved redirect", e.do("GET", "foo"),
		"-MOVED "+itoa(int64(slot))+" 10.0.0.2:6379\r\n")

	assert.Eq("setslot ask",
		e.do("CLUSTER", "SETSLOT", itoa(int64(slot)), "ASK", "10.0.0.3:6379"), "+OK\r\n")
	assert.Eq("ask redirect", e.do("GET", "foo"),
		"-ASK "+itoa(int64(slot))+" 10.0.0.3:6379\r\n")

	// ASKING is a one-shot pass
	assert.Eq("asking", e.do("ASKING"), "+OK\r\n")
	assert.Eq("passes once", e.do("GET", "foo"), bulk("v"))
	assert.Eq("redirects again", e.do("GET", "foo"),
		"-ASK "+itoa(int64(slot))+" 10.0.0.3:6379\r\n")

	assert.Eq("setslot stable",
		e.do("CLUSTER", "SETSLOT", itoa(int64(slot)), "STABLE"), "+OK\r\n")
	assert.Eq("owned again", e.do("GET", "foo"), bulk("v"))

	// keyless commands never redirect
	e.do("CLUSTER", "SETSLOT", itoa(int64(slot)), "MOVED", "10.0.0.2:6379")
	assert.Eq("ping unaffected", e.do("PING"), "+PONG\r\n")
}

func TestClusterIntrospection(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	assert.Eq("keyslot", e.do("CLUSTER", "KEYSLOT", "foo"), intReply(12182))
	info := e.do("CLUSTER", "INFO")
	assert.Ok("cluster info", strings.Contains(info, "cluster_enabled:0"))
	myid := e.do("CLUSTER", "MYID")
	assert.Eq("myid is 40 hex chars", myid[:4], "$40\r")
}
