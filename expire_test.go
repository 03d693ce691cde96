package peadb

import (
	"strconv"
	"testing"
	"time"

	"github.com/rsms/go-testutil"
)

func TestActiveExpireSweep(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	for i := 0; i < 32; i++ {
		e.do("SET", "doomed:"+strconv.Itoa(i), "x", "PX", "10")
	}
	e.do("SET", "kept", "y")
	e.clk.Add(50 * time.Millisecond)

	// several sweeps; each inspects a bounded number of candidates but
	// random sampling converges quickly on a tiny keyspace
	for i := 0; i < 50; i++ {
		e.clk.Add(time.Duration(expireSweepPeriod) * time.Millisecond)
		e.srv.activeExpireCycle()
	}
	assert.Eq("only the live key remains", e.srv.dbs[0].Len(), 1)
	assert.Ok("expired stat counted", e.srv.stats.expiredKeys >= 32)

	// each removal produced a synthetic DEL
	dels := 0
	for _, ev := range e.events() {
		if ev[0] == "DEL" {
			dels++
		}
	}
	assert.Eq("del events", dels, 32)
}

func TestDebugSetActiveExpire(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newTestEngine(t)

	assert.Eq("disable", e.do("DEBUG", "SET-ACTIVE-EXPIRE", "0"), "+OK\r\n")
	e.do("SET", "k", "v", "PX", "10")
	e.clk.Add(time.Second)
	e.srv.activeExpireCycle()
	// still present in the dict (though logically absent)
	assert.Eq("sweep disabled", e.srv.dbs[0].dict.Len(), 1)
	assert.Eq("but reads observe it gone", e.do("EXISTS", "k"), intReply(0))
	assert.Eq("re-enable", e.do("DEBUG", "SET-ACTIVE-EXPIRE", "1"), "+OK\r\n")
}
