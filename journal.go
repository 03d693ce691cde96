package peadb

import (
	"strconv"

	"github.com/alsatianco/peadb/resp"
)

// Journal owns the process-wide write-visibility state: the mutation epoch,
// the replication offset, and the replication event log. It is owned by the
// executor; nothing in here locks.
type Journal struct {
	epoch  uint64
	offset int64
	replid string

	events [][]byte // fully-encoded RESP events, append-only
	lastDB int      // db targeted by the last emitted event

	// transaction capture: while a MULTI body executes, events divert to
	// txbuf and flush atomically (bracketed when 2+ writes) on commit.
	intx  bool
	txbuf [][]byte
	txdb  []int
}

func newJournal(replid string) *Journal {
	return &Journal{replid: replid, lastDB: -1}
}

func (j *Journal) Epoch() uint64  { return j.epoch }
func (j *Journal) BumpEpoch()     { j.epoch++ }
func (j *Journal) Offset() int64  { return j.offset }
func (j *Journal) ReplID() string { return j.replid }

// AddOffset accounts the byte length of an accepted write's original RESP
// encoding, matching redis's offset arithmetic.
func (j *Journal) AddOffset(n int) { j.offset += int64(n) }

// Propagate appends one rewritten write event for database db.
func (j *Journal) Propagate(db int, args ...[]byte) {
	if j.intx {
		j.txbuf = append(j.txbuf, resp.EncodeCommand(args...))
		j.txdb = append(j.txdb, db)
		return
	}
	j.selectDB(db)
	j.events = append(j.events, resp.EncodeCommand(args...))
}

// PropagateStr is Propagate for string arguments.
func (j *Journal) PropagateStr(db int, args ...string) {
	b := make([][]byte, len(args))
	for i, s := range args {
		b[i] = []byte(s)
	}
	j.Propagate(db, b...)
}

func (j *Journal) selectDB(db int) {
	if db == j.lastDB {
		return
	}
	j.events = append(j.events,
		resp.EncodeCommand([]byte("SELECT"), []byte(strconv.Itoa(db))))
	j.lastDB = db
}

// BeginTx diverts subsequent events into the transaction side buffer.
func (j *Journal) BeginTx() {
	j.intx = true
	j.txbuf = j.txbuf[:0]
	j.txdb = j.txdb[:0]
}

// CommitTx flushes captured events to the main log. Two or more writes are
// wrapped in MULTI/EXEC markers so replicas apply them atomically; a single
// write flushes unwrapped.
func (j *Journal) CommitTx() {
	j.intx = false
	if len(j.txbuf) == 0 {
		return
	}
	wrap := len(j.txbuf) >= 2
	if wrap {
		j.selectDB(j.txdb[0])
		j.events = append(j.events, resp.EncodeCommand([]byte("MULTI")))
	}
	for i, ev := range j.txbuf {
		j.selectDB(j.txdb[i])
		j.events = append(j.events, ev)
	}
	if wrap {
		j.events = append(j.events, resp.EncodeCommand([]byte("EXEC")))
	}
	j.txbuf = j.txbuf[:0]
	j.txdb = j.txdb[:0]
}

// AbortTx drops captured events without emitting.
func (j *Journal) AbortTx() {
	j.intx = false
	j.txbuf = j.txbuf[:0]
	j.txdb = j.txdb[:0]
}

// Events returns the full event log (test/replica bootstrap use).
func (j *Journal) Events() [][]byte { return j.events }

// EventsSince returns events at or after index i and the new index.
func (j *Journal) EventsSince(i int) ([][]byte, int) {
	if i >= len(j.events) {
		return nil, i
	}
	return j.events[i:], len(j.events)
}
