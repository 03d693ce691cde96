package peadb

import (
	"net"
	"sync"
)

// sessionState tracks where a session is in its lifecycle.
type sessionState uint8

const (
	sessIdle sessionState = iota
	sessInMulti
	sessInMultiDirty
	sessBlocked
	sessReplicaStreaming
)

// watchEntry is one WATCHed key: the db it lives in, the epoch at snapshot
// time and the content digest (0 = key absent).
type watchEntry struct {
	db     int
	key    string
	epoch  uint64
	digest uint64
}

// queuedCmd is one command buffered between MULTI and EXEC.
type queuedCmd struct {
	args [][]byte
	wire int // original RESP encoding size, for offset accounting at EXEC
}

// blockState parks a session on a blocking command.
type blockState struct {
	kind     ValueType // TypeList, TypeZSet or TypeStream
	keys     []string
	db       int
	args     [][]byte // original request, retried verbatim on each tick
	wire     int
	deadline int64 // absolute ms; 0 = block forever
}

// waitState parks a session on WAIT.
type waitState struct {
	numreplicas int
	offset      int64 // master offset captured at WAIT time
	deadline    int64 // absolute ms; 0 = no timeout
}

// Session is the per-connection state. Everything except the output buffer
// is owned by the executor; the output buffer has its own small lock since
// the connection's writer goroutine drains it.
type Session struct {
	id   int64
	srv  *Server
	conn net.Conn // nil for in-process sessions (tests, script shim)

	name       string
	proto3     bool
	authed     bool
	db         int
	asking     bool
	closed     bool
	fromMaster bool // commands delivered over the replication link

	quitAfterWrite bool // QUIT: close once the reply drains

	// MULTI/EXEC
	inMulti    bool
	multiDirty bool
	queued     []queuedCmd
	watches    []watchEntry

	// blocking arbiter
	block   *blockState
	wait    *waitState
	pending []*request // requests received while parked

	// replica streaming
	replica       bool
	replIndex     int
	ackOffset     int64
	listeningPort string
	capa          []string

	// output: offset-tracked so partial socket writes never shift data
	wmu  sync.Mutex
	out  []byte
	wpos int
	wake chan struct{}
	done chan struct{} // closed when the session is torn down
}

func (s *Session) state() sessionState {
	switch {
	case s.replica:
		return sessReplicaStreaming
	case s.block != nil || s.wait != nil:
		return sessBlocked
	case s.inMulti && s.multiDirty:
		return sessInMultiDirty
	case s.inMulti:
		return sessInMulti
	}
	return sessIdle
}

// write queues reply bytes for the connection writer and signals it.
func (s *Session) write(b []byte) {
	if len(b) == 0 {
		return
	}
	s.wmu.Lock()
	s.out = append(s.out, b...)
	s.wmu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// takeOutput returns and clears buffered output (connection writer + tests).
func (s *Session) takeOutput() []byte {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.wpos >= len(s.out) {
		s.out = s.out[:0]
		s.wpos = 0
		return nil
	}
	b := make([]byte, len(s.out)-s.wpos)
	copy(b, s.out[s.wpos:])
	s.out = s.out[:0]
	s.wpos = 0
	return b
}

// clearMulti resets all transaction state (EXEC, DISCARD, RESET, close).
func (s *Session) clearMulti() {
	s.inMulti = false
	s.multiDirty = false
	s.queued = nil
	s.watches = nil
}

// reset reverts the session to a fresh post-connect state (RESET command).
func (s *Session) reset() {
	s.clearMulti()
	s.block = nil
	s.wait = nil
	s.pending = nil
	s.db = 0
	s.asking = false
	s.name = ""
	s.proto3 = false
	s.authed = !s.srv.requiresAuth()
}

// request is one parsed client request traveling to the executor. The
// register/close variants let connection goroutines mutate the session map
// on the executor.
type request struct {
	sess *Session
	args [][]byte
	wire int // byte length of the original RESP encoding

	close      bool
	register   func() *Session
	registered chan *Session
}
