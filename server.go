package peadb

import (
	"encoding/hex"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/alsatianco/peadb/resp"
	"github.com/benbjohnson/clock"
	"github.com/rsms/go-log"
	"github.com/rsms/go-uuid"
)

const (
	numDatabases = 16

	// the dispatcher ticks at WAIT-poll granularity; the active expiry
	// sweep rate-limits itself to expireSweepPeriod inside the tick
	tickInterval      = 10 * time.Millisecond
	expireSweepPeriod = int64(100) // ms, 10 Hz
)

type serverStats struct {
	totalConnections int64
	totalCommands    int64
	expiredKeys      int64
	keyspaceHits     int64
	keyspaceMisses   int64
	dirtySinceSave   int64
}

// Server is the command engine: one logical executor owns the keyspace, the
// command table, the session map, the journal and all dispatch state.
// Connection goroutines only parse bytes and queue requests.
type Server struct {
	Logger *log.Logger

	clk    clock.Clock
	rng    *rand.Rand
	config *configMap

	dbs      []*DB
	journal  *Journal
	commands map[string]*Command
	scripts  *scriptShim
	cluster  *slotMap
	vm       ScriptVM

	sessions map[int64]*Session
	blocked  []*Session // parked sessions in park order
	waiting  []*Session // sessions parked on WAIT
	replicas []*Session

	cmdStats map[string]*cmdStat
	errStats map[string]int64
	stats    serverStats

	// atomic counters are the only state shared outside the executor
	connectedClients int64 // atomic

	reqc     chan *request
	stopc    chan struct{}
	listener net.Listener

	nextSessionID int64
	replaySess    *Session
	startTime     time.Time
	loading      bool // replaying a persistence artifact; no propagation
	inExec       bool // executing a MULTI body
	shuttingDown int32 // atomic

	// replication role
	masterHost     string
	masterPort     string
	masterLinkDown bool

	// persistence
	lastSaveUnix      int64
	bgsaveInProgress  int64 // atomic
	activeExpire      bool
	lastExpireSweepMS int64
}

// Options configures a Server. The zero value works for tests.
type Options struct {
	Logger *log.Logger
	Clock  clock.Clock
	VM     ScriptVM
	Seed   int64
}

func NewServer(opt Options) *Server {
	clk := opt.Clock
	if clk == nil {
		clk = clock.New()
	}
	seed := opt.Seed
	if seed == 0 {
		seed = clk.Now().UnixNano()
	}
	srv := &Server{
		Logger:       opt.Logger,
		clk:          clk,
		rng:          rand.New(rand.NewSource(seed)),
		config:       defaultConfig().NewScope(),
		journal:      newJournal(genReplID()),
		commands:     buildCommandTable(),
		sessions:     make(map[int64]*Session),
		cmdStats:     make(map[string]*cmdStat),
		errStats:     make(map[string]int64),
		reqc:         make(chan *request, 128),
		stopc:        make(chan struct{}),
		startTime:    clk.Now(),
		activeExpire: true,
		vm:           opt.VM,
	}
	srv.dbs = make([]*DB, numDatabases)
	for i := range srv.dbs {
		srv.dbs[i] = newDB(srv, i)
	}
	srv.scripts = newScriptShim(srv)
	srv.cluster = newSlotMap()
	return srv
}

// genReplID derives the 40-hex-char replication id.
func genReplID() string {
	h := hex.EncodeToString([]byte(uuid.MustGen().String()))
	return (h + h)[:40]
}

func (srv *Server) nowMS() int64 {
	if srv.scripts != nil && srv.scripts.running != nil {
		// wall-clock is frozen for the duration of a script
		return srv.scripts.running.startMS
	}
	return srv.clk.Now().UnixMilli()
}

// ConfigSet applies a configuration parameter before or after startup.
func (srv *Server) ConfigSet(name, value string) {
	srv.config.Set(name, value)
}

func (srv *Server) requiresAuth() bool {
	pass, _ := srv.config.Get("requirepass")
	return pass != ""
}

func (srv *Server) isReplica() bool { return srv.masterHost != "" }

// usedMemory approximates resident keyspace bytes for the maxmemory gate.
func (srv *Server) usedMemory() int64 {
	var z int64 = 512 * 1024 // process baseline
	for _, db := range srv.dbs {
		db.dict.Each(func(key string, e *Entry) bool {
			z += int64(len(key)) + e.sizeEstimate()
			return true
		})
	}
	return z
}

// goodReplicas counts enrolled replicas whose session is still open, for
// min-replicas-to-write. Ack offsets and min-replicas-max-lag are not
// consulted.
func (srv *Server) goodReplicas() int {
	n := 0
	for _, r := range srv.replicas {
		if !r.closed {
			n++
		}
	}
	return n
}

// NewSession registers an in-process session (tests, the script shim, AOF
// replay). conn may be nil.
func (srv *Server) NewSession(conn net.Conn) *Session {
	srv.nextSessionID++
	s := &Session{
		id:     srv.nextSessionID,
		srv:    srv,
		conn:   conn,
		authed: !srv.requiresAuth(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	srv.sessions[s.id] = s
	atomic.AddInt64(&srv.connectedClients, 1)
	srv.stats.totalConnections++
	return s
}

func (srv *Server) closeSession(s *Session) {
	if s.closed {
		return
	}
	s.closed = true
	delete(srv.sessions, s.id)
	srv.unparkSession(s)
	for i, r := range srv.replicas {
		if r == s {
			srv.replicas = append(srv.replicas[:i], srv.replicas[i+1:]...)
			break
		}
	}
	atomic.AddInt64(&srv.connectedClients, -1)
	close(s.done)
	if s.conn != nil && !s.quitAfterWrite {
		s.conn.Close() // QUIT lets the writer close after the reply drains
	}
}

func (srv *Server) parkSession(s *Session) {
	srv.blocked = append(srv.blocked, s)
}

func (srv *Server) unparkSession(s *Session) {
	s.block = nil
	for i, b := range srv.blocked {
		if b == s {
			srv.blocked = append(srv.blocked[:i], srv.blocked[i+1:]...)
			break
		}
	}
}

// dispatch handles one request on the executor. Requests arriving while the
// session is parked wait until it unblocks.
func (srv *Server) dispatch(r *request) {
	if r.register != nil {
		r.registered <- r.register()
		return
	}
	s := r.sess
	if s.closed {
		return
	}
	if r.close {
		srv.closeSession(s)
		return
	}
	if s.block != nil || s.wait != nil {
		s.pending = append(s.pending, r)
		return
	}
	reply := srv.Exec(s, r.args, r.wire)
	s.write(reply)
	if s.quitAfterWrite {
		srv.closeSession(s)
	}
	srv.afterCommand()
}

// afterCommand runs the between-commands work: newly available data may
// wake parked sessions, and new journal entries stream to replicas.
func (srv *Server) afterCommand() {
	srv.serveBlocked()
	srv.flushReplicas()
}

// Tick is one dispatcher tick: deadline checks, blocked re-polls, the
// active expiry sweep, WAIT polls and replica streaming.
func (srv *Server) Tick() {
	srv.activeExpireCycle()
	srv.serveBlocked()
	srv.pollWaits()
	srv.flushReplicas()
}

// Run owns the executor loop until Shutdown. External I/O happens in the
// connection goroutines; everything else happens here, serially.
func (srv *Server) Run() {
	ticker := srv.clk.Ticker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case r := <-srv.reqc:
			srv.dispatch(r)
		case <-ticker.C:
			srv.Tick()
		case <-srv.stopc:
			return
		}
	}
}

// Shutdown stops the executor and the listener. Safe to call twice.
func (srv *Server) Shutdown() {
	if !atomic.CompareAndSwapInt32(&srv.shuttingDown, 0, 1) {
		return
	}
	close(srv.stopc)
	if srv.listener != nil {
		srv.listener.Close()
	}
}

// Listen binds the TCP listener.
func (srv *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv.listener = ln
	if srv.Logger != nil {
		srv.Logger.Info("listening on %s", ln.Addr())
	}
	return nil
}

func (srv *Server) Addr() string {
	if srv.listener == nil {
		return ""
	}
	return srv.listener.Addr().String()
}

// Serve accepts connections until the listener closes. Each connection gets
// a reader goroutine (parse + enqueue) and a writer goroutine (drain the
// session's output buffer).
func (srv *Server) Serve() error {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			if atomic.LoadInt32(&srv.shuttingDown) != 0 {
				return nil
			}
			return err
		}
		maxclients := srv.config.GetInt("maxclients", 10000)
		if atomic.LoadInt64(&srv.connectedClients) >= maxclients {
			conn.Write([]byte("-ERR max number of clients reached\r\n"))
			conn.Close()
			continue
		}
		go srv.serveConn(conn)
	}
}

func (srv *Server) serveConn(conn net.Conn) {
	// session registration must happen on the executor
	done := make(chan *Session, 1)
	srv.reqc <- &request{sess: nil, args: nil, register: func() *Session {
		return srv.NewSession(conn)
	}, registered: done}
	s := <-done
	if s == nil {
		conn.Close()
		return
	}

	go srv.connWriter(s, conn)

	buf := make([]byte, 0, 16*1024)
	read := make([]byte, 16*1024)
	for {
		n, err := conn.Read(read)
		if n > 0 {
			buf = append(buf, read[:n]...)
			for {
				args, consumed, derr := resp.DecodeRequest(buf)
				if derr == resp.ErrIncomplete {
					break
				}
				if derr != nil {
					if pe, ok := derr.(*resp.ProtocolError); ok {
						conn.Write(resp.AppendError(nil, pe.Msg))
					}
					conn.Close()
					srv.reqc <- &request{sess: s, close: true}
					return
				}
				wire := consumed
				buf = buf[:copy(buf, buf[consumed:])]
				if len(args) > 0 {
					srv.reqc <- &request{sess: s, args: args, wire: wire}
				}
			}
		}
		if err != nil {
			srv.reqc <- &request{sess: s, close: true}
			return
		}
	}
}

func (srv *Server) connWriter(s *Session, conn net.Conn) {
	for {
		select {
		case <-s.wake:
		case <-s.done:
			srv.drainOutput(s, conn)
			return
		}
		if !srv.drainOutput(s, conn) {
			return
		}
		if s.quitAfterWrite {
			conn.Close()
			return
		}
	}
}

// drainOutput flushes the session's buffered output; the write position
// advances per chunk so partial writes never shift the buffer.
func (srv *Server) drainOutput(s *Session, conn net.Conn) bool {
	for {
		s.wmu.Lock()
		if s.wpos >= len(s.out) {
			s.out = s.out[:0]
			s.wpos = 0
			s.wmu.Unlock()
			return true
		}
		chunk := s.out[s.wpos:]
		s.wmu.Unlock()
		n, err := conn.Write(chunk)
		if err != nil {
			return false
		}
		s.wmu.Lock()
		s.wpos += n
		s.wmu.Unlock()
	}
}

// flushReplicas streams new journal events to every enrolled replica.
func (srv *Server) flushReplicas() {
	for _, r := range srv.replicas {
		events, next := srv.journal.EventsSince(r.replIndex)
		if len(events) == 0 {
			continue
		}
		var buf []byte
		for _, ev := range events {
			buf = append(buf, ev...)
		}
		r.replIndex = next
		r.write(buf)
	}
}

// pollWaits resolves WAIT parks whose condition or deadline is met.
func (srv *Server) pollWaits() {
	if len(srv.waiting) == 0 {
		return
	}
	now := srv.nowMS()
	remaining := srv.waiting[:0]
	for _, s := range srv.waiting {
		ws := s.wait
		if ws == nil || s.closed {
			continue
		}
		acked := srv.countAcked(ws.offset)
		if acked >= ws.numreplicas || (ws.deadline != 0 && now >= ws.deadline) {
			s.wait = nil
			w := resp.NewReplyWriter(s.proto3)
			w.Int(int64(acked))
			s.write(w.Bytes())
			srv.drainPending(s)
			continue
		}
		remaining = append(remaining, s)
	}
	srv.waiting = remaining
}

func (srv *Server) countAcked(offset int64) int {
	n := 0
	for _, r := range srv.replicas {
		if !r.closed && r.ackOffset >= offset {
			n++
		}
	}
	return n
}

// drainPending replays requests that queued up while the session was
// parked.
func (srv *Server) drainPending(s *Session) {
	pending := s.pending
	s.pending = nil
	for _, r := range pending {
		srv.dispatch(r)
	}
}
