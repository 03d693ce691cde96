package peadb

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rsms/go-json"
)

// The snapshot artifact is a line of JSON per live entry:
//
//	{"db":0,"key":"<hex>","expire":<abs ms>,"payload":"<hex dump payload>"}
//
// The payload reuses the DUMP codec, so the snapshot loader and RESTORE
// share one decode path.

// SnapshotEach drives the persistence collaborator: it yields every live
// (db, key, entry) tuple.
func (srv *Server) SnapshotEach(visit func(db int, key string, e *Entry) bool) {
	now := srv.nowMS()
	for _, db := range srv.dbs {
		stop := false
		db.dict.Each(func(key string, e *Entry) bool {
			if e.expireAt != 0 && e.expireAt <= now {
				return true
			}
			if !visit(db.id, key, e) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// snapshotBytes serializes the whole keyspace (also the PSYNC blob).
func (srv *Server) snapshotBytes() []byte {
	var out []byte
	srv.SnapshotEach(func(db int, key string, e *Entry) bool {
		var b json.Builder
		b.StartObject()
		b.Key("db")
		b.Int(int64(db), 64)
		b.Key("key")
		b.Str(hex.EncodeToString([]byte(key)))
		b.Key("expire")
		b.Int(e.expireAt, 64)
		b.Key("payload")
		b.Str(hex.EncodeToString(dumpEntry(e)))
		b.EndObject()
		out = append(out, b.Bytes()...)
		out = append(out, '\n')
		return true
	})
	return out
}

// loadSnapshot replays a snapshot blob into the keyspace. Used at startup
// and by a replica applying a full sync; nothing is propagated.
func (srv *Server) loadSnapshot(data []byte) error {
	srv.loading = true
	defer func() { srv.loading = false }()
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var r json.Reader
		r.ResetBytes(line)
		if !r.ObjectStart() {
			return errBadDumpPayload
		}
		var dbIdx int64
		var keyHex, payloadHex string
		var expire int64
		for {
			k := r.Key()
			if k == "" {
				break
			}
			switch k {
			case "db":
				dbIdx = r.Int(64)
			case "key":
				keyHex = r.Str()
			case "expire":
				expire = r.Int(64)
			case "payload":
				payloadHex = r.Str()
			default:
				r.Discard()
			}
		}
		if err := r.Err(); err != nil {
			return err
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return err
		}
		payload, err := hex.DecodeString(payloadHex)
		if err != nil {
			return err
		}
		e, err := loadDump(payload)
		if err != nil {
			return err
		}
		e.expireAt = expire
		if dbIdx >= 0 && dbIdx < int64(len(srv.dbs)) {
			srv.dbs[dbIdx].set(string(key), e)
		}
	}
	return nil
}

func (srv *Server) snapshotPath() string {
	dir, _ := srv.config.Get("dir")
	file, _ := srv.config.Get("dbfilename")
	return filepath.Join(dir, file)
}

// save writes the snapshot synchronously (SAVE, SHUTDOWN SAVE).
func (srv *Server) save() error {
	data := srv.snapshotBytes()
	path := srv.snapshotPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	srv.lastSaveUnix = srv.clk.Now().Unix()
	srv.stats.dirtySinceSave = 0
	return nil
}

// bgsave serializes on the executor, then writes in the background.
// Best-effort: there is no completion signal beyond INFO Persistence.
func (srv *Server) bgsave() {
	if !atomic.CompareAndSwapInt64(&srv.bgsaveInProgress, 0, 1) {
		return
	}
	data := srv.snapshotBytes()
	path := srv.snapshotPath()
	logger := srv.Logger
	go func() {
		defer atomic.StoreInt64(&srv.bgsaveInProgress, 0)
		tmp := path + ".bgtmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			if logger != nil {
				logger.Warn("background save failed: %v", err)
			}
			return
		}
		if err := os.Rename(tmp, path); err != nil {
			if logger != nil {
				logger.Warn("background save failed: %v", err)
			}
			return
		}
		if logger != nil {
			logger.Info("background saving terminated with success")
		}
	}()
}

// LoadSnapshotFile loads the configured snapshot at startup if present.
func (srv *Server) LoadSnapshotFile() error {
	data, err := os.ReadFile(srv.snapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return srv.loadSnapshot(data)
}

// ReplayCommand is the AOF-replay entry point: it applies one command to
// the keyspace without appending to the replication log.
func (srv *Server) ReplayCommand(dbIdx int, args [][]byte) {
	srv.loading = true
	defer func() { srv.loading = false }()
	s := srv.replaySession()
	s.db = dbIdx
	s.fromMaster = true
	srv.Exec(s, args, 0)
}

func (srv *Server) replaySession() *Session {
	if srv.replaySess == nil {
		srv.replaySess = srv.NewSession(nil)
		delete(srv.sessions, srv.replaySess.id)
		atomic.AddInt64(&srv.connectedClients, -1)
	}
	return srv.replaySess
}
