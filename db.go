package peadb

import (
	"math/rand"
)

// DB is one logical database: a dict from binary key to *Entry.
// All access happens on the executor; there is no lock.
type DB struct {
	id   int
	dict *dict
	srv  *Server
}

func newDB(srv *Server, id int) *DB {
	return &DB{id: id, dict: newDict(), srv: srv}
}

func (db *DB) Len() int { return db.dict.Len() }

// expiresCount counts keys carrying an expiry (INFO Keyspace).
func (db *DB) expiresCount() int {
	n := 0
	db.dict.Each(func(key string, e *Entry) bool {
		if e.expireAt != 0 {
			n++
		}
		return true
	})
	return n
}

// expireIfNeeded deletes e when its expiry has passed, emitting the
// synthetic DEL replication event. Every public accessor goes through
// here first, so an expired key is observed as gone before any effect.
func (db *DB) expireIfNeeded(key string, e *Entry) bool {
	if e == nil || e.expireAt == 0 || e.expireAt > db.srv.nowMS() {
		return false
	}
	db.dict.Delete(key)
	db.srv.stats.expiredKeys++
	// no synthetic DEL during artifact replay or inside a script, where
	// the frozen clock makes the expiry an artifact of the outer call
	inScript := db.srv.scripts != nil && db.srv.scripts.running != nil
	if !db.srv.loading && !inScript {
		db.srv.journal.BumpEpoch()
		db.srv.journal.Propagate(db.id, []byte("DEL"), []byte(key))
	}
	return true
}

// lookup returns the live entry for key, applying lazy expiry.
func (db *DB) lookup(key string) *Entry {
	e := db.dict.Get(key)
	if e == nil {
		return nil
	}
	if db.expireIfNeeded(key, e) {
		return nil
	}
	return e
}

// lookupTyped returns the live entry when it matches t. wrongtype reports a
// live entry of a different variant; the caller must reply WRONGTYPE and
// mutate nothing.
func (db *DB) lookupTyped(key string, t ValueType) (e *Entry, wrongtype bool) {
	e = db.lookup(key)
	if e == nil {
		return nil, false
	}
	if e.Type() != t {
		return nil, true
	}
	return e, false
}

func (db *DB) set(key string, e *Entry) {
	db.dict.Set(key, e)
}

func (db *DB) delete(key string) bool {
	return db.dict.Delete(key) // note: no expiry check; DEL of an expired key reports 0 via lookup first
}

func (db *DB) exists(key string) bool {
	return db.lookup(key) != nil
}

func (db *DB) flush() {
	db.dict.Clear()
}

// randomKey returns a uniformly random live key, or "" when empty.
func (db *DB) randomKey(rng *rand.Rand) (string, *Entry) {
	for i := 0; i < 32; i++ {
		de := db.dict.RandomEntry(rng)
		if de == nil {
			return "", nil
		}
		if db.expireIfNeeded(de.key, de.val) {
			continue
		}
		return de.key, de.val
	}
	// heavy expired churn; fall back to a full walk
	var key string
	var val *Entry
	db.dict.Each(func(k string, e *Entry) bool {
		if e.expireAt == 0 || e.expireAt > db.srv.nowMS() {
			key, val = k, e
			return false
		}
		return true
	})
	return key, val
}

// digestKey fingerprints the current content of key; 0 when missing.
// Used by WATCH to detect delete-recreate between snapshot and EXEC.
func (db *DB) digestKey(key string) uint64 {
	e := db.lookup(key)
	if e == nil {
		return 0
	}
	return e.digest()
}

// ttlMS returns the remaining lifetime in ms: -2 missing, -1 no expiry.
func (db *DB) ttlMS(key string) int64 {
	e := db.lookup(key)
	if e == nil {
		return -2
	}
	if e.expireAt == 0 {
		return -1
	}
	ttl := e.expireAt - db.srv.nowMS()
	if ttl < 0 {
		ttl = 0
	}
	return ttl
}
