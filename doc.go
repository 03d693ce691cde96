// Package peadb is an in-memory key-value store speaking the Redis wire
// protocol. Standard Redis clients connect over TCP, issue RESP-encoded
// commands and get Redis-compatible replies, error strings and replication
// artifacts back.
//
// The engine is single-threaded: one executor goroutine owns the keyspace,
// the command table, every session and the replication journal. Connection
// goroutines only parse bytes and queue requests; replies travel back
// through per-session output buffers.
package peadb
