package peadb

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// renderInfo produces the INFO payload: "<key>:<value>" lines grouped in
// "# Section" blocks with a blank line between sections, the layout
// monitoring tools parse.
func (srv *Server) renderInfo(section string) string {
	var b strings.Builder
	want := func(name string) bool {
		return section == "" || section == "all" || section == "default" || section == name
	}

	if want("server") {
		b.WriteString("# Server\r\n")
		writeInfoLine(&b, "redis_version", serverVersion)
		writeInfoLine(&b, "redis_git_sha1", "00000000")
		writeInfoLine(&b, "redis_mode", "standalone")
		writeInfoLine(&b, "os", "Linux")
		writeInfoLine(&b, "arch_bits", "64")
		writeInfoLine(&b, "process_id", "1")
		writeInfoLine(&b, "run_id", srv.journal.ReplID())
		port, _ := srv.config.Get("port")
		writeInfoLine(&b, "tcp_port", port)
		up := srv.clk.Now().Sub(srv.startTime)
		writeInfoLine(&b, "uptime_in_seconds", strconv.FormatInt(int64(up.Seconds()), 10))
		writeInfoLine(&b, "uptime_in_days", strconv.FormatInt(int64(up.Hours()/24), 10))
		writeInfoLine(&b, "hz", "10")
		b.WriteString("\r\n")
	}

	if want("clients") {
		b.WriteString("# Clients\r\n")
		writeInfoLine(&b, "connected_clients",
			strconv.FormatInt(atomic.LoadInt64(&srv.connectedClients), 10))
		writeInfoLine(&b, "cluster_connections", "0")
		maxclients, _ := srv.config.Get("maxclients")
		writeInfoLine(&b, "maxclients", maxclients)
		writeInfoLine(&b, "blocked_clients", strconv.Itoa(len(srv.blocked)+len(srv.waiting)))
		b.WriteString("\r\n")
	}

	if want("memory") {
		b.WriteString("# Memory\r\n")
		used := srv.usedMemory()
		writeInfoLine(&b, "used_memory", strconv.FormatInt(used, 10))
		writeInfoLine(&b, "used_memory_human", strconv.FormatInt(used/1024, 10)+"K")
		writeInfoLine(&b, "used_memory_peak", strconv.FormatInt(used, 10))
		maxmemory, _ := srv.config.Get("maxmemory")
		writeInfoLine(&b, "maxmemory", maxmemory)
		policy, _ := srv.config.Get("maxmemory-policy")
		writeInfoLine(&b, "maxmemory_policy", policy)
		b.WriteString("\r\n")
	}

	if want("persistence") {
		b.WriteString("# Persistence\r\n")
		writeInfoLine(&b, "loading", boolInfo(srv.loading))
		writeInfoLine(&b, "rdb_changes_since_last_save",
			strconv.FormatInt(srv.stats.dirtySinceSave, 10))
		writeInfoLine(&b, "rdb_bgsave_in_progress",
			strconv.FormatInt(atomic.LoadInt64(&srv.bgsaveInProgress), 10))
		writeInfoLine(&b, "rdb_last_save_time", strconv.FormatInt(srv.lastSaveUnix, 10))
		writeInfoLine(&b, "rdb_last_bgsave_status", "ok")
		writeInfoLine(&b, "aof_enabled", boolInfo(srv.config.GetBool("appendonly")))
		writeInfoLine(&b, "aof_rewrite_in_progress", "0")
		b.WriteString("\r\n")
	}

	if want("stats") {
		b.WriteString("# Stats\r\n")
		writeInfoLine(&b, "total_connections_received",
			strconv.FormatInt(srv.stats.totalConnections, 10))
		writeInfoLine(&b, "total_commands_processed",
			strconv.FormatInt(srv.stats.totalCommands, 10))
		writeInfoLine(&b, "instantaneous_ops_per_sec", "0")
		writeInfoLine(&b, "expired_keys", strconv.FormatInt(srv.stats.expiredKeys, 10))
		writeInfoLine(&b, "evicted_keys", "0")
		writeInfoLine(&b, "keyspace_hits", strconv.FormatInt(srv.stats.keyspaceHits, 10))
		writeInfoLine(&b, "keyspace_misses", strconv.FormatInt(srv.stats.keyspaceMisses, 10))
		writeInfoLine(&b, "total_reads_processed",
			strconv.FormatInt(srv.stats.totalCommands, 10))
		b.WriteString("\r\n")
	}

	if want("replication") {
		b.WriteString("# Replication\r\n")
		if srv.isReplica() {
			writeInfoLine(&b, "role", "slave")
			writeInfoLine(&b, "master_host", srv.masterHost)
			writeInfoLine(&b, "master_port", srv.masterPort)
			if srv.masterLinkDown {
				writeInfoLine(&b, "master_link_status", "down")
			} else {
				writeInfoLine(&b, "master_link_status", "up")
			}
		} else {
			writeInfoLine(&b, "role", "master")
		}
		writeInfoLine(&b, "connected_slaves", strconv.Itoa(len(srv.replicas)))
		for i, r := range srv.replicas {
			writeInfoLine(&b, "slave"+strconv.Itoa(i),
				"ip=127.0.0.1,port="+r.listeningPort+",state=online,offset="+
					strconv.FormatInt(r.ackOffset, 10)+",lag=0")
		}
		writeInfoLine(&b, "master_replid", srv.journal.ReplID())
		writeInfoLine(&b, "master_replid2", strings.Repeat("0", 40))
		writeInfoLine(&b, "master_repl_offset", strconv.FormatInt(srv.journal.Offset(), 10))
		writeInfoLine(&b, "second_repl_offset", "-1")
		b.WriteString("\r\n")
	}

	if want("cpu") {
		b.WriteString("# CPU\r\n")
		writeInfoLine(&b, "used_cpu_sys", "0.000000")
		writeInfoLine(&b, "used_cpu_user", "0.000000")
		b.WriteString("\r\n")
	}

	if section == "" || section == "all" || section == "commandstats" {
		b.WriteString("# Commandstats\r\n")
		names := make([]string, 0, len(srv.cmdStats))
		for name := range srv.cmdStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			st := srv.cmdStats[name]
			writeInfoLine(&b, "cmdstat_"+lower(name),
				"calls="+strconv.FormatInt(st.calls, 10)+
					",usec=0,usec_per_call=0.00"+
					",rejected_calls="+strconv.FormatInt(st.rejected, 10)+
					",failed_calls="+strconv.FormatInt(st.errors, 10))
		}
		b.WriteString("\r\n")
	}

	if section == "" || section == "all" || section == "errorstats" {
		b.WriteString("# Errorstats\r\n")
		codes := make([]string, 0, len(srv.errStats))
		for code := range srv.errStats {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			writeInfoLine(&b, "errorstat_"+code,
				"count="+strconv.FormatInt(srv.errStats[code], 10))
		}
		b.WriteString("\r\n")
	}

	if want("keyspace") {
		b.WriteString("# Keyspace\r\n")
		for _, db := range srv.dbs {
			if db.Len() == 0 {
				continue
			}
			writeInfoLine(&b, "db"+strconv.Itoa(db.id),
				"keys="+strconv.Itoa(db.Len())+
					",expires="+strconv.Itoa(db.expiresCount())+
					",avg_ttl=0")
		}
		b.WriteString("\r\n")
	}

	return b.String()
}

func writeInfoLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteString("\r\n")
}

func boolInfo(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
