package peadb

import "strings"

type cmdFlags uint32

const (
	flagWrite cmdFlags = 1 << iota
	flagReadonly
	flagFast
	flagAdmin
	flagNoScript
	flagPubSub
	flagNoAuth
	flagLoading
	flagStale
	flagBlocking
	flagDenyOOM // may grow memory; denied once maxmemory is exceeded
)

// Command is one named operation: arity rule (positive = exact argc
// including the name, negative = at least -argc), flag bitset, the
// key-position descriptor used by cluster routing, and the handler.
type Command struct {
	name     string
	arity    int
	flags    cmdFlags
	firstKey int // 1-based; 0 = no keys
	lastKey  int // negative counts from the end
	step     int
	handler  func(c *ctx)
}

func (cmd *Command) is(f cmdFlags) bool { return cmd.flags&f != 0 }

func (cmd *Command) arityOK(argc int) bool {
	if cmd.arity >= 0 {
		return argc == cmd.arity
	}
	return argc >= -cmd.arity
}

// keys returns the key arguments of args per the command's descriptor.
func (cmd *Command) keys(args [][]byte) [][]byte {
	if cmd.firstKey == 0 {
		return nil
	}
	last := cmd.lastKey
	if last < 0 {
		last = len(args) + last
	}
	if last >= len(args) {
		last = len(args) - 1
	}
	var out [][]byte
	for i := cmd.firstKey; i <= last && i < len(args); i += cmd.step {
		out = append(out, args[i])
	}
	return out
}

func buildCommandTable() map[string]*Command {
	defs := []Command{
		// connection
		{"PING", -1, flagFast | flagStale, 0, 0, 0, cmdPing},
		{"ECHO", 2, flagFast, 0, 0, 0, cmdEcho},
		{"HELLO", -1, flagNoAuth | flagFast | flagStale, 0, 0, 0, cmdHello},
		{"AUTH", -2, flagNoAuth | flagFast | flagStale | flagNoScript, 0, 0, 0, cmdAuth},
		{"QUIT", -1, flagNoAuth | flagFast | flagStale, 0, 0, 0, cmdQuit},
		{"SELECT", 2, flagFast | flagLoading | flagStale, 0, 0, 0, cmdSelect},
		{"RESET", 1, flagNoAuth | flagFast | flagStale | flagNoScript, 0, 0, 0, cmdReset},
		{"CLIENT", -2, flagFast, 0, 0, 0, cmdClient},

		// string
		{"GET", 2, flagReadonly | flagFast, 1, 1, 1, cmdGet},
		{"SET", -3, flagWrite | flagDenyOOM, 1, 1, 1, cmdSet},
		{"SETNX", 3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdSetNX},
		{"SETEX", 4, flagWrite | flagDenyOOM, 1, 1, 1, cmdSetEX},
		{"PSETEX", 4, flagWrite | flagDenyOOM, 1, 1, 1, cmdSetEX},
		{"MGET", -2, flagReadonly | flagFast, 1, -1, 1, cmdMGet},
		{"MSET", -3, flagWrite | flagDenyOOM, 1, -1, 2, cmdMSet},
		{"MSETNX", -3, flagWrite | flagDenyOOM, 1, -1, 2, cmdMSetNX},
		{"GETSET", 3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdGetSet},
		{"GETDEL", 2, flagWrite | flagFast, 1, 1, 1, cmdGetDel},
		{"GETEX", -2, flagWrite | flagFast, 1, 1, 1, cmdGetEx},
		{"APPEND", 3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdAppend},
		{"STRLEN", 2, flagReadonly | flagFast, 1, 1, 1, cmdStrlen},
		{"INCR", 2, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdIncr},
		{"DECR", 2, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdIncr},
		{"INCRBY", 3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdIncr},
		{"DECRBY", 3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdIncr},
		{"INCRBYFLOAT", 3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdIncrByFloat},
		{"SETRANGE", 4, flagWrite | flagDenyOOM, 1, 1, 1, cmdSetRange},
		{"GETRANGE", 4, flagReadonly, 1, 1, 1, cmdGetRange},
		{"SUBSTR", 4, flagReadonly, 1, 1, 1, cmdGetRange},
		{"SETBIT", 4, flagWrite | flagDenyOOM, 1, 1, 1, cmdSetBit},
		{"GETBIT", 3, flagReadonly | flagFast, 1, 1, 1, cmdGetBit},
		{"LCS", -3, flagReadonly, 1, 2, 1, cmdLCS},

		// hash
		{"HSET", -4, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdHSet},
		{"HMSET", -4, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdHSet},
		{"HSETNX", 4, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdHSetNX},
		{"HGET", 3, flagReadonly | flagFast, 1, 1, 1, cmdHGet},
		{"HMGET", -3, flagReadonly | flagFast, 1, 1, 1, cmdHMGet},
		{"HGETALL", 2, flagReadonly, 1, 1, 1, cmdHGetAll},
		{"HDEL", -3, flagWrite | flagFast, 1, 1, 1, cmdHDel},
		{"HEXISTS", 3, flagReadonly | flagFast, 1, 1, 1, cmdHExists},
		{"HLEN", 2, flagReadonly | flagFast, 1, 1, 1, cmdHLen},
		{"HKEYS", 2, flagReadonly, 1, 1, 1, cmdHKeys},
		{"HVALS", 2, flagReadonly, 1, 1, 1, cmdHVals},
		{"HSTRLEN", 3, flagReadonly | flagFast, 1, 1, 1, cmdHStrlen},
		{"HINCRBY", 4, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdHIncrBy},
		{"HINCRBYFLOAT", 4, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdHIncrByFloat},
		{"HRANDFIELD", -2, flagReadonly, 1, 1, 1, cmdHRandField},
		{"HSCAN", -3, flagReadonly, 1, 1, 1, cmdHScan},

		// list
		{"LPUSH", -3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdPush},
		{"RPUSH", -3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdPush},
		{"LPUSHX", -3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdPush},
		{"RPUSHX", -3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdPush},
		{"LPOP", -2, flagWrite | flagFast, 1, 1, 1, cmdPop},
		{"RPOP", -2, flagWrite | flagFast, 1, 1, 1, cmdPop},
		{"LLEN", 2, flagReadonly | flagFast, 1, 1, 1, cmdLLen},
		{"LINDEX", 3, flagReadonly, 1, 1, 1, cmdLIndex},
		{"LSET", 4, flagWrite | flagDenyOOM, 1, 1, 1, cmdLSet},
		{"LRANGE", 4, flagReadonly, 1, 1, 1, cmdLRange},
		{"LTRIM", 4, flagWrite, 1, 1, 1, cmdLTrim},
		{"LREM", 4, flagWrite, 1, 1, 1, cmdLRem},
		{"LINSERT", 5, flagWrite | flagDenyOOM, 1, 1, 1, cmdLInsert},
		{"LPOS", -3, flagReadonly, 1, 1, 1, cmdLPos},
		{"LMOVE", 5, flagWrite | flagDenyOOM, 1, 2, 1, cmdLMove},
		{"RPOPLPUSH", 3, flagWrite | flagDenyOOM, 1, 2, 1, cmdLMove},
		{"BLPOP", -3, flagWrite | flagNoScript | flagBlocking, 1, -2, 1, cmdBPop},
		{"BRPOP", -3, flagWrite | flagNoScript | flagBlocking, 1, -2, 1, cmdBPop},
		{"BLMOVE", 6, flagWrite | flagNoScript | flagBlocking | flagDenyOOM, 1, 2, 1, cmdBLMove},
		{"BRPOPLPUSH", 4, flagWrite | flagNoScript | flagBlocking | flagDenyOOM, 1, 2, 1, cmdBLMove},

		// set
		{"SADD", -3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdSAdd},
		{"SREM", -3, flagWrite | flagFast, 1, 1, 1, cmdSRem},
		{"SMEMBERS", 2, flagReadonly, 1, 1, 1, cmdSMembers},
		{"SISMEMBER", 3, flagReadonly | flagFast, 1, 1, 1, cmdSIsMember},
		{"SMISMEMBER", -3, flagReadonly | flagFast, 1, 1, 1, cmdSMIsMember},
		{"SCARD", 2, flagReadonly | flagFast, 1, 1, 1, cmdSCard},
		{"SPOP", -2, flagWrite | flagFast, 1, 1, 1, cmdSPop},
		{"SRANDMEMBER", -2, flagReadonly, 1, 1, 1, cmdSRandMember},
		{"SMOVE", 4, flagWrite | flagFast | flagDenyOOM, 1, 2, 1, cmdSMove},
		{"SINTER", -2, flagReadonly, 1, -1, 1, cmdSInter},
		{"SINTERCARD", -3, flagReadonly, 0, 0, 0, cmdSInterCard},
		{"SUNION", -2, flagReadonly, 1, -1, 1, cmdSUnion},
		{"SDIFF", -2, flagReadonly, 1, -1, 1, cmdSDiff},
		{"SINTERSTORE", -3, flagWrite | flagDenyOOM, 1, -1, 1, cmdSInterStore},
		{"SUNIONSTORE", -3, flagWrite | flagDenyOOM, 1, -1, 1, cmdSUnionStore},
		{"SDIFFSTORE", -3, flagWrite | flagDenyOOM, 1, -1, 1, cmdSDiffStore},
		{"SSCAN", -3, flagReadonly, 1, 1, 1, cmdSScan},

		// sorted set
		{"ZADD", -4, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdZAdd},
		{"ZREM", -3, flagWrite | flagFast, 1, 1, 1, cmdZRem},
		{"ZSCORE", 3, flagReadonly | flagFast, 1, 1, 1, cmdZScore},
		{"ZMSCORE", -3, flagReadonly | flagFast, 1, 1, 1, cmdZMScore},
		{"ZINCRBY", 4, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdZIncrBy},
		{"ZCARD", 2, flagReadonly | flagFast, 1, 1, 1, cmdZCard},
		{"ZCOUNT", 4, flagReadonly | flagFast, 1, 1, 1, cmdZCount},
		{"ZLEXCOUNT", 4, flagReadonly | flagFast, 1, 1, 1, cmdZLexCount},
		{"ZRANGE", -4, flagReadonly, 1, 1, 1, cmdZRange},
		{"ZREVRANGE", -4, flagReadonly, 1, 1, 1, cmdZRange},
		{"ZRANGEBYSCORE", -4, flagReadonly, 1, 1, 1, cmdZRangeByScore},
		{"ZREVRANGEBYSCORE", -4, flagReadonly, 1, 1, 1, cmdZRangeByScore},
		{"ZRANGEBYLEX", -4, flagReadonly, 1, 1, 1, cmdZRangeByLex},
		{"ZREVRANGEBYLEX", -4, flagReadonly, 1, 1, 1, cmdZRangeByLex},
		{"ZRANK", -3, flagReadonly | flagFast, 1, 1, 1, cmdZRank},
		{"ZREVRANK", -3, flagReadonly | flagFast, 1, 1, 1, cmdZRank},
		{"ZREMRANGEBYRANK", 4, flagWrite, 1, 1, 1, cmdZRemRangeByRank},
		{"ZREMRANGEBYSCORE", 4, flagWrite, 1, 1, 1, cmdZRemRangeByScore},
		{"ZREMRANGEBYLEX", 4, flagWrite, 1, 1, 1, cmdZRemRangeByLex},
		{"ZPOPMIN", -2, flagWrite | flagFast, 1, 1, 1, cmdZPop},
		{"ZPOPMAX", -2, flagWrite | flagFast, 1, 1, 1, cmdZPop},
		{"BZPOPMIN", -3, flagWrite | flagNoScript | flagFast | flagBlocking, 1, -2, 1, cmdBZPop},
		{"BZPOPMAX", -3, flagWrite | flagNoScript | flagFast | flagBlocking, 1, -2, 1, cmdBZPop},
		{"ZRANDMEMBER", -2, flagReadonly, 1, 1, 1, cmdZRandMember},
		{"ZSCAN", -3, flagReadonly, 1, 1, 1, cmdZScan},

		// stream
		{"XADD", -5, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdXAdd},
		{"XLEN", 2, flagReadonly | flagFast, 1, 1, 1, cmdXLen},
		{"XRANGE", -4, flagReadonly, 1, 1, 1, cmdXRange},
		{"XREVRANGE", -4, flagReadonly, 1, 1, 1, cmdXRange},
		{"XREAD", -4, flagReadonly | flagBlocking, 0, 0, 0, cmdXRead},
		{"XDEL", -3, flagWrite | flagFast, 1, 1, 1, cmdXDel},
		{"XTRIM", -4, flagWrite, 1, 1, 1, cmdXTrim},
		{"XACK", -4, flagWrite | flagFast, 1, 1, 1, cmdXAck},
		{"XGROUP", -2, flagWrite | flagDenyOOM, 2, 2, 1, cmdXGroup},
		{"XREADGROUP", -7, flagWrite | flagNoScript | flagDenyOOM, 0, 0, 0, cmdXReadGroup},
		{"XPENDING", -3, flagReadonly, 1, 1, 1, cmdXPending},
		{"XCLAIM", -6, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdXClaim},
		{"XSETID", -3, flagWrite | flagFast | flagDenyOOM, 1, 1, 1, cmdXSetID},

		// keyspace
		{"DEL", -2, flagWrite, 1, -1, 1, cmdDel},
		{"UNLINK", -2, flagWrite | flagFast, 1, -1, 1, cmdDel},
		{"EXISTS", -2, flagReadonly | flagFast, 1, -1, 1, cmdExists},
		{"TYPE", 2, flagReadonly | flagFast, 1, 1, 1, cmdType},
		{"TOUCH", -2, flagReadonly | flagFast, 1, -1, 1, cmdTouch},
		{"TTL", 2, flagReadonly | flagFast, 1, 1, 1, cmdTTL},
		{"PTTL", 2, flagReadonly | flagFast, 1, 1, 1, cmdTTL},
		{"EXPIRETIME", 2, flagReadonly | flagFast, 1, 1, 1, cmdExpireTime},
		{"PEXPIRETIME", 2, flagReadonly | flagFast, 1, 1, 1, cmdExpireTime},
		{"EXPIRE", -3, flagWrite | flagFast, 1, 1, 1, cmdExpire},
		{"PEXPIRE", -3, flagWrite | flagFast, 1, 1, 1, cmdExpire},
		{"EXPIREAT", -3, flagWrite | flagFast, 1, 1, 1, cmdExpire},
		{"PEXPIREAT", -3, flagWrite | flagFast, 1, 1, 1, cmdExpire},
		{"PERSIST", 2, flagWrite | flagFast, 1, 1, 1, cmdPersist},
		{"KEYS", 2, flagReadonly, 0, 0, 0, cmdKeys},
		{"RANDOMKEY", 1, flagReadonly, 0, 0, 0, cmdRandomKey},
		{"SCAN", -2, flagReadonly, 0, 0, 0, cmdScan},
		{"RENAME", 3, flagWrite | flagDenyOOM, 1, 2, 1, cmdRename},
		{"RENAMENX", 3, flagWrite | flagFast | flagDenyOOM, 1, 2, 1, cmdRename},
		{"COPY", -3, flagWrite | flagDenyOOM, 1, 2, 1, cmdCopy},
		{"MOVE", 3, flagWrite | flagFast, 1, 1, 1, cmdMove},
		{"DUMP", 2, flagReadonly, 1, 1, 1, cmdDump},
		{"RESTORE", -4, flagWrite | flagDenyOOM, 1, 1, 1, cmdRestore},
		{"MIGRATE", -6, flagWrite, 3, 3, 1, cmdMigrate},
		{"SORT", -2, flagWrite | flagDenyOOM, 1, 1, 1, cmdSort},
		{"OBJECT", -2, flagReadonly, 2, 2, 1, cmdObject},
		{"SWAPDB", 3, flagWrite | flagFast, 0, 0, 0, cmdSwapDB},
		{"DBSIZE", 1, flagReadonly | flagFast, 0, 0, 0, cmdDBSize},

		// transactions
		{"MULTI", 1, flagNoScript | flagFast | flagLoading | flagStale, 0, 0, 0, cmdMulti},
		{"EXEC", 1, flagNoScript | flagLoading | flagStale, 0, 0, 0, cmdExec},
		{"DISCARD", 1, flagNoScript | flagFast | flagLoading | flagStale, 0, 0, 0, cmdDiscard},
		{"WATCH", -2, flagNoScript | flagFast, 1, -1, 1, cmdWatch},
		{"UNWATCH", 1, flagNoScript | flagFast, 0, 0, 0, cmdUnwatch},

		// scripting
		{"EVAL", -3, flagNoScript, 0, 0, 0, cmdEval},
		{"EVALSHA", -3, flagNoScript, 0, 0, 0, cmdEval},
		{"EVAL_RO", -3, flagNoScript | flagReadonly, 0, 0, 0, cmdEval},
		{"EVALSHA_RO", -3, flagNoScript | flagReadonly, 0, 0, 0, cmdEval},
		{"FCALL", -3, flagNoScript, 0, 0, 0, cmdEval},
		{"FCALL_RO", -3, flagNoScript | flagReadonly, 0, 0, 0, cmdEval},
		{"SCRIPT", -2, flagNoScript | flagNoAuth, 0, 0, 0, cmdScript},
		{"FUNCTION", -2, flagNoScript, 0, 0, 0, cmdFunction},

		// replication
		{"REPLICAOF", 3, flagAdmin | flagNoScript | flagStale, 0, 0, 0, cmdReplicaOf},
		{"SLAVEOF", 3, flagAdmin | flagNoScript | flagStale, 0, 0, 0, cmdReplicaOf},
		{"REPLCONF", -1, flagAdmin | flagNoScript | flagLoading | flagStale, 0, 0, 0, cmdReplConf},
		{"PSYNC", -3, flagAdmin | flagNoScript, 0, 0, 0, cmdPSync},
		{"SYNC", 1, flagAdmin | flagNoScript, 0, 0, 0, cmdPSync},
		{"WAIT", 3, flagNoScript | flagBlocking, 0, 0, 0, cmdWait},

		// cluster
		{"CLUSTER", -2, flagStale, 0, 0, 0, cmdCluster},
		{"ASKING", 1, flagFast, 0, 0, 0, cmdAsking},
		{"READONLY", 1, flagFast, 0, 0, 0, cmdReadOnlyMode},
		{"READWRITE", 1, flagFast, 0, 0, 0, cmdReadOnlyMode},

		// server
		{"INFO", -1, flagLoading | flagStale, 0, 0, 0, cmdInfo},
		{"CONFIG", -2, flagAdmin | flagNoScript | flagLoading | flagStale, 0, 0, 0, cmdConfig},
		{"COMMAND", -1, flagLoading | flagStale, 0, 0, 0, cmdCommand},
		{"DEBUG", -2, flagAdmin | flagNoScript | flagLoading | flagStale, 0, 0, 0, cmdDebug},
		{"SAVE", 1, flagAdmin | flagNoScript, 0, 0, 0, cmdSave},
		{"BGSAVE", -1, flagAdmin | flagNoScript, 0, 0, 0, cmdBGSave},
		{"BGREWRITEAOF", 1, flagAdmin | flagNoScript, 0, 0, 0, cmdBGRewriteAOF},
		{"LASTSAVE", 1, flagLoading | flagStale | flagFast, 0, 0, 0, cmdLastSave},
		{"TIME", 1, flagLoading | flagStale | flagFast, 0, 0, 0, cmdTime},
		{"FLUSHDB", -1, flagWrite, 0, 0, 0, cmdFlushDB},
		{"FLUSHALL", -1, flagWrite, 0, 0, 0, cmdFlushAll},
		{"SHUTDOWN", -1, flagAdmin | flagNoScript | flagLoading | flagStale, 0, 0, 0, cmdShutdown},
	}

	table := make(map[string]*Command, len(defs))
	for i := range defs {
		cmd := &defs[i]
		table[cmd.name] = cmd
	}
	return table
}

func upperCmd(b []byte) string {
	return strings.ToUpper(string(b))
}
