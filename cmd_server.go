package peadb

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

func cmdInfo(c *ctx) {
	section := ""
	if c.argc() > 1 {
		section = lower(c.str(1))
	}
	c.w.Verbatim("txt", c.srv.renderInfo(section))
}

func cmdConfig(c *ctx) {
	sub := upperCmd(c.arg(1))
	switch sub {
	case "GET":
		if c.argc() < 3 {
			c.w.Error(errWrongArgs("config|get"))
			return
		}
		var names []string
		seen := make(map[string]bool)
		for i := 2; i < c.argc(); i++ {
			pat := compileMatch(lower(c.str(i)))
			for _, name := range c.srv.config.Names() {
				if !seen[name] && pat.Match(name) {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
		c.w.MapHeader(len(names))
		for _, name := range names {
			v, _ := c.srv.config.Get(name)
			c.w.BulkString(name)
			c.w.BulkString(v)
		}
	case "SET":
		if c.argc() < 4 || c.argc()%2 != 0 {
			c.w.Error(errWrongArgs("config|set"))
			return
		}
		// validate all names first; a bad name applies nothing
		for i := 2; i < c.argc(); i += 2 {
			name := lower(c.str(i))
			if _, ok := c.srv.config.Get(name); !ok {
				c.w.Error("ERR Unknown option or number of arguments for CONFIG SET - '" + name + "'")
				return
			}
		}
		for i := 2; i < c.argc(); i += 2 {
			c.srv.config.Set(lower(c.str(i)), c.str(i+1))
		}
		c.w.OK()
	case "RESETSTAT":
		c.srv.cmdStats = make(map[string]*cmdStat)
		c.srv.errStats = make(map[string]int64)
		c.srv.stats.totalCommands = 0
		c.srv.stats.keyspaceHits = 0
		c.srv.stats.keyspaceMisses = 0
		c.w.OK()
	case "REWRITE":
		c.w.Error("ERR The server is running without a config file")
	default:
		c.w.Error(errUnknownSub(lower(sub), "CONFIG"))
	}
}

func cmdCommand(c *ctx) {
	if c.argc() == 1 {
		c.w.ArrayHeader(len(c.srv.commands))
		for _, cmd := range c.srv.commands {
			writeCommandInfo(c, cmd)
		}
		return
	}
	switch upperCmd(c.arg(1)) {
	case "COUNT":
		c.w.Int(int64(len(c.srv.commands)))
	case "INFO":
		c.w.ArrayHeader(c.argc() - 2)
		for i := 2; i < c.argc(); i++ {
			cmd := c.srv.commands[upperCmd(c.arg(i))]
			if cmd == nil {
				c.w.NullArray()
				continue
			}
			writeCommandInfo(c, cmd)
		}
	case "LIST":
		c.w.ArrayHeader(len(c.srv.commands))
		for name := range c.srv.commands {
			c.w.BulkString(lower(name))
		}
	case "DOCS":
		var cmds []*Command
		if c.argc() == 2 {
			for _, cmd := range c.srv.commands {
				cmds = append(cmds, cmd)
			}
		} else {
			for i := 2; i < c.argc(); i++ {
				if cmd := c.srv.commands[upperCmd(c.arg(i))]; cmd != nil {
					cmds = append(cmds, cmd)
				}
			}
		}
		c.w.MapHeader(len(cmds))
		for _, cmd := range cmds {
			c.w.BulkString(lower(cmd.name))
			c.w.MapHeader(2)
			c.w.BulkString("since")
			c.w.BulkString("1.0.0")
			c.w.BulkString("arity")
			c.w.Int(int64(cmd.arity))
		}
	default:
		c.w.Error(errUnknownSub(lower(c.str(1)), "COMMAND"))
	}
}

func writeCommandInfo(c *ctx, cmd *Command) {
	c.w.ArrayHeader(10)
	c.w.BulkString(lower(cmd.name))
	c.w.Int(int64(cmd.arity))
	var flags []string
	for _, f := range []struct {
		bit  cmdFlags
		name string
	}{
		{flagWrite, "write"},
		{flagReadonly, "readonly"},
		{flagFast, "fast"},
		{flagAdmin, "admin"},
		{flagNoScript, "noscript"},
		{flagPubSub, "pubsub"},
		{flagLoading, "loading"},
		{flagStale, "stale"},
		{flagBlocking, "blocking"},
	} {
		if cmd.is(f.bit) {
			flags = append(flags, f.name)
		}
	}
	c.w.ArrayHeader(len(flags))
	for _, f := range flags {
		c.w.SimpleString(f)
	}
	c.w.Int(int64(cmd.firstKey))
	c.w.Int(int64(cmd.lastKey))
	c.w.Int(int64(cmd.step))
	c.w.ArrayHeader(0) // acl categories
	c.w.ArrayHeader(0) // tips
	c.w.ArrayHeader(0) // key specs
	c.w.ArrayHeader(0) // subcommands
}

func cmdDebug(c *ctx) {
	sub := upperCmd(c.arg(1))
	switch sub {
	case "SLEEP":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("debug|sleep"))
			return
		}
		secs, ok := parseTimeoutSecs(c.arg(2))
		if !ok || secs < 0 {
			c.w.Error(errNotFloat)
			return
		}
		c.srv.clk.Sleep(time.Duration(secs * float64(time.Second)))
		c.w.OK()
	case "DIGEST-VALUE":
		if c.argc() < 3 {
			c.w.Error(errWrongArgs("debug|digest-value"))
			return
		}
		c.w.ArrayHeader(c.argc() - 2)
		for i := 2; i < c.argc(); i++ {
			e := c.db.lookup(c.str(i))
			if e == nil {
				c.w.BulkString(strings.Repeat("0", 16))
				continue
			}
			var b [8]byte
			d := e.digest()
			for j := 0; j < 8; j++ {
				b[j] = byte(d >> (8 * uint(7-j)))
			}
			c.w.BulkString(hex.EncodeToString(b[:]))
		}
	case "OBJECT":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("debug|object"))
			return
		}
		e := c.db.lookup(c.str(2))
		if e == nil {
			c.w.Error(errNoSuchKey)
			return
		}
		c.w.SimpleString("Value at:0x0 refcount:1 encoding:" + e.Encoding() +
			" serializedlength:" + strconv.Itoa(len(dumpEntry(e))) +
			" lru:0 lru_seconds_idle:0")
	case "SET-ACTIVE-EXPIRE":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("debug|set-active-expire"))
			return
		}
		c.srv.activeExpire = c.str(2) != "0"
		c.w.OK()
	case "PROTOCOL":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("debug|protocol"))
			return
		}
		debugProtocol(c, lower(c.str(2)))
	case "CHANGE-REPL-ID":
		c.srv.journal.replid = genReplID()
		c.w.OK()
	case "JMAP", "SEGFAULT", "PANIC":
		c.w.Error("ERR DEBUG " + sub + " is not supported")
	case "QUICKLIST-PACKED-THRESHOLD", "STRINGMATCH-LEN", "LISTPACK":
		c.w.OK()
	default:
		c.w.Error(errUnknownSub(lower(sub), "DEBUG"))
	}
}

// debugProtocol emits one value of each protocol shape for client tests.
func debugProtocol(c *ctx, kind string) {
	switch kind {
	case "string":
		c.w.SimpleString("Simple status codes are not binary safe")
	case "integer":
		c.w.Int(12345)
	case "double":
		c.w.Double(3.141)
	case "bignum":
		c.w.BigNumber("1234567999999999999999999999999999999")
	case "null":
		c.w.Null()
	case "array":
		c.w.ArrayHeader(3)
		c.w.Int(1)
		c.w.Int(2)
		c.w.Int(3)
	case "set":
		c.w.SetHeader(3)
		c.w.Int(1)
		c.w.Int(2)
		c.w.Int(3)
	case "map":
		c.w.MapHeader(1)
		c.w.BulkString("key")
		c.w.Int(1)
	case "bulk":
		c.w.BulkString("This is a bulk protocol string")
	case "verbatim":
		c.w.Verbatim("txt", "This is a verbatim\nstring")
	case "true":
		c.w.Bool(true)
	case "false":
		c.w.Bool(false)
	case "err":
		c.w.Error("An error message")
	default:
		c.w.Error("ERR Wrong protocol type name. Please use one of the following: string|integer|double|bignum|null|array|set|map|bulk|verbatim|true|false|err")
	}
}

func cmdSave(c *ctx) {
	if err := c.srv.save(); err != nil {
		c.w.Error("ERR " + err.Error())
		return
	}
	c.w.OK()
}

func cmdBGSave(c *ctx) {
	c.srv.bgsave()
	c.w.SimpleString("Background saving started")
}

func cmdBGRewriteAOF(c *ctx) {
	c.w.SimpleString("Background append only file rewriting started")
}

func cmdLastSave(c *ctx) {
	c.w.Int(c.srv.lastSaveUnix)
}

func cmdTime(c *ctx) {
	now := c.srv.clk.Now()
	c.w.ArrayHeader(2)
	c.w.BulkString(strconv.FormatInt(now.Unix(), 10))
	c.w.BulkString(strconv.FormatInt(int64(now.Nanosecond())/1000, 10))
}

func parseFlushArg(c *ctx) bool {
	if c.argc() == 1 {
		return true
	}
	if c.argc() == 2 {
		switch upperCmd(c.arg(1)) {
		case "ASYNC", "SYNC":
			return true
		}
	}
	c.w.Error(errSyntax)
	return false
}

func cmdFlushDB(c *ctx) {
	if !parseFlushArg(c) {
		return
	}
	c.db.flush()
	c.markDirty()
	c.w.OK()
}

func cmdFlushAll(c *ctx) {
	if !parseFlushArg(c) {
		return
	}
	for _, db := range c.srv.dbs {
		db.flush()
	}
	c.markDirty()
	c.w.OK()
}

func cmdShutdown(c *ctx) {
	save := false
	if c.argc() >= 2 {
		switch upperCmd(c.arg(1)) {
		case "NOSAVE":
		case "SAVE":
			save = true
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	if save {
		if err := c.srv.save(); err != nil {
			c.w.Error("ERR " + err.Error())
			return
		}
	}
	if c.srv.Logger != nil {
		c.srv.Logger.Info("user requested shutdown")
	}
	c.srv.Shutdown()
	// no reply: the connection is closed by the exiting server
}
