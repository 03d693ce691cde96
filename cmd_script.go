package peadb

import (
	"strings"
)

// cmdEval serves EVAL, EVALSHA, FCALL and their _RO variants.
func cmdEval(c *ctx) {
	name := upperCmd(c.arg(0))
	readonly := strings.HasSuffix(name, "_RO")

	var body, sha string
	switch {
	case name == "EVAL" || name == "EVAL_RO":
		body = c.str(1)
		sha = c.srv.scripts.load(body)
	case name == "EVALSHA" || name == "EVALSHA_RO":
		var ok bool
		sha = strings.ToLower(c.str(1))
		body, ok = c.srv.scripts.get(sha)
		if !ok {
			c.w.Error(errNoScript)
			return
		}
	default: // FCALL / FCALL_RO: no function library support
		c.w.Error("ERR Function not found")
		return
	}

	numkeys, ok := parseI64(c.arg(2))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	if numkeys < 0 {
		c.w.Error("ERR Number of keys can't be negative")
		return
	}
	if numkeys > int64(c.argc()-3) {
		c.w.Error("ERR Number of keys can't be greater than number of args")
		return
	}
	keys := make([]string, 0, numkeys)
	for i := 3; i < 3+int(numkeys); i++ {
		keys = append(keys, c.str(i))
	}
	args := make([]string, 0, c.argc()-3-int(numkeys))
	for i := 3 + int(numkeys); i < c.argc(); i++ {
		args = append(args, c.str(i))
	}

	flags := parseShebang(body)
	if c.srv.vm == nil {
		c.w.Error(errNoScriptVM)
		return
	}

	sr := &scriptRun{
		sha:      sha,
		readonly: readonly || flags.noWrites,
		allowOOM: flags.allowOOM,
		startMS:  c.srv.clk.Now().UnixMilli(),
	}
	c.srv.scripts.running = sr
	defer func() { c.srv.scripts.running = nil }()

	s := c.s
	call := &ScriptCall{
		Script: body,
		Keys:   keys,
		Args:   args,
		Proto3: s.proto3,
		Dispatch: func(cmdArgs ...string) []byte {
			bb := make([][]byte, len(cmdArgs))
			for i, a := range cmdArgs {
				bb[i] = []byte(a)
			}
			return c.srv.execScript(s, bb, sr)
		},
		Killed: func() bool { return sr.killReq },
	}
	res, err := c.srv.vm.Run(call)
	if err != nil {
		if sr.killReq {
			c.w.Error("ERR Script killed by user with SCRIPT KILL...")
			return
		}
		msg := err.Error()
		if !hasErrorCode(msg) {
			msg = "ERR " + msg
		}
		c.w.Error(msg)
		return
	}
	// the VM returns a fully RESP-encoded result
	c.w.Raw(res)
}

// hasErrorCode reports whether msg already starts with an uppercase
// space-terminated error code.
func hasErrorCode(msg string) bool {
	for i, ch := range msg {
		if ch == ' ' {
			return i > 0
		}
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return false
}

func cmdScript(c *ctx) {
	sub := upperCmd(c.arg(1))
	switch sub {
	case "LOAD":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("script|load"))
			return
		}
		c.w.BulkString(c.srv.scripts.load(c.str(2)))
	case "EXISTS":
		c.w.ArrayHeader(c.argc() - 2)
		for i := 2; i < c.argc(); i++ {
			if _, ok := c.srv.scripts.get(c.str(i)); ok {
				c.w.Int(1)
			} else {
				c.w.Int(0)
			}
		}
	case "FLUSH":
		if c.argc() == 3 {
			switch upperCmd(c.arg(2)) {
			case "ASYNC", "SYNC":
			default:
				c.w.Error("ERR SCRIPT FLUSH only support SYNC|ASYNC option")
				return
			}
		}
		c.srv.scripts.flush()
		c.w.OK()
	case "KILL":
		if !c.srv.scripts.kill() {
			c.w.Error(errNotBusy)
			return
		}
		c.w.OK()
	default:
		c.w.Error(errUnknownSub(lower(sub), "SCRIPT"))
	}
}

func cmdFunction(c *ctx) {
	sub := upperCmd(c.arg(1))
	switch sub {
	case "KILL":
		if !c.srv.scripts.kill() {
			c.w.Error(errNotBusy)
			return
		}
		c.w.OK()
	case "LIST":
		c.w.ArrayHeader(0)
	case "DUMP":
		c.w.BulkString("")
	case "STATS":
		c.w.MapHeader(2)
		c.w.BulkString("running_script")
		c.w.Null()
		c.w.BulkString("engines")
		c.w.MapHeader(0)
	default:
		c.w.Error(errUnknownSub(lower(sub), "FUNCTION"))
	}
}
