package peadb

import (
	"strconv"
	"strings"
)

func cmdPing(c *ctx) {
	switch c.argc() {
	case 1:
		c.w.SimpleString("PONG")
	case 2:
		c.w.Bulk(c.arg(1))
	default:
		c.w.Error(errWrongArgs("ping"))
	}
}

func cmdEcho(c *ctx) {
	c.w.Bulk(c.arg(1))
}

const serverVersion = "7.2.5"

func cmdHello(c *ctx) {
	i := 1
	proto3 := c.s.proto3
	if c.argc() > 1 {
		ver, ok := parseI64(c.arg(1))
		if !ok || (ver != 2 && ver != 3) {
			c.w.Error(errNoProto)
			return
		}
		proto3 = ver == 3
		i = 2
	}
	for i < c.argc() {
		switch upperCmd(c.arg(i)) {
		case "AUTH":
			if i+2 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			if !c.srv.checkAuth(c.str(i+1), c.str(i+2)) {
				c.w.Error(errBadPass)
				return
			}
			c.s.authed = true
			i += 3
		case "SETNAME":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			c.s.name = c.str(i + 1)
			i += 2
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	if c.srv.requiresAuth() && !c.s.authed {
		c.w.Error(errNoAuth)
		return
	}
	c.s.proto3 = proto3
	c.w.Proto3 = proto3

	role := "master"
	if c.srv.isReplica() {
		role = "replica"
	}
	proto := int64(2)
	if proto3 {
		proto = 3
	}
	c.w.MapHeader(7)
	c.w.BulkString("server")
	c.w.BulkString("redis")
	c.w.BulkString("version")
	c.w.BulkString(serverVersion)
	c.w.BulkString("proto")
	c.w.Int(proto)
	c.w.BulkString("id")
	c.w.Int(c.s.id)
	c.w.BulkString("mode")
	c.w.BulkString("standalone")
	c.w.BulkString("role")
	c.w.BulkString(role)
	c.w.BulkString("modules")
	c.w.ArrayHeader(0)
}

func (srv *Server) checkAuth(user, pass string) bool {
	want, _ := srv.config.Get("requirepass")
	return want != "" && user == "default" && pass == want
}

func cmdAuth(c *ctx) {
	if !c.srv.requiresAuth() {
		c.w.Error(errAuthNoPass)
		return
	}
	var user, pass string
	switch c.argc() {
	case 2:
		user, pass = "default", c.str(1)
	case 3:
		user, pass = c.str(1), c.str(2)
	default:
		c.w.Error(errWrongArgs("auth"))
		return
	}
	if !c.srv.checkAuth(user, pass) {
		c.w.Error(errBadPass)
		return
	}
	c.s.authed = true
	c.w.OK()
}

func cmdQuit(c *ctx) {
	c.w.OK()
	c.s.quitAfterWrite = true
}

func cmdSelect(c *ctx) {
	n, ok := parseI64(c.arg(1))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	if n < 0 || n >= int64(len(c.srv.dbs)) {
		c.w.Error(errDBIndex)
		return
	}
	c.s.db = int(n)
	c.w.OK()
}

func cmdReset(c *ctx) {
	c.srv.unparkSession(c.s)
	c.s.reset()
	c.w.SimpleString("RESET")
}

func cmdClient(c *ctx) {
	sub := upperCmd(c.arg(1))
	switch sub {
	case "ID":
		c.w.Int(c.s.id)
	case "GETNAME":
		c.w.BulkString(c.s.name)
	case "SETNAME":
		if c.argc() != 3 {
			c.w.Error(errWrongArgs("client|setname"))
			return
		}
		if strings.ContainsAny(c.str(2), " \n") {
			c.w.Error("ERR Client names cannot contain spaces, newlines or special characters.")
			return
		}
		c.s.name = c.str(2)
		c.w.OK()
	case "LIST":
		var b strings.Builder
		for _, s := range c.srv.sessions {
			b.WriteString("id=" + strconv.FormatInt(s.id, 10))
			b.WriteString(" name=" + s.name)
			b.WriteString(" db=" + strconv.Itoa(s.db))
			b.WriteString(" multi=" + strconv.Itoa(multiCount(s)))
			b.WriteString(" resp=" + protoVer(s))
			b.WriteString("\n")
		}
		c.w.BulkString(b.String())
	case "NO-EVICT", "NO-TOUCH", "REPLY":
		c.w.OK()
	default:
		c.w.Error(errUnknownSub(strings.ToLower(sub), "CLIENT"))
	}
}

func multiCount(s *Session) int {
	if !s.inMulti {
		return -1
	}
	return len(s.queued)
}

func protoVer(s *Session) string {
	if s.proto3 {
		return "3"
	}
	return "2"
}

