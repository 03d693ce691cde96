package peadb

import (
	"strconv"

	"github.com/gobwas/glob"
)

// matcher wraps a compiled MATCH pattern; a nil matcher matches everything.
type matcher struct {
	g       glob.Glob
	literal string // fallback when the pattern fails to compile
}

func compileMatch(pattern string) *matcher {
	if pattern == "" || pattern == "*" {
		return nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return &matcher{literal: pattern}
	}
	return &matcher{g: g}
}

func (m *matcher) Match(s string) bool {
	if m == nil {
		return true
	}
	if m.g != nil {
		return m.g.Match(s)
	}
	return s == m.literal
}

// cmdScan walks the keyspace dict with a reverse-bit cursor. COUNT is a
// page-size hint; MATCH and TYPE filter after page selection.
func cmdScan(c *ctx) {
	cursor, ok := parseCursor(c.arg(1))
	if !ok {
		c.w.Error("ERR invalid cursor")
		return
	}
	count := int64(10)
	var pat *matcher
	var typeFilter ValueType
	for i := 2; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "COUNT":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok || n < 1 {
				c.w.Error(errSyntax)
				return
			}
			count = n
			i++
		case "MATCH":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			pat = compileMatch(c.str(i + 1))
			i++
		case "TYPE":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			typeFilter = typeByName(c.str(i + 1))
			i++
		default:
			c.w.Error(errSyntax)
			return
		}
	}

	now := c.nowMS()
	var keys []string
	for i := int64(0); i < count; i++ {
		cursor = c.db.dict.Scan(cursor, func(key string, e *Entry) {
			if e.expireAt != 0 && e.expireAt <= now {
				return // logically absent
			}
			if typeFilter != TypeNone && e.Type() != typeFilter {
				return
			}
			if !pat.Match(key) {
				return
			}
			keys = append(keys, key)
		})
		if cursor == 0 {
			break
		}
	}

	c.w.ArrayHeader(2)
	c.w.BulkString(strconv.FormatUint(cursor, 10))
	c.w.ArrayHeader(len(keys))
	for _, k := range keys {
		c.w.BulkString(k)
	}
}

func parseCursor(b []byte) (uint64, bool) {
	u, err := strconv.ParseUint(string(b), 10, 64)
	return u, err == nil
}

func typeByName(name string) ValueType {
	switch lower(name) {
	case "string":
		return TypeString
	case "list":
		return TypeList
	case "set":
		return TypeSet
	case "zset":
		return TypeZSet
	case "hash":
		return TypeHash
	case "stream":
		return TypeStream
	}
	return TypeNone
}

func cmdKeys(c *ctx) {
	pat := compileMatch(c.str(1))
	now := c.nowMS()
	var keys []string
	c.db.dict.Each(func(key string, e *Entry) bool {
		if e.expireAt != 0 && e.expireAt <= now {
			return true
		}
		if pat.Match(key) {
			keys = append(keys, key)
		}
		return true
	})
	c.w.ArrayHeader(len(keys))
	for _, k := range keys {
		c.w.BulkString(k)
	}
}

func cmdRandomKey(c *ctx) {
	key, e := c.db.randomKey(c.srv.rng)
	if e == nil {
		c.w.Null()
		return
	}
	c.w.BulkString(key)
}

// scanSubPrologue parses the shared HSCAN/SSCAN/ZSCAN argument shape.
// Collection scans return the whole (filtered) collection in one page with
// a zero next-cursor, which trivially satisfies the scan guarantee.
func (c *ctx) scanSubPrologue(t ValueType) (e *Entry, cursor uint64, pat *matcher, novalues bool, ok bool) {
	cursor, cok := parseCursor(c.arg(2))
	if !cok {
		c.w.Error("ERR invalid cursor")
		return nil, 0, nil, false, false
	}
	for i := 3; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "COUNT":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return nil, 0, nil, false, false
			}
			if n, nok := parseI64(c.arg(i + 1)); !nok || n < 1 {
				c.w.Error(errSyntax)
				return nil, 0, nil, false, false
			}
			i++
		case "MATCH":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return nil, 0, nil, false, false
			}
			pat = compileMatch(c.str(i + 1))
			i++
		case "NOVALUES":
			if t != TypeHash {
				c.w.Error(errSyntax)
				return nil, 0, nil, false, false
			}
			novalues = true
		default:
			c.w.Error(errSyntax)
			return nil, 0, nil, false, false
		}
	}
	e, rok := c.typedRead(c.str(1), t)
	if !rok {
		return nil, 0, nil, false, false
	}
	return e, cursor, pat, novalues, true
}
