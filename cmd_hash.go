package peadb

import (
	"math"
	"strconv"

	"github.com/alsatianco/peadb/resp"
)

// cmdHSet serves HSET and the legacy HMSET.
func cmdHSet(c *ctx) {
	name := upperCmd(c.arg(0))
	if (c.argc()-2)%2 != 0 {
		c.w.Error(errWrongArgs(lower(name)))
		return
	}
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeHash)
	if !ok {
		return
	}
	if e == nil {
		e = newHashEntry()
		c.db.set(key, e)
	}
	h := e.hash()
	added := int64(0)
	for i := 2; i < c.argc(); i += 2 {
		f := c.str(i)
		if _, exists := h.m[f]; !exists {
			added++
		}
		h.m[f] = append([]byte(nil), c.arg(i+1)...)
	}
	c.markDirty()
	if name == "HMSET" {
		c.w.OK()
		return
	}
	c.w.Int(added)
}

func cmdHSetNX(c *ctx) {
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeHash)
	if !ok {
		return
	}
	f := c.str(2)
	if e != nil {
		if _, exists := e.hash().m[f]; exists {
			c.noRepl()
			c.w.Int(0)
			return
		}
	} else {
		e = newHashEntry()
		c.db.set(key, e)
	}
	e.hash().m[f] = append([]byte(nil), c.arg(3)...)
	c.markDirty()
	c.w.Int(1)
}

func cmdHGet(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	if e == nil {
		c.w.Null()
		return
	}
	v, exists := e.hash().m[c.str(2)]
	if !exists {
		c.w.Null()
		return
	}
	c.w.Bulk(v)
}

func cmdHMGet(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	c.w.ArrayHeader(c.argc() - 2)
	for i := 2; i < c.argc(); i++ {
		if e == nil {
			c.w.Null()
			continue
		}
		v, exists := e.hash().m[c.str(i)]
		if !exists {
			c.w.Null()
			continue
		}
		c.w.Bulk(v)
	}
}

func cmdHGetAll(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	if e == nil {
		c.w.MapHeader(0)
		return
	}
	h := e.hash()
	c.w.MapHeader(len(h.m))
	for f, v := range h.m {
		c.w.BulkString(f)
		c.w.Bulk(v)
	}
}

func cmdHDel(c *ctx) {
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeHash)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	h := e.hash()
	removed := int64(0)
	for i := 2; i < c.argc(); i++ {
		if _, exists := h.m[c.str(i)]; exists {
			delete(h.m, c.str(i))
			removed++
		}
	}
	if removed > 0 {
		c.markDirty()
		c.deleteIfEmpty(key, e)
	} else {
		c.noRepl()
	}
	c.w.Int(removed)
}

func cmdHExists(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	if e == nil {
		c.w.Int(0)
		return
	}
	if _, exists := e.hash().m[c.str(2)]; exists {
		c.w.Int(1)
		return
	}
	c.w.Int(0)
}

func cmdHLen(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	if e == nil {
		c.w.Int(0)
		return
	}
	c.w.Int(int64(len(e.hash().m)))
}

func cmdHKeys(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	if e == nil {
		c.w.ArrayHeader(0)
		return
	}
	h := e.hash()
	c.w.ArrayHeader(len(h.m))
	for f := range h.m {
		c.w.BulkString(f)
	}
}

func cmdHVals(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	if e == nil {
		c.w.ArrayHeader(0)
		return
	}
	h := e.hash()
	c.w.ArrayHeader(len(h.m))
	for _, v := range h.m {
		c.w.Bulk(v)
	}
}

func cmdHStrlen(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	if e == nil {
		c.w.Int(0)
		return
	}
	c.w.Int(int64(len(e.hash().m[c.str(2)])))
}

func cmdHIncrBy(c *ctx) {
	by, ok := parseI64(c.arg(3))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	key := c.str(1)
	e, wok := c.typedWrite(key, TypeHash)
	if !wok {
		return
	}
	f := c.str(2)
	var cur int64
	if e != nil {
		if v, exists := e.hash().m[f]; exists {
			n, ok := resp.ParseInt(v)
			if !ok {
				c.w.Error("ERR hash value is not an integer")
				return
			}
			cur = n
		}
	}
	if (by > 0 && cur > math.MaxInt64-by) || (by < 0 && cur < math.MinInt64-by) {
		c.w.Error("ERR increment or decrement would overflow")
		return
	}
	cur += by
	if e == nil {
		e = newHashEntry()
		c.db.set(key, e)
	}
	e.hash().m[f] = []byte(strconv.FormatInt(cur, 10))
	c.markDirty()
	c.w.Int(cur)
}

func cmdHIncrByFloat(c *ctx) {
	by, ok := resp.ParseFloat(c.arg(3))
	if !ok {
		c.w.Error(errNotFloat)
		return
	}
	key := c.str(1)
	e, wok := c.typedWrite(key, TypeHash)
	if !wok {
		return
	}
	f := c.str(2)
	var cur float64
	if e != nil {
		if v, exists := e.hash().m[f]; exists {
			n, ok := resp.ParseFloat(v)
			if !ok {
				c.w.Error("ERR hash value is not a float")
				return
			}
			cur = n
		}
	}
	cur += by
	if math.IsNaN(cur) || math.IsInf(cur, 0) {
		c.w.Error("ERR increment would produce NaN or Infinity")
		return
	}
	if e == nil {
		e = newHashEntry()
		c.db.set(key, e)
	}
	b := resp.AppendFloat(nil, cur)
	e.hash().m[f] = b
	c.markDirty()
	c.propagate("HSET", key, f, string(b))
	c.w.Bulk(b)
}

func cmdHRandField(c *ctx) {
	count := int64(1)
	withValues := false
	hasCount := c.argc() >= 3
	if hasCount {
		n, ok := parseI64(c.arg(2))
		if !ok {
			c.w.Error(errNotInt)
			return
		}
		count = n
		if c.argc() == 4 {
			if upperCmd(c.arg(3)) != "WITHVALUES" {
				c.w.Error(errSyntax)
				return
			}
			withValues = true
		}
	}
	e, ok := c.typedRead(c.str(1), TypeHash)
	if !ok {
		return
	}
	if e == nil {
		if hasCount {
			c.w.ArrayHeader(0)
		} else {
			c.w.Null()
		}
		return
	}
	fields := e.hash().sortedFields()
	if !hasCount {
		c.w.BulkString(fields[c.srv.rng.Intn(len(fields))])
		return
	}
	var picks []string
	if count < 0 {
		// negative count allows repeats
		for i := int64(0); i < -count; i++ {
			picks = append(picks, fields[c.srv.rng.Intn(len(fields))])
		}
	} else {
		c.srv.rng.Shuffle(len(fields), func(i, j int) { fields[i], fields[j] = fields[j], fields[i] })
		if int64(len(fields)) > count {
			fields = fields[:count]
		}
		picks = fields
	}
	if withValues {
		c.w.ArrayHeader(len(picks) * 2)
		for _, f := range picks {
			c.w.BulkString(f)
			c.w.Bulk(e.hash().m[f])
		}
		return
	}
	c.w.ArrayHeader(len(picks))
	for _, f := range picks {
		c.w.BulkString(f)
	}
}

func cmdHScan(c *ctx) {
	e, cur, pat, novalues, ok := c.scanSubPrologue(TypeHash)
	if !ok {
		return
	}
	if cur != 0 || e == nil {
		c.w.ArrayHeader(2)
		c.w.BulkString("0")
		c.w.ArrayHeader(0)
		return
	}
	h := e.hash()
	var out [][]byte
	for f, v := range h.m {
		if pat != nil && !pat.Match(f) {
			continue
		}
		out = append(out, []byte(f))
		if !novalues {
			out = append(out, v)
		}
	}
	c.w.ArrayHeader(2)
	c.w.BulkString("0")
	c.w.ArrayHeader(len(out))
	for _, b := range out {
		c.w.Bulk(b)
	}
}
