package peadb

import (
	"bytes"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alsatianco/peadb/resp"
)

// cmdDel serves DEL and UNLINK.
func cmdDel(c *ctx) {
	removed := int64(0)
	for i := 1; i < c.argc(); i++ {
		if c.db.lookup(c.str(i)) != nil && c.db.delete(c.str(i)) {
			removed++
		}
	}
	if removed > 0 {
		c.markDirty()
	} else {
		c.noRepl() // a no-op delete is not an event
	}
	c.w.Int(removed)
}

func cmdExists(c *ctx) {
	n := int64(0)
	for i := 1; i < c.argc(); i++ {
		if c.db.exists(c.str(i)) {
			n++
		}
	}
	c.w.Int(n)
}

func cmdType(c *ctx) {
	e := c.db.lookup(c.str(1))
	if e == nil {
		c.w.SimpleString("none")
		return
	}
	c.w.SimpleString(e.Type().Name())
}

func cmdTouch(c *ctx) {
	n := int64(0)
	for i := 1; i < c.argc(); i++ {
		if c.db.exists(c.str(i)) {
			n++
			c.srv.stats.keyspaceHits++
		} else {
			c.srv.stats.keyspaceMisses++
		}
	}
	c.w.Int(n)
}

// cmdTTL serves TTL and PTTL.
func cmdTTL(c *ctx) {
	ttl := c.db.ttlMS(c.str(1))
	if ttl < 0 {
		c.w.Int(ttl)
		return
	}
	if upperCmd(c.arg(0)) == "TTL" {
		c.w.Int((ttl + 999) / 1000)
		return
	}
	c.w.Int(ttl)
}

// cmdExpireTime serves EXPIRETIME and PEXPIRETIME.
func cmdExpireTime(c *ctx) {
	e := c.db.lookup(c.str(1))
	if e == nil {
		c.w.Int(-2)
		return
	}
	if e.expireAt == 0 {
		c.w.Int(-1)
		return
	}
	if upperCmd(c.arg(0)) == "EXPIRETIME" {
		c.w.Int(e.expireAt / 1000)
		return
	}
	c.w.Int(e.expireAt)
}

// cmdExpire serves EXPIRE, PEXPIRE, EXPIREAT and PEXPIREAT, all with the
// NX/XX/GT/LT modifier set.
func cmdExpire(c *ctx) {
	name := upperCmd(c.arg(0))
	n, ok := parseI64(c.arg(2))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	var nx, xx, gt, lt bool
	for i := 3; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		default:
			c.w.Error("ERR Unsupported option " + c.str(i))
			return
		}
	}
	if gt && lt {
		c.w.Error("ERR GT and LT options at the same time are not compatible")
		return
	}
	if nx && (xx || gt || lt) {
		c.w.Error("ERR NX and XX, GT or LT options at the same time are not compatible")
		return
	}

	var abs int64
	switch name {
	case "EXPIRE":
		abs = c.nowMS() + n*1000
	case "PEXPIRE":
		abs = c.nowMS() + n
	case "EXPIREAT":
		abs = n * 1000
	case "PEXPIREAT":
		abs = n
	}

	key := c.str(1)
	e := c.db.lookup(key)
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	cur := e.expireAt // 0 = none
	switch {
	case nx && cur != 0:
		c.noRepl()
		c.w.Int(0)
		return
	case xx && cur == 0:
		c.noRepl()
		c.w.Int(0)
		return
	case gt && (cur == 0 || abs <= cur):
		c.noRepl()
		c.w.Int(0)
		return
	case lt && cur != 0 && abs >= cur:
		c.noRepl()
		c.w.Int(0)
		return
	}

	if abs <= c.nowMS() {
		// setting an expiry in the past deletes the key outright
		c.db.delete(key)
		c.markDirty()
		c.propagate("DEL", key)
		c.w.Int(1)
		return
	}
	e.expireAt = abs
	c.markDirty()
	c.propagate("PEXPIREAT", key, itoa(abs))
	c.w.Int(1)
}

func cmdPersist(c *ctx) {
	e := c.db.lookup(c.str(1))
	if e == nil || e.expireAt == 0 {
		c.noRepl()
		c.w.Int(0)
		return
	}
	e.expireAt = 0
	c.markDirty()
	c.w.Int(1)
}

// cmdRename serves RENAME and RENAMENX.
func cmdRename(c *ctx) {
	nx := upperCmd(c.arg(0)) == "RENAMENX"
	src, dst := c.str(1), c.str(2)
	e := c.db.lookup(src)
	if e == nil {
		c.noRepl()
		c.w.Error(errNoSuchKey)
		return
	}
	if src == dst {
		// rename onto itself is a no-op success
		if nx {
			c.noRepl()
			c.w.Int(0)
			return
		}
		c.markDirty()
		c.w.OK()
		return
	}
	if nx && c.db.lookup(dst) != nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	c.db.delete(src)
	c.db.set(dst, e)
	c.markDirty()
	if nx {
		c.w.Int(1)
		return
	}
	c.w.OK()
}

func cmdCopy(c *ctx) {
	src, dst := c.str(1), c.str(2)
	replace := false
	dstDB := c.db
	for i := 3; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "REPLACE":
			replace = true
		case "DB":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok || n < 0 || n >= int64(len(c.srv.dbs)) {
				c.w.Error(errDBIndex)
				return
			}
			dstDB = c.srv.dbs[n]
			i++
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	if dstDB == c.db && src == dst {
		c.w.Error("ERR source and destination objects are the same")
		return
	}
	e := c.db.lookup(src)
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	if !replace && dstDB.lookup(dst) != nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	// deep copy via the dump codec
	dup, err := loadDump(dumpEntry(e))
	if err != nil {
		c.w.Error("ERR copy failed")
		return
	}
	dup.expireAt = e.expireAt
	dstDB.set(dst, dup)
	c.markDirty()
	c.w.Int(1)
}

func cmdMove(c *ctx) {
	n, ok := parseI64(c.arg(2))
	if !ok || n < 0 || n >= int64(len(c.srv.dbs)) {
		c.w.Error(errDBIndex)
		return
	}
	dstDB := c.srv.dbs[n]
	if dstDB == c.db {
		c.w.Error("ERR source and destination objects are the same")
		return
	}
	key := c.str(1)
	e := c.db.lookup(key)
	if e == nil || dstDB.lookup(key) != nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	c.db.delete(key)
	dstDB.set(key, e)
	c.markDirty()
	c.w.Int(1)
}

func cmdDump(c *ctx) {
	e := c.db.lookup(c.str(1))
	if e == nil {
		c.w.Null()
		return
	}
	c.w.Bulk(dumpEntry(e))
}

func cmdRestore(c *ctx) {
	key := c.str(1)
	ttl, ok := parseI64(c.arg(2))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	if ttl < 0 {
		c.w.Error("ERR Invalid TTL value, must be >= 0")
		return
	}
	payload := c.arg(3)
	var replace, absTTL bool
	for i := 4; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "REPLACE":
			replace = true
		case "ABSTTL":
			absTTL = true
		case "IDLETIME", "FREQ":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			if _, ok := parseI64(c.arg(i + 1)); !ok {
				c.w.Error(errNotInt)
				return
			}
			i++
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	if !replace && c.db.lookup(key) != nil {
		c.w.Error(errBusyKey)
		return
	}
	e, err := loadDump(payload)
	if err != nil {
		c.w.Error("ERR Bad data format")
		return
	}
	absMS := int64(0)
	if ttl > 0 {
		if absTTL {
			absMS = ttl
		} else {
			absMS = c.nowMS() + ttl
		}
	}
	e.expireAt = absMS
	c.db.set(key, e)
	c.markDirty()
	if absMS > 0 {
		c.propagate("RESTORE", key, itoa(absMS), string(payload), "ABSTTL", "REPLACE")
	} else {
		c.propagate("RESTORE", key, "0", string(payload), "REPLACE")
	}
	c.w.OK()
}

const errMigrateIO = "IOERR error or timeout connecting to the target instance"

func cmdMigrate(c *ctx) {
	host, port := c.str(1), c.str(2)
	key := c.str(3)
	destDB, ok := parseI64(c.arg(4))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	timeoutMS, ok := parseI64(c.arg(5))
	if !ok {
		c.w.Error("ERR timeout is not an integer or out of range")
		return
	}
	var copyOpt, replace bool
	keys := []string{}
	if key != "" {
		keys = append(keys, key)
	}
	for i := 6; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "COPY":
			copyOpt = true
		case "REPLACE":
			replace = true
		case "KEYS":
			if key != "" {
				c.w.Error("ERR When using MIGRATE KEYS option, the key argument must be set to the empty string")
				return
			}
			for j := i + 1; j < c.argc(); j++ {
				keys = append(keys, c.str(j))
			}
			i = c.argc()
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	var present []string
	for _, k := range keys {
		if c.db.lookup(k) != nil {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		c.noRepl()
		c.w.SimpleString("NOKEY")
		return
	}
	if timeoutMS <= 0 {
		timeoutMS = 1000
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), time.Duration(timeoutMS)*time.Millisecond)
	if err != nil {
		c.w.Error(errMigrateIO)
		return
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(time.Duration(timeoutMS) * time.Millisecond))

	send := resp.EncodeCommandStr("SELECT", strconv.FormatInt(destDB, 10))
	for _, k := range present {
		e := c.db.lookup(k)
		ttl := int64(0)
		if e.expireAt != 0 {
			ttl = e.expireAt - c.nowMS()
			if ttl < 1 {
				ttl = 1
			}
		}
		args := [][]byte{[]byte("RESTORE"), []byte(k), []byte(itoa(ttl)), dumpEntry(e)}
		if replace {
			args = append(args, []byte("REPLACE"))
		}
		send = append(send, resp.EncodeCommand(args...)...)
	}
	if _, err := conn.Write(send); err != nil {
		c.w.Error(errMigrateIO)
		return
	}
	// one status line per sent command
	rbuf := make([]byte, 4096)
	var got []byte
	expect := 1 + len(present)
	for bytes.Count(got, []byte("\n")) < expect {
		n, err := conn.Read(rbuf)
		if err != nil {
			c.w.Error(errMigrateIO)
			return
		}
		got = append(got, rbuf[:n]...)
	}
	for _, line := range bytes.SplitAfter(got, []byte("\n")) {
		if len(line) > 0 && line[0] == resp.TypeError {
			c.w.Error("ERR Target instance replied with error: " + string(bytes.TrimSpace(line[1:])))
			return
		}
	}
	if !copyOpt {
		for _, k := range present {
			c.db.delete(k)
		}
		c.markDirty()
		args := append([]string{"DEL"}, present...)
		c.propagate(args...)
	} else {
		c.noRepl()
	}
	c.w.OK()
}

func cmdSort(c *ctx) {
	key := c.str(1)
	var byPat, storeKey string
	var getPats []string
	alpha, desc, hasLimit := false, false, false
	offset, count := int64(0), int64(-1)
	for i := 2; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "ALPHA":
			alpha = true
		case "ASC":
		case "DESC":
			desc = true
		case "BY":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			byPat = c.str(i + 1)
			i++
		case "GET":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			getPats = append(getPats, c.str(i+1))
			i++
		case "LIMIT":
			if i+2 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			o, ok1 := parseI64(c.arg(i + 1))
			n, ok2 := parseI64(c.arg(i + 2))
			if !ok1 || !ok2 {
				c.w.Error(errNotInt)
				return
			}
			offset, count = o, n
			hasLimit = true
			i += 2
		case "STORE":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			storeKey = c.str(i + 1)
			i++
		default:
			c.w.Error(errSyntax)
			return
		}
	}

	e := c.db.lookup(key)
	var items []string
	if e != nil {
		switch v := e.val.(type) {
		case *listVal:
			for i := 0; i < v.Len(); i++ {
				items = append(items, string(v.At(i)))
			}
		case *setVal:
			items = v.sortedMembers()
		case *zsetVal:
			v.RangeByRank(0, v.Len()-1, false, func(m string, _ float64) bool {
				items = append(items, m)
				return true
			})
		default:
			c.w.Error(errWrongType)
			return
		}
	}

	dontSort := byPat != "" && !strings.Contains(byPat, "*")
	if !dontSort {
		weight := func(item string) (float64, string, bool) {
			if byPat == "" {
				if alpha {
					return 0, item, true
				}
				f, ok := resp.ParseFloat([]byte(item))
				return f, "", ok
			}
			b := c.sortLookup(byPat, item)
			if b == nil {
				return 0, "", true // missing weight sorts as zero/empty
			}
			if alpha {
				return 0, string(b), true
			}
			f, ok := resp.ParseFloat(b)
			return f, "", ok
		}
		type ranked struct {
			item string
			num  float64
			str  string
		}
		rankedItems := make([]ranked, len(items))
		for i, it := range items {
			n, s, ok := weight(it)
			if !ok {
				c.w.Error("ERR One or more scores can't be converted into double")
				return
			}
			rankedItems[i] = ranked{it, n, s}
		}
		cmp := func(a, b ranked) int {
			if alpha {
				switch {
				case a.str < b.str:
					return -1
				case a.str > b.str:
					return 1
				}
			} else {
				switch {
				case a.num < b.num:
					return -1
				case a.num > b.num:
					return 1
				}
			}
			switch {
			case a.item < b.item:
				return -1
			case a.item > b.item:
				return 1
			}
			return 0
		}
		sort.SliceStable(rankedItems, func(i, j int) bool {
			if desc {
				return cmp(rankedItems[i], rankedItems[j]) > 0
			}
			return cmp(rankedItems[i], rankedItems[j]) < 0
		})
		for i, r := range rankedItems {
			items[i] = r.item
		}
	}

	if hasLimit {
		if offset < 0 {
			c.w.Error("ERR LIMIT offset is negative")
			return
		}
		if offset >= int64(len(items)) {
			items = nil
		} else {
			items = items[offset:]
			if count >= 0 && count < int64(len(items)) {
				items = items[:count]
			}
		}
	}

	// apply GET projections
	var out [][]byte
	if len(getPats) == 0 {
		for _, it := range items {
			out = append(out, []byte(it))
		}
	} else {
		for _, it := range items {
			for _, pat := range getPats {
				if pat == "#" {
					out = append(out, []byte(it))
					continue
				}
				out = append(out, c.sortLookup(pat, it))
			}
		}
	}

	if storeKey != "" {
		if len(out) == 0 {
			existed := c.db.lookup(storeKey) != nil
			c.db.delete(storeKey)
			if existed {
				c.markDirty()
				c.propagate("DEL", storeKey)
			} else {
				c.noRepl()
			}
			c.w.Int(0)
			return
		}
		le := newListEntry()
		for _, b := range out {
			if b == nil {
				b = []byte{}
			}
			le.list().PushBack(b)
		}
		c.db.set(storeKey, le)
		c.markDirty()
		// deterministic rewrite of the computed result
		args := make([]string, 0, len(out)+2)
		args = append(args, "RPUSH", storeKey)
		for _, b := range out {
			args = append(args, string(b))
		}
		c.propagate("DEL", storeKey)
		c.propagate(args...)
		c.w.Int(int64(len(out)))
		return
	}
	c.noRepl()
	c.w.ArrayHeader(len(out))
	for _, b := range out {
		if b == nil {
			c.w.Null()
		} else {
			c.w.Bulk(b)
		}
	}
}

// sortLookup resolves a BY/GET pattern ("weight_*", "obj_*->field") for
// one element.
func (c *ctx) sortLookup(pattern, subst string) []byte {
	var field string
	if i := strings.Index(pattern, "->"); i >= 0 {
		field = pattern[i+2:]
		pattern = pattern[:i]
	}
	key := strings.Replace(pattern, "*", subst, 1)
	e := c.db.lookup(key)
	if e == nil {
		return nil
	}
	if field != "" {
		if e.Type() != TypeHash {
			return nil
		}
		v, ok := e.hash().m[field]
		if !ok {
			return nil
		}
		return v
	}
	if e.Type() != TypeString {
		return nil
	}
	return e.str().b
}

func cmdObject(c *ctx) {
	sub := upperCmd(c.arg(1))
	switch sub {
	case "HELP":
		c.w.ArrayHeader(2)
		c.w.SimpleString("OBJECT <subcommand> [<arg> [value] [opt] ...]. Subcommands are:")
		c.w.SimpleString("ENCODING <key> -- Return the kind of internal representation used in order to store the value associated with a key.")
		return
	case "REFCOUNT", "ENCODING", "IDLETIME", "FREQ":
		if c.argc() != 3 {
			c.w.Error(errUnknownSub(lower(sub), "OBJECT"))
			return
		}
	default:
		c.w.Error(errUnknownSub(lower(sub), "OBJECT"))
		return
	}
	e := c.db.lookup(c.str(2))
	if e == nil {
		c.w.Error(errNoSuchKey)
		return
	}
	switch sub {
	case "REFCOUNT":
		c.w.Int(1)
	case "ENCODING":
		c.w.BulkString(e.Encoding())
	case "IDLETIME":
		c.w.Int(0)
	case "FREQ":
		c.w.Error("ERR An LFU maxmemory policy is not selected, access frequency not tracked. Please note that when switching between maxmemory policies at runtime LFU and LRU data will take some time to adjust.")
	}
}

func cmdSwapDB(c *ctx) {
	a, ok1 := parseI64(c.arg(1))
	b, ok2 := parseI64(c.arg(2))
	if !ok1 || !ok2 {
		c.w.Error("ERR invalid first DB index")
		return
	}
	if a < 0 || b < 0 || a >= int64(len(c.srv.dbs)) || b >= int64(len(c.srv.dbs)) {
		c.w.Error(errDBIndex)
		return
	}
	if a != b {
		dba, dbb := c.srv.dbs[a], c.srv.dbs[b]
		dba.dict, dbb.dict = dbb.dict, dba.dict
	}
	c.markDirty()
	c.w.OK()
}

func cmdDBSize(c *ctx) {
	// count only live keys
	now := c.nowMS()
	n := int64(0)
	c.db.dict.Each(func(_ string, e *Entry) bool {
		if e.expireAt == 0 || e.expireAt > now {
			n++
		}
		return true
	})
	c.w.Int(n)
}
