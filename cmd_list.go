package peadb

import (
	"bytes"
)

// cmdPush serves LPUSH, RPUSH, LPUSHX and RPUSHX.
func cmdPush(c *ctx) {
	name := upperCmd(c.arg(0))
	left := name[0] == 'L'
	xOnly := name[len(name)-1] == 'X'
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeList)
	if !ok {
		return
	}
	if e == nil {
		if xOnly {
			c.noRepl()
			c.w.Int(0)
			return
		}
		e = newListEntry()
		c.db.set(key, e)
	}
	l := e.list()
	for i := 2; i < c.argc(); i++ {
		v := append([]byte(nil), c.arg(i)...)
		if left {
			l.PushFront(v)
		} else {
			l.PushBack(v)
		}
	}
	c.markDirty()
	c.w.Int(int64(l.Len()))
}

// cmdPop serves LPOP and RPOP with the optional count form.
func cmdPop(c *ctx) {
	name := upperCmd(c.arg(0))
	left := name[0] == 'L'
	hasCount := c.argc() == 3
	count := int64(1)
	if hasCount {
		n, ok := parseI64(c.arg(2))
		if !ok || n < 0 {
			c.w.Error("ERR value is out of range, must be positive")
			return
		}
		count = n
	}
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeList)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		if hasCount {
			c.w.NullArray()
		} else {
			c.w.Null()
		}
		return
	}
	l := e.list()
	if count > int64(l.Len()) {
		count = int64(l.Len())
	}
	popped := make([][]byte, 0, count)
	for i := int64(0); i < count; i++ {
		if left {
			popped = append(popped, l.PopFront())
		} else {
			popped = append(popped, l.PopBack())
		}
	}
	if len(popped) > 0 {
		c.markDirty()
		c.deleteIfEmpty(key, e)
	} else {
		c.noRepl()
	}
	if !hasCount {
		if len(popped) == 0 {
			c.w.Null()
			return
		}
		c.w.Bulk(popped[0])
		return
	}
	c.w.ArrayHeader(len(popped))
	for _, v := range popped {
		c.w.Bulk(v)
	}
}

func cmdLLen(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeList)
	if !ok {
		return
	}
	if e == nil {
		c.w.Int(0)
		return
	}
	c.w.Int(int64(e.list().Len()))
}

func cmdLIndex(c *ctx) {
	idx, ok := parseI64(c.arg(2))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	e, rok := c.typedRead(c.str(1), TypeList)
	if !rok {
		return
	}
	if e == nil {
		c.w.Null()
		return
	}
	l := e.list()
	i := parseIndex(idx, l.Len())
	if i < 0 || i >= l.Len() {
		c.w.Null()
		return
	}
	c.w.Bulk(l.At(i))
}

func cmdLSet(c *ctx) {
	idx, ok := parseI64(c.arg(2))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	key := c.str(1)
	e, wok := c.typedWrite(key, TypeList)
	if !wok {
		return
	}
	if e == nil {
		c.w.Error(errNoSuchKey)
		return
	}
	l := e.list()
	i := parseIndex(idx, l.Len())
	if i < 0 || i >= l.Len() {
		c.w.Error(errIndexRange)
		return
	}
	l.SetAt(i, append([]byte(nil), c.arg(3)...))
	c.markDirty()
	c.w.OK()
}

func cmdLRange(c *ctx) {
	start, ok1 := parseI64(c.arg(2))
	stop, ok2 := parseI64(c.arg(3))
	if !ok1 || !ok2 {
		c.w.Error(errNotInt)
		return
	}
	e, ok := c.typedRead(c.str(1), TypeList)
	if !ok {
		return
	}
	if e == nil {
		c.w.ArrayHeader(0)
		return
	}
	l := e.list()
	s := parseIndex(start, l.Len())
	t := parseIndex(stop, l.Len())
	if s < 0 {
		s = 0
	}
	if t >= l.Len() {
		t = l.Len() - 1
	}
	if s > t {
		c.w.ArrayHeader(0)
		return
	}
	c.w.ArrayHeader(t - s + 1)
	for i := s; i <= t; i++ {
		c.w.Bulk(l.At(i))
	}
}

func cmdLTrim(c *ctx) {
	start, ok1 := parseI64(c.arg(2))
	stop, ok2 := parseI64(c.arg(3))
	if !ok1 || !ok2 {
		c.w.Error(errNotInt)
		return
	}
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeList)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.OK()
		return
	}
	l := e.list()
	s := parseIndex(start, l.Len())
	t := parseIndex(stop, l.Len())
	if s < 0 {
		s = 0
	}
	l.Trim(s, t)
	c.markDirty()
	c.deleteIfEmpty(key, e)
	c.w.OK()
}

func cmdLRem(c *ctx) {
	count, ok := parseI64(c.arg(2))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	key := c.str(1)
	e, wok := c.typedWrite(key, TypeList)
	if !wok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	l := e.list()
	target := c.arg(3)
	removed := int64(0)
	switch {
	case count >= 0:
		limit := count
		for i := 0; i < l.Len(); {
			if bytes.Equal(l.At(i), target) {
				l.RemoveAt(i)
				removed++
				if limit > 0 && removed == limit {
					break
				}
				continue
			}
			i++
		}
	default:
		limit := -count
		for i := l.Len() - 1; i >= 0; i-- {
			if bytes.Equal(l.At(i), target) {
				l.RemoveAt(i)
				removed++
				if removed == limit {
					break
				}
			}
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

func cmdLInsert(c *ctx) {
	var before bool
	switch upperCmd(c.arg(2)) {
	case "BEFORE":
		before = true
	case "AFTER":
	default:
		c.w.Error(errSyntax)
		return
	}
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeList)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	l := e.list()
	pivot := c.arg(3)
	for i := 0; i < l.Len(); i++ {
		if bytes.Equal(l.At(i), pivot) {
			at := i
			if !before {
				at = i + 1
			}
			l.InsertAt(at, append([]byte(nil), c.arg(4)...))
			c.markDirty()
			c.w.Int(int64(l.Len()))
			return
		}
	}
	c.noRepl()
	c.w.Int(-1)
}

func cmdLPos(c *ctx) {
	target := c.arg(2)
	rank := int64(1)
	var count int64 = -1 // -1: single reply
	maxlen := int64(0)
	for i := 3; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "RANK":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok {
				c.w.Error(errNotInt)
				return
			}
			if n == 0 {
				c.w.Error("ERR RANK can't be zero. Use 1 to start searching from the first matching element, or the negative rank to start searching from the end.")
				return
			}
			rank = n
			i++
		case "COUNT":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok || n < 0 {
				c.w.Error("ERR COUNT can't be negative")
				return
			}
			count = n
			i++
		case "MAXLEN":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok || n < 0 {
				c.w.Error("ERR MAXLEN can't be negative")
				return
			}
			maxlen = n
			i++
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	e, ok := c.typedRead(c.str(1), TypeList)
	if !ok {
		return
	}
	var hits []int64
	if e != nil {
		l := e.list()
		skip := rank
		if skip < 0 {
			skip = -skip
		}
		scanned := int64(0)
		step := 1
		i := 0
		if rank < 0 {
			step = -1
			i = l.Len() - 1
		}
		for ; i >= 0 && i < l.Len(); i += step {
			scanned++
			if maxlen > 0 && scanned > maxlen {
				break
			}
			if !bytes.Equal(l.At(i), target) {
				continue
			}
			if skip > 1 {
				skip--
				continue
			}
			hits = append(hits, int64(i))
			if count < 0 {
				break // single-reply form
			}
			if count > 0 && int64(len(hits)) >= count {
				break
			}
		}
	}
	if count < 0 {
		if len(hits) == 0 {
			c.w.Null()
			return
		}
		c.w.Int(hits[0])
		return
	}
	c.w.ArrayHeader(len(hits))
	for _, h := range hits {
		c.w.Int(h)
	}
}

// cmdLMove serves LMOVE and the legacy RPOPLPUSH.
func cmdLMove(c *ctx) {
	name := upperCmd(c.arg(0))
	src, dst := c.str(1), c.str(2)
	srcLeft, dstLeft := false, true // RPOPLPUSH defaults
	if name == "LMOVE" {
		var ok bool
		srcLeft, dstLeft, ok = parseSides(c, 3, 4)
		if !ok {
			return
		}
	}
	c.lmove(src, dst, srcLeft, dstLeft)
}

func parseSides(c *ctx, i, j int) (srcLeft, dstLeft, ok bool) {
	switch upperCmd(c.arg(i)) {
	case "LEFT":
		srcLeft = true
	case "RIGHT":
	default:
		c.w.Error(errSyntax)
		return false, false, false
	}
	switch upperCmd(c.arg(j)) {
	case "LEFT":
		dstLeft = true
	case "RIGHT":
	default:
		c.w.Error(errSyntax)
		return false, false, false
	}
	return srcLeft, dstLeft, true
}

// lmove pops from src and pushes to dst, replying the element. Replies
// null (and replicates nothing) when src is missing.
func (c *ctx) lmove(src, dst string, srcLeft, dstLeft bool) {
	se, ok := c.typedWrite(src, TypeList)
	if !ok {
		return
	}
	de, ok := c.typedWrite(dst, TypeList)
	if !ok {
		return
	}
	if se == nil {
		c.noRepl()
		c.w.Null()
		return
	}
	sl := se.list()
	var v []byte
	if srcLeft {
		v = sl.PopFront()
	} else {
		v = sl.PopBack()
	}
	if de == nil {
		de = newListEntry()
		c.db.set(dst, de)
	}
	if dstLeft {
		de.list().PushFront(v)
	} else {
		de.list().PushBack(v)
	}
	c.markDirty()
	c.deleteIfEmpty(src, se)
	c.w.Bulk(v)
}

// cmdBPop serves BLPOP and BRPOP.
func cmdBPop(c *ctx) {
	left := upperCmd(c.arg(0)) == "BLPOP"
	deadline, ok := c.blockDeadline(c.arg(c.argc() - 1))
	if !ok {
		return
	}
	keys := make([]string, 0, c.argc()-2)
	for i := 1; i < c.argc()-1; i++ {
		keys = append(keys, c.str(i))
	}
	for _, key := range keys {
		e, ok := c.typedWrite(key, TypeList)
		if !ok {
			return
		}
		if e == nil || e.list().Len() == 0 {
			continue
		}
		l := e.list()
		var v []byte
		op := "RPOP"
		if left {
			v = l.PopFront()
			op = "LPOP"
		} else {
			v = l.PopBack()
		}
		c.markDirty()
		c.deleteIfEmpty(key, e)
		c.propagate(op, key)
		c.w.ArrayHeader(2)
		c.w.BulkString(key)
		c.w.Bulk(v)
		return
	}
	if !c.retrying && !c.mayBlock() {
		c.noRepl()
		c.w.NullArray()
		return
	}
	c.park(TypeList, keys, deadline)
}

// cmdBLMove serves BLMOVE and BRPOPLPUSH.
func cmdBLMove(c *ctx) {
	name := upperCmd(c.arg(0))
	src, dst := c.str(1), c.str(2)
	srcLeft, dstLeft := false, true
	timeoutArg := c.arg(3)
	if name == "BLMOVE" {
		var ok bool
		srcLeft, dstLeft, ok = parseSides(c, 3, 4)
		if !ok {
			return
		}
		timeoutArg = c.arg(5)
	}
	deadline, ok := c.blockDeadline(timeoutArg)
	if !ok {
		return
	}
	se, tok := c.typedWrite(src, TypeList)
	if !tok {
		return
	}
	if se != nil && se.list().Len() > 0 {
		c.lmove(src, dst, srcLeft, dstLeft)
		if c.dirty > 0 {
			sside, dside := "RIGHT", "LEFT"
			if srcLeft {
				sside = "LEFT"
			}
			if !dstLeft {
				dside = "RIGHT"
			}
			c.propagate("LMOVE", src, dst, sside, dside)
		}
		return
	}
	if !c.retrying && !c.mayBlock() {
		c.noRepl()
		c.w.Null()
		return
	}
	c.park(TypeList, []string{src}, deadline)
}

// blockDeadline converts a timeout-seconds argument (float, 0 = forever)
// to an absolute ms deadline.
func (c *ctx) blockDeadline(arg []byte) (int64, bool) {
	secs, ok := parseTimeoutSecs(arg)
	if !ok {
		c.w.Error("ERR timeout is not a float or out of range")
		return 0, false
	}
	if secs < 0 {
		c.w.Error("ERR timeout is negative")
		return 0, false
	}
	if secs == 0 {
		return 0, true
	}
	return c.nowMS() + int64(secs*1000), true
}
