package peadb

import "sort"

func cmdSAdd(c *ctx) {
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeSet)
	if !ok {
		return
	}
	if e == nil {
		e = newSetEntry()
		c.db.set(key, e)
	}
	s := e.set()
	added := int64(0)
	for i := 2; i < c.argc(); i++ {
		if s.Add(c.str(i)) {
			added++
		}
	}
	if added > 0 {
		c.markDirty()
	} else {
		c.noRepl()
	}
	c.w.Int(added)
}

func cmdSRem(c *ctx) {
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeSet)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	s := e.set()
	removed := int64(0)
	for i := 2; i < c.argc(); i++ {
		if s.Remove(c.str(i)) {
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

func cmdSMembers(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeSet)
	if !ok {
		return
	}
	if e == nil {
		c.w.SetHeader(0)
		return
	}
	s := e.set()
	c.w.SetHeader(len(s.m))
	for m := range s.m {
		c.w.BulkString(m)
	}
}

func cmdSIsMember(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeSet)
	if !ok {
		return
	}
	if e != nil && e.set().Has(c.str(2)) {
		c.w.Int(1)
		return
	}
	c.w.Int(0)
}

func cmdSMIsMember(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeSet)
	if !ok {
		return
	}
	c.w.ArrayHeader(c.argc() - 2)
	for i := 2; i < c.argc(); i++ {
		if e != nil && e.set().Has(c.str(i)) {
			c.w.Int(1)
		} else {
			c.w.Int(0)
		}
	}
}

func cmdSCard(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeSet)
	if !ok {
		return
	}
	if e == nil {
		c.w.Int(0)
		return
	}
	c.w.Int(int64(len(e.set().m)))
}

func cmdSPop(c *ctx) {
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
	e, ok := c.typedWrite(key, TypeSet)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		if hasCount {
			c.w.SetHeader(0)
		} else {
			c.w.Null()
		}
		return
	}
	s := e.set()
	members := s.sortedMembers()
	c.srv.rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	if count > int64(len(members)) {
		count = int64(len(members))
	}
	popped := members[:count]
	for _, m := range popped {
		s.Remove(m)
	}
	if len(popped) > 0 {
		c.markDirty()
		c.deleteIfEmpty(key, e)
		// random picks must replay identically: rewrite as SREM
		args := append([]string{"SREM", key}, popped...)
		c.propagate(args...)
	} else {
		c.noRepl()
	}
	if !hasCount {
		if len(popped) == 0 {
			c.w.Null()
			return
		}
		c.w.BulkString(popped[0])
		return
	}
	c.w.SetHeader(len(popped))
	for _, m := range popped {
		c.w.BulkString(m)
	}
}

func cmdSRandMember(c *ctx) {
	hasCount := c.argc() == 3
	count := int64(1)
	if hasCount {
		n, ok := parseI64(c.arg(2))
		if !ok {
			c.w.Error(errNotInt)
			return
		}
		count = n
	}
	e, ok := c.typedRead(c.str(1), TypeSet)
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
	members := e.set().sortedMembers()
	if !hasCount {
		c.w.BulkString(members[c.srv.rng.Intn(len(members))])
		return
	}
	var picks []string
	if count < 0 {
		for i := int64(0); i < -count; i++ {
			picks = append(picks, members[c.srv.rng.Intn(len(members))])
		}
	} else {
		c.srv.rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		if int64(len(members)) > count {
			members = members[:count]
		}
		picks = members
	}
	c.w.ArrayHeader(len(picks))
	for _, m := range picks {
		c.w.BulkString(m)
	}
}

func cmdSMove(c *ctx) {
	src, dst := c.str(1), c.str(2)
	se, ok := c.typedWrite(src, TypeSet)
	if !ok {
		return
	}
	de, ok := c.typedWrite(dst, TypeSet)
	if !ok {
		return
	}
	member := c.str(3)
	if se == nil || !se.set().Has(member) {
		c.noRepl()
		c.w.Int(0)
		return
	}
	se.set().Remove(member)
	if de == nil {
		de = newSetEntry()
		c.db.set(dst, de)
	}
	de.set().Add(member)
	c.markDirty()
	c.deleteIfEmpty(src, se)
	c.w.Int(1)
}

// setOp computes the union/intersection/difference of the named keys.
func (c *ctx) setOp(op string, keys []string) (result []string, ok bool) {
	sets := make([]*setVal, len(keys))
	for i, key := range keys {
		e, tok := c.typedWrite(key, TypeSet)
		if !tok {
			return nil, false
		}
		if e != nil {
			sets[i] = e.set()
		}
	}
	switch op {
	case "inter":
		if sets[0] == nil {
			return nil, true
		}
	next:
		for m := range sets[0].m {
			for _, s := range sets[1:] {
				if s == nil || !s.Has(m) {
					continue next
				}
			}
			result = append(result, m)
		}
	case "union":
		seen := make(map[string]struct{})
		for _, s := range sets {
			if s == nil {
				continue
			}
			for m := range s.m {
				if _, dup := seen[m]; !dup {
					seen[m] = struct{}{}
					result = append(result, m)
				}
			}
		}
	case "diff":
		if sets[0] == nil {
			return nil, true
		}
	diff:
		for m := range sets[0].m {
			for _, s := range sets[1:] {
				if s != nil && s.Has(m) {
					continue diff
				}
			}
			result = append(result, m)
		}
	}
	sort.Strings(result)
	return result, true
}

func keysFrom(c *ctx, first int) []string {
	keys := make([]string, 0, c.argc()-first)
	for i := first; i < c.argc(); i++ {
		keys = append(keys, c.str(i))
	}
	return keys
}

func cmdSInter(c *ctx) { setOpReply(c, "inter") }
func cmdSUnion(c *ctx) { setOpReply(c, "union") }
func cmdSDiff(c *ctx)  { setOpReply(c, "diff") }

func setOpReply(c *ctx, op string) {
	result, ok := c.setOp(op, keysFrom(c, 1))
	if !ok {
		return
	}
	c.w.SetHeader(len(result))
	for _, m := range result {
		c.w.BulkString(m)
	}
}

func cmdSInterCard(c *ctx) {
	numkeys, ok := parseI64(c.arg(1))
	if !ok {
		c.w.Error(errNotInt)
		return
	}
	if numkeys <= 0 || int64(c.argc()-2) < numkeys {
		c.w.Error("ERR numkeys should be greater than 0")
		return
	}
	limit := int64(-1)
	i := 2 + int(numkeys)
	if i < c.argc() {
		if upperCmd(c.arg(i)) != "LIMIT" || i+1 >= c.argc() {
			c.w.Error(errSyntax)
			return
		}
		n, ok := parseI64(c.arg(i + 1))
		if !ok || n < 0 {
			c.w.Error("ERR LIMIT can't be negative")
			return
		}
		limit = n
	}
	keys := make([]string, 0, numkeys)
	for k := 2; k < 2+int(numkeys); k++ {
		keys = append(keys, c.str(k))
	}
	result, ok := c.setOp("inter", keys)
	if !ok {
		return
	}
	n := int64(len(result))
	if limit >= 0 && n > limit {
		n = limit
	}
	c.w.Int(n)
}

func cmdSInterStore(c *ctx) { setOpStore(c, "inter") }
func cmdSUnionStore(c *ctx) { setOpStore(c, "union") }
func cmdSDiffStore(c *ctx)  { setOpStore(c, "diff") }

func setOpStore(c *ctx, op string) {
	dst := c.str(1)
	result, ok := c.setOp(op, keysFrom(c, 2))
	if !ok {
		return
	}
	if len(result) == 0 {
		if c.db.lookup(dst) != nil {
			c.db.delete(dst)
			c.markDirty()
			c.propagate("DEL", dst)
		} else {
			c.noRepl()
		}
		c.w.Int(0)
		return
	}
	e := newSetEntry()
	for _, m := range result {
		e.set().Add(m)
	}
	c.db.set(dst, e)
	c.markDirty()
	c.w.Int(int64(len(result)))
}

func cmdSScan(c *ctx) {
	e, cur, pat, _, ok := c.scanSubPrologue(TypeSet)
	if !ok {
		return
	}
	c.w.ArrayHeader(2)
	c.w.BulkString("0")
	if cur != 0 || e == nil {
		c.w.ArrayHeader(0)
		return
	}
	var out []string
	for m := range e.set().m {
		if pat.Match(m) {
			out = append(out, m)
		}
	}
	c.w.ArrayHeader(len(out))
	for _, m := range out {
		c.w.BulkString(m)
	}
}
