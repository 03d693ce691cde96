package peadb

import (
	"math"

	"github.com/alsatianco/peadb/resp"
)

func parseScore(b []byte) (float64, bool) {
	return resp.ParseFloat(b)
}

// parseScoreEdge parses a score range edge: number, "(number", "-inf",
// "+inf".
func parseScoreEdge(b []byte) (v float64, exclusive, ok bool) {
	if len(b) > 0 && b[0] == '(' {
		exclusive = true
		b = b[1:]
	}
	v, ok = resp.ParseFloat(b)
	return
}

func parseScoreRangeArgs(minb, maxb []byte) (*scoreRange, bool) {
	r := &scoreRange{}
	var ok bool
	r.min, r.minEx, ok = parseScoreEdge(minb)
	if !ok {
		return nil, false
	}
	r.max, r.maxEx, ok = parseScoreEdge(maxb)
	if !ok {
		return nil, false
	}
	return r, true
}

// parseLexEdge parses a lex range edge: "[member", "(member", "-", "+".
func parseLexEdge(b []byte, isMin bool, r *lexRange) bool {
	if len(b) == 1 && b[0] == '-' {
		if isMin {
			r.minInf = true
		} else {
			r.max, r.maxEx = "", false
			// "-" as max matches nothing above the empty string; modeled
			// as max="" inclusive-exclusive handled by contains
			r.maxInf = false
			r.max = ""
			r.maxEx = true
		}
		return true
	}
	if len(b) == 1 && b[0] == '+' {
		if isMin {
			// "+" as min matches nothing; min above every member
			r.minInf = false
			r.min = "\xff\xff\xff\xff\xff\xff\xff\xff"
			r.minEx = false
		} else {
			r.maxInf = true
		}
		return true
	}
	if len(b) == 0 || (b[0] != '[' && b[0] != '(') {
		return false
	}
	ex := b[0] == '('
	if isMin {
		r.min, r.minEx = string(b[1:]), ex
	} else {
		r.max, r.maxEx = string(b[1:]), ex
	}
	return true
}

func parseLexRangeArgs(minb, maxb []byte) (*lexRange, bool) {
	r := &lexRange{}
	if !parseLexEdge(minb, true, r) || !parseLexEdge(maxb, false, r) {
		return nil, false
	}
	return r, true
}

const errLexRange = "ERR min or max not valid string range item"
const errScoreFloat = "ERR min or max is not a float"

func cmdZAdd(c *ctx) {
	var nx, xx, gt, lt, ch, incr bool
	i := 2
loop:
	for i < c.argc() {
		switch upperCmd(c.arg(i)) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		case "CH":
			ch = true
		case "INCR":
			incr = true
		default:
			break loop
		}
		i++
	}
	if (gt && lt) || (nx && (xx || gt || lt)) {
		c.w.Error("ERR GT, LT, and/or NX options at the same time are not compatible")
		return
	}
	rest := c.argc() - i
	if rest == 0 || rest%2 != 0 {
		c.w.Error(errSyntax)
		return
	}
	if incr && rest != 2 {
		c.w.Error("ERR INCR option supports a single increment-element pair")
		return
	}
	// validate all scores before touching anything
	scores := make([]float64, 0, rest/2)
	for j := i; j < c.argc(); j += 2 {
		v, ok := parseScore(c.arg(j))
		if !ok {
			c.w.Error(errNotFloat)
			return
		}
		scores = append(scores, v)
	}
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeZSet)
	if !ok {
		return
	}
	if e == nil {
		if xx {
			c.noRepl()
			if incr {
				c.w.Null()
			} else {
				c.w.Int(0)
			}
			return
		}
		e = newZSetEntry()
		c.db.set(key, e)
	}
	z := e.zset()
	var added, changed int64
	for k, j := 0, i; j < c.argc(); k, j = k+1, j+2 {
		member := c.str(j + 1)
		score := scores[k]
		old, exists := z.Score(member)
		if incr {
			if (nx && exists) || (xx && !exists) {
				c.noRepl()
				c.w.Null()
				return
			}
			if exists {
				score += old
				if math.IsNaN(score) {
					c.w.Error("ERR resulting score is not a number (NaN)")
					return
				}
			}
		}
		if exists {
			if nx || (gt && score <= old) || (lt && score >= old) {
				if incr {
					c.noRepl()
					c.w.Null()
					return
				}
				continue
			}
			if score != old {
				z.Add(c.srv.rng, member, score)
				changed++
			}
		} else {
			if xx {
				continue
			}
			z.Add(c.srv.rng, member, score)
			added++
			changed++
		}
		if incr {
			c.markDirty()
			c.propagate("ZADD", key, resp.FormatFloat(score), member)
			c.w.Double(score)
			return
		}
	}
	if changed > 0 {
		c.markDirty()
	} else {
		c.noRepl()
	}
	if e.zset().Len() == 0 {
		c.db.delete(key)
	}
	if incr {
		// reached only when the pair was skipped
		c.w.Null()
		return
	}
	if ch {
		c.w.Int(changed)
		return
	}
	c.w.Int(added)
}

func cmdZRem(c *ctx) {
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeZSet)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	z := e.zset()
	removed := int64(0)
	for i := 2; i < c.argc(); i++ {
		if z.Remove(c.str(i)) {
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

func cmdZScore(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeZSet)
	if !ok {
		return
	}
	if e == nil {
		c.w.Null()
		return
	}
	score, exists := e.zset().Score(c.str(2))
	if !exists {
		c.w.Null()
		return
	}
	c.w.Double(score)
}

func cmdZMScore(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeZSet)
	if !ok {
		return
	}
	c.w.ArrayHeader(c.argc() - 2)
	for i := 2; i < c.argc(); i++ {
		if e == nil {
			c.w.Null()
			continue
		}
		score, exists := e.zset().Score(c.str(i))
		if !exists {
			c.w.Null()
			continue
		}
		c.w.Double(score)
	}
}

func cmdZIncrBy(c *ctx) {
	by, ok := parseScore(c.arg(2))
	if !ok {
		c.w.Error(errNotFloat)
		return
	}
	key := c.str(1)
	e, wok := c.typedWrite(key, TypeZSet)
	if !wok {
		return
	}
	if e == nil {
		e = newZSetEntry()
		c.db.set(key, e)
	}
	z := e.zset()
	member := c.str(3)
	score, _ := z.Score(member)
	score += by
	if math.IsNaN(score) {
		c.w.Error("ERR resulting score is not a number (NaN)")
		return
	}
	z.Add(c.srv.rng, member, score)
	c.markDirty()
	c.propagate("ZADD", key, resp.FormatFloat(score), member)
	c.w.Double(score)
}

func cmdZCard(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeZSet)
	if !ok {
		return
	}
	if e == nil {
		c.w.Int(0)
		return
	}
	c.w.Int(int64(e.zset().Len()))
}

func cmdZCount(c *ctx) {
	r, ok := parseScoreRangeArgs(c.arg(2), c.arg(3))
	if !ok {
		c.w.Error(errScoreFloat)
		return
	}
	e, rok := c.typedRead(c.str(1), TypeZSet)
	if !rok {
		return
	}
	n := int64(0)
	if e != nil {
		e.zset().RangeByScore(r, false, 0, -1, func(string, float64) bool {
			n++
			return true
		})
	}
	c.w.Int(n)
}

func cmdZLexCount(c *ctx) {
	r, ok := parseLexRangeArgs(c.arg(2), c.arg(3))
	if !ok {
		c.w.Error(errLexRange)
		return
	}
	e, rok := c.typedRead(c.str(1), TypeZSet)
	if !rok {
		return
	}
	n := int64(0)
	if e != nil {
		e.zset().RangeByLex(r, false, 0, -1, func(string, float64) bool {
			n++
			return true
		})
	}
	c.w.Int(n)
}

// cmdZRange serves ZRANGE (with REV/BYSCORE/BYLEX/LIMIT/WITHSCORES) and
// the legacy ZREVRANGE.
func cmdZRange(c *ctx) {
	legacyRev := upperCmd(c.arg(0)) == "ZREVRANGE"
	rev := legacyRev
	byScore, byLex, withScores := false, false, false
	offset, count := 0, -1
	limitSet := false
	for i := 4; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "WITHSCORES":
			withScores = true
		case "REV":
			if legacyRev {
				c.w.Error(errSyntax)
				return
			}
			rev = true
		case "BYSCORE":
			if legacyRev {
				c.w.Error(errSyntax)
				return
			}
			byScore = true
		case "BYLEX":
			if legacyRev {
				c.w.Error(errSyntax)
				return
			}
			byLex = true
		case "LIMIT":
			if legacyRev || i+2 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			o, ok1 := parseI64(c.arg(i + 1))
			n, ok2 := parseI64(c.arg(i + 2))
			if !ok1 || !ok2 {
				c.w.Error(errNotInt)
				return
			}
			offset, count = int(o), int(n)
			limitSet = true
			i += 2
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	if limitSet && !byScore && !byLex {
		c.w.Error("ERR syntax error, LIMIT is only supported in combination with either BYSCORE or BYLEX")
		return
	}
	if byLex && withScores {
		c.w.Error(errSyntax)
		return
	}
	e, ok := c.typedRead(c.str(1), TypeZSet)
	if !ok {
		return
	}
	var members []string
	var scores []float64
	collect := func(m string, s float64) bool {
		members = append(members, m)
		scores = append(scores, s)
		return true
	}
	if e != nil {
		z := e.zset()
		switch {
		case byScore:
			lo, hi := c.arg(2), c.arg(3)
			if rev {
				lo, hi = hi, lo
			}
			r, rok := parseScoreRangeArgs(lo, hi)
			if !rok {
				c.w.Error(errScoreFloat)
				return
			}
			z.RangeByScore(r, rev, offset, count, collect)
		case byLex:
			lo, hi := c.arg(2), c.arg(3)
			if rev {
				lo, hi = hi, lo
			}
			r, rok := parseLexRangeArgs(lo, hi)
			if !rok {
				c.w.Error(errLexRange)
				return
			}
			z.RangeByLex(r, rev, offset, count, collect)
		default:
			start, ok1 := parseI64(c.arg(2))
			stop, ok2 := parseI64(c.arg(3))
			if !ok1 || !ok2 {
				c.w.Error(errNotInt)
				return
			}
			s := parseIndex(start, z.Len())
			t := parseIndex(stop, z.Len())
			z.RangeByRank(s, t, rev, collect)
		}
	} else {
		// still validate range arguments on a missing key
		if byScore {
			if _, rok := parseScoreRangeArgs(c.arg(2), c.arg(3)); !rok {
				c.w.Error(errScoreFloat)
				return
			}
		} else if byLex {
			if _, rok := parseLexRangeArgs(c.arg(2), c.arg(3)); !rok {
				c.w.Error(errLexRange)
				return
			}
		} else {
			_, ok1 := parseI64(c.arg(2))
			_, ok2 := parseI64(c.arg(3))
			if !ok1 || !ok2 {
				c.w.Error(errNotInt)
				return
			}
		}
	}
	writeMembersScores(c, members, scores, withScores)
}

func writeMembersScores(c *ctx, members []string, scores []float64, withScores bool) {
	if withScores {
		if c.w.Proto3 {
			c.w.ArrayHeader(len(members))
			for i, m := range members {
				c.w.ArrayHeader(2)
				c.w.BulkString(m)
				c.w.Double(scores[i])
			}
			return
		}
		c.w.ArrayHeader(len(members) * 2)
		for i, m := range members {
			c.w.BulkString(m)
			c.w.Double(scores[i])
		}
		return
	}
	c.w.ArrayHeader(len(members))
	for _, m := range members {
		c.w.BulkString(m)
	}
}

// cmdZRangeByScore serves ZRANGEBYSCORE and ZREVRANGEBYSCORE.
func cmdZRangeByScore(c *ctx) {
	rev := upperCmd(c.arg(0)) == "ZREVRANGEBYSCORE"
	withScores := false
	offset, count := 0, -1
	for i := 4; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "WITHSCORES":
			withScores = true
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
			offset, count = int(o), int(n)
			i += 2
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	lo, hi := c.arg(2), c.arg(3)
	if rev {
		lo, hi = hi, lo
	}
	r, ok := parseScoreRangeArgs(lo, hi)
	if !ok {
		c.w.Error(errScoreFloat)
		return
	}
	e, rok := c.typedRead(c.str(1), TypeZSet)
	if !rok {
		return
	}
	var members []string
	var scores []float64
	if e != nil {
		e.zset().RangeByScore(r, rev, offset, count, func(m string, s float64) bool {
			members = append(members, m)
			scores = append(scores, s)
			return true
		})
	}
	writeMembersScores(c, members, scores, withScores)
}

// cmdZRangeByLex serves ZRANGEBYLEX and ZREVRANGEBYLEX.
func cmdZRangeByLex(c *ctx) {
	rev := upperCmd(c.arg(0)) == "ZREVRANGEBYLEX"
	offset, count := 0, -1
	for i := 4; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
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
			offset, count = int(o), int(n)
			i += 2
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	lo, hi := c.arg(2), c.arg(3)
	if rev {
		lo, hi = hi, lo
	}
	r, ok := parseLexRangeArgs(lo, hi)
	if !ok {
		c.w.Error(errLexRange)
		return
	}
	e, rok := c.typedRead(c.str(1), TypeZSet)
	if !rok {
		return
	}
	var members []string
	if e != nil {
		e.zset().RangeByLex(r, rev, offset, count, func(m string, _ float64) bool {
			members = append(members, m)
			return true
		})
	}
	c.w.ArrayHeader(len(members))
	for _, m := range members {
		c.w.BulkString(m)
	}
}

// cmdZRank serves ZRANK and ZREVRANK with the optional WITHSCORE form.
func cmdZRank(c *ctx) {
	rev := upperCmd(c.arg(0)) == "ZREVRANK"
	withScore := false
	if c.argc() == 4 {
		if upperCmd(c.arg(3)) != "WITHSCORE" {
			c.w.Error(errSyntax)
			return
		}
		withScore = true
	} else if c.argc() != 3 {
		c.w.Error(errSyntax)
		return
	}
	e, ok := c.typedRead(c.str(1), TypeZSet)
	if !ok {
		return
	}
	if e == nil {
		if withScore {
			c.w.NullArray()
		} else {
			c.w.Null()
		}
		return
	}
	z := e.zset()
	rank, exists := z.Rank(c.str(2))
	if !exists {
		if withScore {
			c.w.NullArray()
		} else {
			c.w.Null()
		}
		return
	}
	if rev {
		rank = z.Len() - 1 - rank
	}
	if withScore {
		score, _ := z.Score(c.str(2))
		c.w.ArrayHeader(2)
		c.w.Int(int64(rank))
		c.w.Double(score)
		return
	}
	c.w.Int(int64(rank))
}

func cmdZRemRangeByRank(c *ctx) {
	start, ok1 := parseI64(c.arg(2))
	stop, ok2 := parseI64(c.arg(3))
	if !ok1 || !ok2 {
		c.w.Error(errNotInt)
		return
	}
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeZSet)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	z := e.zset()
	var doomed []string
	z.RangeByRank(parseIndex(start, z.Len()), parseIndex(stop, z.Len()), false,
		func(m string, _ float64) bool {
			doomed = append(doomed, m)
			return true
		})
	for _, m := range doomed {
		z.Remove(m)
	}
	finishZRemRange(c, key, e, int64(len(doomed)))
}

func cmdZRemRangeByScore(c *ctx) {
	r, ok := parseScoreRangeArgs(c.arg(2), c.arg(3))
	if !ok {
		c.w.Error(errScoreFloat)
		return
	}
	key := c.str(1)
	e, wok := c.typedWrite(key, TypeZSet)
	if !wok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	z := e.zset()
	var doomed []string
	z.RangeByScore(r, false, 0, -1, func(m string, _ float64) bool {
		doomed = append(doomed, m)
		return true
	})
	for _, m := range doomed {
		z.Remove(m)
	}
	finishZRemRange(c, key, e, int64(len(doomed)))
}

func cmdZRemRangeByLex(c *ctx) {
	r, ok := parseLexRangeArgs(c.arg(2), c.arg(3))
	if !ok {
		c.w.Error(errLexRange)
		return
	}
	key := c.str(1)
	e, wok := c.typedWrite(key, TypeZSet)
	if !wok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	z := e.zset()
	var doomed []string
	z.RangeByLex(r, false, 0, -1, func(m string, _ float64) bool {
		doomed = append(doomed, m)
		return true
	})
	for _, m := range doomed {
		z.Remove(m)
	}
	finishZRemRange(c, key, e, int64(len(doomed)))
}

func finishZRemRange(c *ctx, key string, e *Entry, removed int64) {
	if removed > 0 {
		c.markDirty()
		c.deleteIfEmpty(key, e)
	} else {
		c.noRepl()
	}
	c.w.Int(removed)
}

// cmdZPop serves ZPOPMIN and ZPOPMAX.
func cmdZPop(c *ctx) {
	min := upperCmd(c.arg(0)) == "ZPOPMIN"
	count := int64(1)
	if c.argc() == 3 {
		n, ok := parseI64(c.arg(2))
		if !ok || n < 0 {
			c.w.Error("ERR value is out of range, must be positive")
			return
		}
		count = n
	}
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeZSet)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.ArrayHeader(0)
		return
	}
	members, scores := zpop(e.zset(), min, count)
	if len(members) > 0 {
		c.markDirty()
		c.deleteIfEmpty(key, e)
	} else {
		c.noRepl()
	}
	c.w.ArrayHeader(len(members) * 2)
	for i, m := range members {
		c.w.BulkString(m)
		c.w.Double(scores[i])
	}
}

func zpop(z *zsetVal, min bool, count int64) (members []string, scores []float64) {
	for int64(len(members)) < count && z.Len() > 0 {
		var node *zskipNode
		if min {
			node = z.First()
		} else {
			node = z.Last()
		}
		members = append(members, node.member)
		scores = append(scores, node.score)
		z.Remove(node.member)
	}
	return
}

// cmdBZPop serves BZPOPMIN and BZPOPMAX.
func cmdBZPop(c *ctx) {
	min := upperCmd(c.arg(0)) == "BZPOPMIN"
	deadline, ok := c.blockDeadline(c.arg(c.argc() - 1))
	if !ok {
		return
	}
	keys := make([]string, 0, c.argc()-2)
	for i := 1; i < c.argc()-1; i++ {
		keys = append(keys, c.str(i))
	}
	for _, key := range keys {
		e, tok := c.typedWrite(key, TypeZSet)
		if !tok {
			return
		}
		if e == nil || e.zset().Len() == 0 {
			continue
		}
		members, scores := zpop(e.zset(), min, 1)
		c.markDirty()
		c.deleteIfEmpty(key, e)
		op := "ZPOPMAX"
		if min {
			op = "ZPOPMIN"
		}
		c.propagate(op, key)
		c.w.ArrayHeader(3)
		c.w.BulkString(key)
		c.w.BulkString(members[0])
		c.w.Double(scores[0])
		return
	}
	if !c.retrying && !c.mayBlock() {
		c.noRepl()
		c.w.NullArray()
		return
	}
	c.park(TypeZSet, keys, deadline)
}

func cmdZRandMember(c *ctx) {
	hasCount := c.argc() >= 3
	count := int64(1)
	withScores := false
	if hasCount {
		n, ok := parseI64(c.arg(2))
		if !ok {
			c.w.Error(errNotInt)
			return
		}
		count = n
		if c.argc() == 4 {
			if upperCmd(c.arg(3)) != "WITHSCORES" {
				c.w.Error(errSyntax)
				return
			}
			withScores = true
		}
	}
	e, ok := c.typedRead(c.str(1), TypeZSet)
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
	z := e.zset()
	all := make([]string, 0, z.Len())
	z.RangeByRank(0, z.Len()-1, false, func(m string, _ float64) bool {
		all = append(all, m)
		return true
	})
	if !hasCount {
		c.w.BulkString(all[c.srv.rng.Intn(len(all))])
		return
	}
	var picks []string
	if count < 0 {
		for i := int64(0); i < -count; i++ {
			picks = append(picks, all[c.srv.rng.Intn(len(all))])
		}
	} else {
		c.srv.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		if int64(len(all)) > count {
			all = all[:count]
		}
		picks = all
	}
	if withScores {
		c.w.ArrayHeader(len(picks) * 2)
		for _, m := range picks {
			score, _ := z.Score(m)
			c.w.BulkString(m)
			c.w.Double(score)
		}
		return
	}
	c.w.ArrayHeader(len(picks))
	for _, m := range picks {
		c.w.BulkString(m)
	}
}

func cmdZScan(c *ctx) {
	e, cur, pat, _, ok := c.scanSubPrologue(TypeZSet)
	if !ok {
		return
	}
	c.w.ArrayHeader(2)
	c.w.BulkString("0")
	if cur != 0 || e == nil {
		c.w.ArrayHeader(0)
		return
	}
	var members []string
	var scores []float64
	e.zset().RangeByRank(0, e.zset().Len()-1, false, func(m string, s float64) bool {
		if pat.Match(m) {
			members = append(members, m)
			scores = append(scores, s)
		}
		return true
	})
	c.w.ArrayHeader(len(members) * 2)
	for i, m := range members {
		c.w.BulkString(m)
		c.w.Bulk(resp.AppendFloat(nil, scores[i]))
	}
}
