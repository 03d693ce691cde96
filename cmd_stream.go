package peadb

import (
	"bytes"
	"strconv"
)

func noGroupErr(group, key string) string {
	return "NOGROUP No such consumer group '" + group + "' for key name '" + key + "'"
}

// parseRangeID parses an XRANGE edge: "-", "+", "(id", "ms[-seq]".
func parseRangeID(b []byte, defSeq uint64) (id streamID, exclusive bool, err error) {
	if len(b) == 1 {
		switch b[0] {
		case '-':
			return streamIDZero, false, nil
		case '+':
			return streamIDMax, false, nil
		}
	}
	if len(b) > 1 && b[0] == '(' {
		id, err = parseStreamID(b[1:], defSeq)
		return id, true, err
	}
	id, err = parseStreamID(b, defSeq)
	return id, false, err
}

func cmdXAdd(c *ctx) {
	key := c.str(1)
	i := 2
	noMkStream := false
	trimStrategy := ""
	var trimMaxLen int64
	var trimMinID streamID
	for i < c.argc() {
		switch upperCmd(c.arg(i)) {
		case "NOMKSTREAM":
			noMkStream = true
			i++
		case "MAXLEN", "MINID":
			trimStrategy = upperCmd(c.arg(i))
			i++
			if i < c.argc() && (c.str(i) == "=" || c.str(i) == "~") {
				i++
			}
			if i >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			if trimStrategy == "MAXLEN" {
				n, ok := parseI64(c.arg(i))
				if !ok || n < 0 {
					c.w.Error(errNotInt)
					return
				}
				trimMaxLen = n
			} else {
				id, err := parseStreamID(c.arg(i), 0)
				if err != nil {
					c.w.Error("ERR " + err.Error())
					return
				}
				trimMinID = id
			}
			i++
			if i+1 < c.argc() && upperCmd(c.arg(i)) == "LIMIT" {
				if _, ok := parseI64(c.arg(i + 1)); !ok {
					c.w.Error(errNotInt)
					return
				}
				i += 2
			}
		default:
			goto idArg
		}
	}
idArg:
	if i >= c.argc() {
		c.w.Error(errWrongArgs("xadd"))
		return
	}
	idArg := c.arg(i)
	i++
	if (c.argc()-i) == 0 || (c.argc()-i)%2 != 0 {
		c.w.Error(errWrongArgs("xadd"))
		return
	}

	e, ok := c.typedWrite(key, TypeStream)
	if !ok {
		return
	}
	if e == nil {
		if noMkStream {
			c.noRepl()
			c.w.Null()
			return
		}
		e = newStreamEntry()
		c.db.set(key, e)
	}
	s := e.stream()

	var id streamID
	switch {
	case len(idArg) == 1 && idArg[0] == '*':
		id = s.nextID(c.nowMS())
	case bytes.HasSuffix(idArg, []byte("-*")):
		ms, ok := parseI64(idArg[:len(idArg)-2])
		if !ok || ms < 0 {
			c.w.Error("ERR Invalid stream ID specified as stream command argument")
			return
		}
		if uint64(ms) == s.lastID.ms {
			id = s.lastID.next()
		} else {
			id = streamID{uint64(ms), 0}
		}
	default:
		var err error
		id, err = parseStreamID(idArg, 0)
		if err != nil {
			c.w.Error("ERR " + err.Error())
			return
		}
	}
	if id == streamIDZero {
		c.w.Error("ERR The ID specified in XADD must be greater than 0-0")
		return
	}

	fields := make([][]byte, 0, c.argc()-i)
	for ; i < c.argc(); i++ {
		fields = append(fields, append([]byte(nil), c.arg(i)...))
	}
	if err := s.Add(id, fields); err != nil {
		c.w.Error("ERR " + err.Error())
		return
	}
	switch trimStrategy {
	case "MAXLEN":
		s.TrimMaxLen(int(trimMaxLen))
	case "MINID":
		s.TrimMinID(trimMinID)
	}
	c.markDirty()

	// replicate with the resolved id so replicas replay identically
	args := []string{"XADD", key}
	switch trimStrategy {
	case "MAXLEN":
		args = append(args, "MAXLEN", itoa(trimMaxLen))
	case "MINID":
		args = append(args, "MINID", trimMinID.String())
	}
	args = append(args, id.String())
	for _, f := range fields {
		args = append(args, string(f))
	}
	c.propagate(args...)
	c.w.BulkString(id.String())
}

func cmdXLen(c *ctx) {
	e, ok := c.typedRead(c.str(1), TypeStream)
	if !ok {
		return
	}
	if e == nil {
		c.w.Int(0)
		return
	}
	c.w.Int(int64(e.stream().Len()))
}

func writeStreamEntry(c *ctx, e *streamEntry) {
	c.w.ArrayHeader(2)
	c.w.BulkString(e.id.String())
	c.w.ArrayHeader(len(e.fields))
	for _, f := range e.fields {
		c.w.Bulk(f)
	}
}

// cmdXRange serves XRANGE and XREVRANGE.
func cmdXRange(c *ctx) {
	rev := upperCmd(c.arg(0)) == "XREVRANGE"
	startArg, endArg := c.arg(2), c.arg(3)
	if rev {
		startArg, endArg = endArg, startArg
	}
	start, startEx, err1 := parseRangeID(startArg, 0)
	end, endEx, err2 := parseRangeID(endArg, ^uint64(0))
	if err1 != nil || err2 != nil {
		c.w.Error("ERR Invalid stream ID specified as stream command argument")
		return
	}
	if startEx {
		start = start.next()
	}
	if endEx {
		end = end.prev()
	}
	count := -1
	if c.argc() > 4 {
		if c.argc() != 6 || upperCmd(c.arg(4)) != "COUNT" {
			c.w.Error(errSyntax)
			return
		}
		n, ok := parseI64(c.arg(5))
		if !ok {
			c.w.Error(errNotInt)
			return
		}
		count = int(n)
	}
	e, ok := c.typedRead(c.str(1), TypeStream)
	if !ok {
		return
	}
	if e == nil {
		c.w.ArrayHeader(0)
		return
	}
	var out []*streamEntry
	e.stream().Range(start, end, rev, count, func(se *streamEntry) bool {
		out = append(out, se)
		return true
	})
	c.w.ArrayHeader(len(out))
	for _, se := range out {
		writeStreamEntry(c, se)
	}
}

func cmdXDel(c *ctx) {
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeStream)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	s := e.stream()
	removed := int64(0)
	for i := 2; i < c.argc(); i++ {
		id, err := parseStreamID(c.arg(i), 0)
		if err != nil {
			c.w.Error("ERR " + err.Error())
			return
		}
		if s.Delete(id) {
			removed++
		}
	}
	if removed > 0 {
		c.markDirty()
	} else {
		c.noRepl()
	}
	c.w.Int(removed)
}

func cmdXTrim(c *ctx) {
	key := c.str(1)
	strategy := upperCmd(c.arg(2))
	i := 3
	if i < c.argc() && (c.str(i) == "=" || c.str(i) == "~") {
		i++
	}
	if i >= c.argc() {
		c.w.Error(errSyntax)
		return
	}
	e, ok := c.typedWrite(key, TypeStream)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	var removed int64
	switch strategy {
	case "MAXLEN":
		n, pok := parseI64(c.arg(i))
		if !pok || n < 0 {
			c.w.Error(errNotInt)
			return
		}
		removed = e.stream().TrimMaxLen(int(n))
	case "MINID":
		id, err := parseStreamID(c.arg(i), 0)
		if err != nil {
			c.w.Error("ERR " + err.Error())
			return
		}
		removed = e.stream().TrimMinID(id)
	default:
		c.w.Error(errSyntax)
		return
	}
	if removed > 0 {
		c.markDirty()
	} else {
		c.noRepl()
	}
	c.w.Int(removed)
}

func cmdXAck(c *ctx) {
	key, group := c.str(1), c.str(2)
	e, ok := c.typedWrite(key, TypeStream)
	if !ok {
		return
	}
	if e == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	g := e.stream().groups[group]
	if g == nil {
		c.noRepl()
		c.w.Int(0)
		return
	}
	acked := int64(0)
	for i := 3; i < c.argc(); i++ {
		id, err := parseStreamID(c.arg(i), 0)
		if err != nil {
			c.w.Error("ERR " + err.Error())
			return
		}
		if _, pending := g.pending[id]; pending {
			delete(g.pending, id)
			acked++
		}
	}
	if acked > 0 {
		c.markDirty()
	} else {
		c.noRepl()
	}
	c.w.Int(acked)
}

func cmdXGroup(c *ctx) {
	sub := upperCmd(c.arg(1))
	switch sub {
	case "CREATE":
		if c.argc() < 5 {
			c.w.Error(errWrongArgs("xgroup"))
			return
		}
		key, group := c.str(2), c.str(3)
		mkstream := c.argc() >= 6 && upperCmd(c.arg(5)) == "MKSTREAM"
		e, ok := c.typedWrite(key, TypeStream)
		if !ok {
			return
		}
		if e == nil {
			if !mkstream {
				c.w.Error("ERR The XGROUP subcommand requires the key to exist. Note that for CREATE you may want to use the MKSTREAM option to create an empty stream automatically.")
				return
			}
			e = newStreamEntry()
			c.db.set(key, e)
		}
		s := e.stream()
		var start streamID
		if c.str(4) == "$" {
			start = s.lastID
		} else {
			id, err := parseStreamID(c.arg(4), 0)
			if err != nil {
				c.w.Error("ERR " + err.Error())
				return
			}
			start = id
		}
		if _, exists := s.groups[group]; exists {
			c.w.Error("BUSYGROUP Consumer Group name already exists")
			return
		}
		s.groups[group] = newStreamGroup(start)
		c.markDirty()
		c.propagate("XGROUP", "CREATE", key, group, start.String())
		c.w.OK()
	case "DESTROY":
		if c.argc() != 4 {
			c.w.Error(errWrongArgs("xgroup"))
			return
		}
		key, group := c.str(2), c.str(3)
		e, ok := c.typedWrite(key, TypeStream)
		if !ok {
			return
		}
		if e != nil {
			if _, exists := e.stream().groups[group]; exists {
				delete(e.stream().groups, group)
				c.markDirty()
				c.w.Int(1)
				return
			}
		}
		c.noRepl()
		c.w.Int(0)
	case "CREATECONSUMER":
		if c.argc() != 5 {
			c.w.Error(errWrongArgs("xgroup"))
			return
		}
		g, ok := c.findGroup(c.str(2), c.str(3))
		if !ok {
			return
		}
		consumer := c.str(4)
		if _, exists := g.consumers[consumer]; exists {
			c.noRepl()
			c.w.Int(0)
			return
		}
		g.consumers[consumer] = struct{}{}
		c.markDirty()
		c.w.Int(1)
	case "DELCONSUMER":
		if c.argc() != 5 {
			c.w.Error(errWrongArgs("xgroup"))
			return
		}
		g, ok := c.findGroup(c.str(2), c.str(3))
		if !ok {
			return
		}
		consumer := c.str(4)
		removed := int64(0)
		for id, p := range g.pending {
			if p.consumer == consumer {
				delete(g.pending, id)
				removed++
			}
		}
		delete(g.consumers, consumer)
		if removed > 0 {
			c.markDirty()
		} else {
			c.noRepl()
		}
		c.w.Int(removed)
	case "SETID":
		if c.argc() < 5 {
			c.w.Error(errWrongArgs("xgroup"))
			return
		}
		key, group := c.str(2), c.str(3)
		g, ok := c.findGroup(key, group)
		if !ok {
			return
		}
		e := c.db.lookup(key)
		var id streamID
		if c.str(4) == "$" {
			id = e.stream().lastID
		} else {
			parsed, err := parseStreamID(c.arg(4), 0)
			if err != nil {
				c.w.Error("ERR " + err.Error())
				return
			}
			id = parsed
		}
		g.lastDelivered = id
		c.markDirty()
		c.propagate("XGROUP", "SETID", key, group, id.String())
		c.w.OK()
	default:
		c.w.Error(errUnknownSub(lower(sub), "XGROUP"))
	}
}

// findGroup resolves key+group, replying NOGROUP/WRONGTYPE on failure.
func (c *ctx) findGroup(key, group string) (*streamGroup, bool) {
	e, ok := c.typedWrite(key, TypeStream)
	if !ok {
		return nil, false
	}
	if e == nil {
		c.w.Error(noGroupErr(group, key))
		return nil, false
	}
	g := e.stream().groups[group]
	if g == nil {
		c.w.Error(noGroupErr(group, key))
		return nil, false
	}
	return g, true
}

// parseStreamsClause parses the trailing "STREAMS key... id..." of
// XREAD/XREADGROUP starting at index i.
func parseStreamsClause(c *ctx, i int) (keys []string, ids [][]byte, ok bool) {
	rest := c.argc() - i
	if rest < 2 || rest%2 != 0 {
		c.w.Error("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified.")
		return nil, nil, false
	}
	n := rest / 2
	for k := 0; k < n; k++ {
		keys = append(keys, c.str(i+k))
		ids = append(ids, c.arg(i+n+k))
	}
	return keys, ids, true
}

func cmdXRead(c *ctx) {
	count := -1
	blockMS := int64(-1)
	i := 1
	for i < c.argc() {
		switch upperCmd(c.arg(i)) {
		case "COUNT":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok {
				c.w.Error(errNotInt)
				return
			}
			count = int(n)
			i += 2
		case "BLOCK":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok || n < 0 {
				c.w.Error("ERR timeout is not an integer or out of range")
				return
			}
			blockMS = n
			i += 2
		case "STREAMS":
			i++
			goto streams
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	c.w.Error(errSyntax)
	return
streams:
	keys, ids, ok := parseStreamsClause(c, i)
	if !ok {
		return
	}
	// resolve ids ("$" = current last id) before reading or parking
	resolved := make([]streamID, len(keys))
	for k, key := range keys {
		e, tok := c.typedRead(key, TypeStream)
		if !tok {
			return
		}
		if len(ids[k]) == 1 && ids[k][0] == '$' {
			if e != nil {
				resolved[k] = e.stream().lastID
			}
			continue
		}
		id, err := parseStreamID(ids[k], 0)
		if err != nil {
			c.w.Error("ERR " + err.Error())
			return
		}
		resolved[k] = id
	}

	type hit struct {
		key     string
		entries []*streamEntry
	}
	var hits []hit
	for k, key := range keys {
		e := c.db.lookup(key)
		if e == nil || e.Type() != TypeStream {
			continue
		}
		var got []*streamEntry
		e.stream().Range(resolved[k].next(), streamIDMax, false, count, func(se *streamEntry) bool {
			got = append(got, se)
			return true
		})
		if len(got) > 0 {
			hits = append(hits, hit{key, got})
		}
	}
	if len(hits) > 0 {
		c.w.ArrayHeader(len(hits))
		for _, h := range hits {
			c.w.ArrayHeader(2)
			c.w.BulkString(h.key)
			c.w.ArrayHeader(len(h.entries))
			for _, se := range h.entries {
				writeStreamEntry(c, se)
			}
		}
		return
	}
	if blockMS < 0 || (!c.retrying && !c.mayBlock()) {
		c.w.NullArray()
		return
	}
	// park with $ pinned to the resolved ids so later adds wake us
	if !c.retrying {
		args := make([][]byte, 0, c.argc())
		for j := 0; j < i; j++ {
			args = append(args, c.arg(j))
		}
		for _, key := range keys {
			args = append(args, []byte(key))
		}
		for k := range keys {
			args = append(args, []byte(resolved[k].String()))
		}
		c.args = args
	}
	deadline := int64(0)
	if blockMS > 0 {
		deadline = c.nowMS() + blockMS
	}
	c.park(TypeStream, keys, deadline)
}

func cmdXReadGroup(c *ctx) {
	if upperCmd(c.arg(1)) != "GROUP" {
		c.w.Error(errSyntax)
		return
	}
	group, consumer := c.str(2), c.str(3)
	count := -1
	noack := false
	blockMS := int64(-1)
	i := 4
	for i < c.argc() {
		switch upperCmd(c.arg(i)) {
		case "COUNT":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok {
				c.w.Error(errNotInt)
				return
			}
			count = int(n)
			i += 2
		case "NOACK":
			noack = true
			i++
		case "BLOCK":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok || n < 0 {
				c.w.Error("ERR timeout is not an integer or out of range")
				return
			}
			blockMS = n
			i += 2
		case "STREAMS":
			i++
			goto streams
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	c.w.Error(errSyntax)
	return
streams:
	keys, ids, ok := parseStreamsClause(c, i)
	if !ok {
		return
	}

	type hit struct {
		key     string
		entries []*streamEntry
	}
	var hits []hit
	for k, key := range keys {
		e, tok := c.typedWrite(key, TypeStream)
		if !tok {
			return
		}
		if e == nil {
			c.w.Error(noGroupErr(group, key))
			return
		}
		s := e.stream()
		g := s.groups[group]
		if g == nil {
			c.w.Error(noGroupErr(group, key))
			return
		}
		g.consumers[consumer] = struct{}{}

		if len(ids[k]) == 1 && ids[k][0] == '>' {
			// new entries past last_delivered_id
			var got []*streamEntry
			s.Range(g.lastDelivered.next(), streamIDMax, false, count, func(se *streamEntry) bool {
				got = append(got, se)
				return true
			})
			if len(got) == 0 {
				continue
			}
			for _, se := range got {
				g.lastDelivered = se.id
				if !noack {
					g.pending[se.id] = &pelEntry{
						id:            se.id,
						consumer:      consumer,
						deliveryTime:  c.nowMS(),
						deliveryCount: 1,
					}
				}
				// consumer delivery replays as an explicit claim
				c.propagate("XCLAIM", key, group, consumer, "0", se.id.String(),
					"TIME", itoa(c.nowMS()), "RETRYCOUNT", "1", "FORCE", "JUSTID")
			}
			c.markDirty()
			hits = append(hits, hit{key, got})
			continue
		}

		// history replay: this consumer's PEL from the given id
		start, err := parseStreamID(ids[k], 0)
		if err != nil {
			c.w.Error("ERR " + err.Error())
			return
		}
		got := []*streamEntry{}
		for _, p := range g.sortedPending(consumer) {
			if p.id.cmp(start) < 0 {
				continue
			}
			if count > 0 && len(got) >= count {
				break
			}
			if se := s.get(p.id); se != nil {
				got = append(got, se)
			}
		}
		hits = append(hits, hit{key, got})
	}

	if len(hits) > 0 {
		c.w.ArrayHeader(len(hits))
		for _, h := range hits {
			c.w.ArrayHeader(2)
			c.w.BulkString(h.key)
			c.w.ArrayHeader(len(h.entries))
			for _, se := range h.entries {
				writeStreamEntry(c, se)
			}
		}
		return
	}
	if blockMS < 0 || (!c.retrying && !c.mayBlock()) {
		c.noRepl()
		c.w.NullArray()
		return
	}
	deadline := int64(0)
	if blockMS > 0 {
		deadline = c.nowMS() + blockMS
	}
	c.park(TypeStream, keys, deadline)
}

func cmdXPending(c *ctx) {
	key, group := c.str(1), c.str(2)
	g, ok := c.findGroup(key, group)
	if !ok {
		return
	}
	if c.argc() == 3 {
		// summary form
		pend := g.sortedPending("")
		if len(pend) == 0 {
			c.w.ArrayHeader(4)
			c.w.Int(0)
			c.w.Null()
			c.w.Null()
			c.w.NullArray()
			return
		}
		perConsumer := make(map[string]int64)
		var order []string
		for _, p := range pend {
			if perConsumer[p.consumer] == 0 {
				order = append(order, p.consumer)
			}
			perConsumer[p.consumer]++
		}
		c.w.ArrayHeader(4)
		c.w.Int(int64(len(pend)))
		c.w.BulkString(pend[0].id.String())
		c.w.BulkString(pend[len(pend)-1].id.String())
		c.w.ArrayHeader(len(order))
		for _, name := range order {
			c.w.ArrayHeader(2)
			c.w.BulkString(name)
			c.w.BulkString(strconv.FormatInt(perConsumer[name], 10))
		}
		return
	}

	// extended form: [IDLE ms] start end count [consumer]
	i := 3
	idle := int64(0)
	if upperCmd(c.arg(i)) == "IDLE" {
		if i+1 >= c.argc() {
			c.w.Error(errSyntax)
			return
		}
		n, ok := parseI64(c.arg(i + 1))
		if !ok {
			c.w.Error(errNotInt)
			return
		}
		idle = n
		i += 2
	}
	if c.argc()-i < 3 {
		c.w.Error(errSyntax)
		return
	}
	start, startEx, err1 := parseRangeID(c.arg(i), 0)
	end, endEx, err2 := parseRangeID(c.arg(i+1), ^uint64(0))
	countArg, ok3 := parseI64(c.arg(i + 2))
	if err1 != nil || err2 != nil || !ok3 {
		c.w.Error("ERR Invalid stream ID specified as stream command argument")
		return
	}
	if startEx {
		start = start.next()
	}
	if endEx {
		end = end.prev()
	}
	consumer := ""
	if c.argc()-i == 4 {
		consumer = c.str(i + 3)
	}
	now := c.nowMS()
	var out []*pelEntry
	for _, p := range g.sortedPending(consumer) {
		if p.id.cmp(start) < 0 || p.id.cmp(end) > 0 {
			continue
		}
		if idle > 0 && now-p.deliveryTime < idle {
			continue
		}
		if int64(len(out)) >= countArg {
			break
		}
		out = append(out, p)
	}
	c.w.ArrayHeader(len(out))
	for _, p := range out {
		c.w.ArrayHeader(4)
		c.w.BulkString(p.id.String())
		c.w.BulkString(p.consumer)
		c.w.Int(now - p.deliveryTime)
		c.w.Int(p.deliveryCount)
	}
}

func cmdXClaim(c *ctx) {
	key, group, consumer := c.str(1), c.str(2), c.str(3)
	minIdle, ok := parseI64(c.arg(4))
	if !ok {
		c.w.Error("ERR Invalid min-idle-time argument for XCLAIM")
		return
	}
	g, gok := c.findGroup(key, group)
	if !gok {
		return
	}
	s := c.db.lookup(key).stream()

	var ids []streamID
	i := 5
	for ; i < c.argc(); i++ {
		id, err := parseStreamID(c.arg(i), 0)
		if err != nil {
			break
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		c.w.Error("ERR Invalid stream ID specified as stream command argument")
		return
	}
	force, justID := false, false
	claimTime := c.nowMS()
	retrySet := int64(-1)
	for ; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "FORCE":
			force = true
		case "JUSTID":
			justID = true
		case "IDLE":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok {
				c.w.Error(errNotInt)
				return
			}
			claimTime = c.nowMS() - n
			i++
		case "TIME":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok {
				c.w.Error(errNotInt)
				return
			}
			claimTime = n
			i++
		case "RETRYCOUNT":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok {
				c.w.Error(errNotInt)
				return
			}
			retrySet = n
			i++
		case "LASTID":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			i++
		default:
			c.w.Error(errSyntax)
			return
		}
	}

	g.consumers[consumer] = struct{}{}
	now := c.nowMS()
	var claimed []streamID
	for _, id := range ids {
		p := g.pending[id]
		if p == nil {
			if !force || s.get(id) == nil {
				continue
			}
			p = &pelEntry{id: id, deliveryCount: 0}
			g.pending[id] = p
		}
		if minIdle > 0 && now-p.deliveryTime < minIdle {
			continue
		}
		p.consumer = consumer
		p.deliveryTime = claimTime
		if retrySet >= 0 {
			p.deliveryCount = retrySet
		} else if !justID {
			p.deliveryCount++
		}
		claimed = append(claimed, id)
	}
	if len(claimed) > 0 {
		c.markDirty()
	} else {
		c.noRepl()
	}
	c.w.ArrayHeader(len(claimed))
	for _, id := range claimed {
		if justID {
			c.w.BulkString(id.String())
			continue
		}
		if se := s.get(id); se != nil {
			writeStreamEntry(c, se)
		} else {
			c.w.Null()
		}
	}
}

func cmdXSetID(c *ctx) {
	key := c.str(1)
	e, ok := c.typedWrite(key, TypeStream)
	if !ok {
		return
	}
	if e == nil {
		c.w.Error("ERR The XSETID command requires the key to exist.")
		return
	}
	id, err := parseStreamID(c.arg(2), 0)
	if err != nil {
		c.w.Error("ERR " + err.Error())
		return
	}
	s := e.stream()
	if len(s.entries) > 0 && id.cmp(s.entries[len(s.entries)-1].id) < 0 {
		c.w.Error("ERR The ID specified in XSETID is smaller than the target stream top item")
		return
	}
	for i := 3; i < c.argc(); i++ {
		switch upperCmd(c.arg(i)) {
		case "ENTRIESADDED":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			n, ok := parseI64(c.arg(i + 1))
			if !ok || n < 0 {
				c.w.Error(errNotInt)
				return
			}
			s.added = uint64(n)
			i++
		case "MAXDELETEDID":
			if i+1 >= c.argc() {
				c.w.Error(errSyntax)
				return
			}
			md, err := parseStreamID(c.arg(i+1), 0)
			if err != nil {
				c.w.Error("ERR " + err.Error())
				return
			}
			s.maxDeleted = md
			i++
		default:
			c.w.Error(errSyntax)
			return
		}
	}
	s.lastID = id
	c.markDirty()
	c.w.OK()
}
