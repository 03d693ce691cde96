package peadb

func cmdMulti(c *ctx) {
	if c.s.inMulti {
		c.w.Error(errNestedMulti)
		return
	}
	c.s.inMulti = true
	c.w.OK()
}

func cmdDiscard(c *ctx) {
	if !c.s.inMulti {
		c.w.Error(errDiscNoMulti)
		return
	}
	c.s.clearMulti()
	c.w.OK()
}

func cmdWatch(c *ctx) {
	if c.s.inMulti {
		c.w.Error(errWatchInMulti)
		return
	}
	epoch := c.srv.journal.Epoch()
	for i := 1; i < c.argc(); i++ {
		key := c.str(i)
		c.s.watches = append(c.s.watches, watchEntry{
			db:     c.s.db,
			key:    key,
			epoch:  epoch,
			digest: c.db.digestKey(key),
		})
	}
	c.w.OK()
}

func cmdUnwatch(c *ctx) {
	c.s.watches = nil
	c.w.OK()
}

func cmdExec(c *ctx) {
	s := c.s
	if !s.inMulti {
		c.w.Error(errExecNoMulti)
		return
	}
	if s.multiDirty {
		s.clearMulti()
		c.w.Error(errExecAbort)
		return
	}

	// optimistic check: the epoch is the coarse filter; once it has moved, the
	// per-key content digest decides, so a watched key deleted and recreated
	// with identical content does not abort
	for _, we := range s.watches {
		if c.srv.journal.Epoch() == we.epoch {
			continue
		}
		if c.srv.dbs[we.db].digestKey(we.key) != we.digest {
			s.clearMulti()
			c.w.NullArray()
			return
		}
	}

	queued := s.queued
	s.clearMulti()

	// capture replication into the side buffer; the flush brackets the
	// events in MULTI/EXEC when two or more writes occurred
	c.srv.journal.BeginTx()
	c.srv.inExec = true
	c.w.ArrayHeader(len(queued))
	for _, q := range queued {
		c.w.Raw(c.srv.Exec(s, q.args, q.wire))
	}
	c.srv.inExec = false
	c.srv.journal.CommitTx()
}
