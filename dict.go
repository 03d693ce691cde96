package peadb

import (
	"math/bits"
	"math/rand"

	"github.com/cespare/xxhash/v2"
	rsbits "github.com/rsms/go-bits"
)

// dict is the keyspace hash table: chained buckets whose count only ever
// changes by powers of two, so reverse-bit-increment scan cursors survive
// rehashing. Go's builtin map can't expose its buckets, which the SCAN
// guarantee needs.
type dict struct {
	buckets []*dictEntry
	mask    uint64
	used    int
}

type dictEntry struct {
	key  string
	val  *Entry
	next *dictEntry
}

const dictInitialBuckets = 16

func newDict() *dict {
	return &dict{
		buckets: make([]*dictEntry, dictInitialBuckets),
		mask:    dictInitialBuckets - 1,
	}
}

func dictHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

func (d *dict) Len() int { return d.used }

func (d *dict) Get(key string) *Entry {
	for e := d.buckets[dictHash(key)&d.mask]; e != nil; e = e.next {
		if e.key == key {
			return e.val
		}
	}
	return nil
}

// Set stores val under key, returning true when the key was not present.
func (d *dict) Set(key string, val *Entry) bool {
	i := dictHash(key) & d.mask
	for e := d.buckets[i]; e != nil; e = e.next {
		if e.key == key {
			e.val = val
			return false
		}
	}
	d.buckets[i] = &dictEntry{key: key, val: val, next: d.buckets[i]}
	d.used++
	if d.used > len(d.buckets) {
		d.grow()
	}
	return true
}

func (d *dict) Delete(key string) bool {
	i := dictHash(key) & d.mask
	var prev *dictEntry
	for e := d.buckets[i]; e != nil; e = e.next {
		if e.key == key {
			if prev == nil {
				d.buckets[i] = e.next
			} else {
				prev.next = e.next
			}
			d.used--
			return true
		}
		prev = e
	}
	return false
}

func (d *dict) Clear() {
	d.buckets = make([]*dictEntry, dictInitialBuckets)
	d.mask = dictInitialBuckets - 1
	d.used = 0
}

// grow doubles the bucket count, preserving the power-of-two invariant the
// scan cursor depends on.
func (d *dict) grow() {
	nz := len(d.buckets) * 2
	if rsbits.PopcountUint64(uint64(nz)) != 1 {
		panic("dict: bucket count not a power of two")
	}
	buckets := make([]*dictEntry, nz)
	mask := uint64(nz - 1)
	for _, e := range d.buckets {
		for e != nil {
			next := e.next
			i := dictHash(e.key) & mask
			e.next = buckets[i]
			buckets[i] = e
			e = next
		}
	}
	d.buckets = buckets
	d.mask = mask
}

// Scan visits the bucket selected by cursor and returns the next cursor,
// using the reverse-binary-increment walk: every key present for the whole
// iteration is visited at least once even across intervening rehashes.
// A return of 0 ends the iteration.
func (d *dict) Scan(cursor uint64, visit func(key string, val *Entry)) uint64 {
	if d.used == 0 {
		return 0
	}
	for e := d.buckets[cursor&d.mask]; e != nil; e = e.next {
		visit(e.key, e.val)
	}
	cursor |= ^d.mask
	cursor = bits.Reverse64(bits.Reverse64(cursor) + 1)
	return cursor
}

// Each visits every entry. The visit callback must not mutate the dict.
func (d *dict) Each(visit func(key string, val *Entry) bool) {
	for _, e := range d.buckets {
		for ; e != nil; e = e.next {
			if !visit(e.key, e.val) {
				return
			}
		}
	}
}

// RandomEntry returns a uniformly-ish random entry, or nil when empty.
func (d *dict) RandomEntry(rng *rand.Rand) *dictEntry {
	if d.used == 0 {
		return nil
	}
	for {
		e := d.buckets[rng.Intn(len(d.buckets))]
		if e == nil {
			continue
		}
		// reservoir pick within the chain
		n := 0
		var pick *dictEntry
		for ; e != nil; e = e.next {
			n++
			if rng.Intn(n) == 0 {
				pick = e
			}
		}
		return pick
	}
}
