package peadb

import (
	"strconv"
	"testing"

	"github.com/rsms/go-testutil"
)

func TestDictBasics(t *testing.T) {
	assert := testutil.NewAssert(t)
	d := newDict()

	assert.Ok("new key", d.Set("a", newStringEntry([]byte("1"))))
	assert.Ok("overwrite", !d.Set("a", newStringEntry([]byte("2"))))
	assert.Eq("len", d.Len(), 1)
	assert.Eq("get", string(d.Get("a").str().b), "2")
	assert.Ok("missing", d.Get("b") == nil)
	assert.Ok("delete", d.Delete("a"))
	assert.Ok("delete missing", !d.Delete("a"))
	assert.Eq("empty", d.Len(), 0)
}

func TestDictScanCoversAllKeys(t *testing.T) {
	assert := testutil.NewAssert(t)
	d := newDict()
	const n = 1000
	for i := 0; i < n; i++ {
		d.Set("key:"+strconv.Itoa(i), newStringEntry(nil))
	}

	seen := make(map[string]bool)
	cursor := uint64(0)
	for {
		cursor = d.Scan(cursor, func(key string, _ *Entry) {
			seen[key] = true
		})
		if cursor == 0 {
			break
		}
	}
	assert.Eq("all keys visited", len(seen), n)
}

func TestDictScanSurvivesGrowth(t *testing.T) {
	assert := testutil.NewAssert(t)
	d := newDict()
	for i := 0; i < 100; i++ {
		d.Set("stable:"+strconv.Itoa(i), newStringEntry(nil))
	}

	seen := make(map[string]bool)
	cursor := uint64(0)
	step := 0
	for {
		cursor = d.Scan(cursor, func(key string, _ *Entry) {
			seen[key] = true
		})
		if cursor == 0 {
			break
		}
		// trigger rehashes mid-iteration; keys present throughout the
		// iteration must still all be visited
		if step == 3 {
			for i := 0; i < 400; i++ {
				d.Set("new:"+strconv.Itoa(i), newStringEntry(nil))
			}
		}
		step++
	}
	for i := 0; i < 100; i++ {
		assert.Ok("stable key visited", seen["stable:"+strconv.Itoa(i)])
	}
}
