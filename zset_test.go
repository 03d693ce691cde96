package peadb

import (
	"math/rand"
	"testing"

	"github.com/rsms/go-testutil"
)

func testZSet(members ...string) *zsetVal {
	z := newZSet()
	rng := rand.New(rand.NewSource(1))
	for i, m := range members {
		z.Add(rng, m, float64(i))
	}
	return z
}

func zmembers(z *zsetVal) []string {
	var out []string
	z.RangeByRank(0, z.Len()-1, false, func(m string, _ float64) bool {
		out = append(out, m)
		return true
	})
	return out
}

func TestZSetOrdering(t *testing.T) {
	assert := testutil.NewAssert(t)
	z := newZSet()
	rng := rand.New(rand.NewSource(1))

	assert.Ok("add", z.Add(rng, "b", 2))
	assert.Ok("add", z.Add(rng, "a", 1))
	assert.Ok("add", z.Add(rng, "c", 2)) // tie: member order breaks it
	assert.Ok("update is not add", !z.Add(rng, "a", 5))
	assert.Eq("order", zmembers(z), []string{"b", "c", "a"})

	score, ok := z.Score("a")
	assert.Ok("score found", ok)
	assert.Eq("score", score, 5.0)

	rank, ok := z.Rank("c")
	assert.Ok("rank found", ok)
	assert.Eq("rank", rank, 1)

	assert.Ok("remove", z.Remove("c"))
	assert.Ok("remove missing", !z.Remove("c"))
	assert.Eq("order after remove", zmembers(z), []string{"b", "a"})
}

func TestZSetRangeByScore(t *testing.T) {
	assert := testutil.NewAssert(t)
	z := testZSet("a", "b", "c", "d", "e") // scores 0..4

	var got []string
	z.RangeByScore(&scoreRange{min: 1, max: 3}, false, 0, -1, func(m string, _ float64) bool {
		got = append(got, m)
		return true
	})
	assert.Eq("inclusive", got, []string{"b", "c", "d"})

	got = nil
	z.RangeByScore(&scoreRange{min: 1, max: 3, minEx: true, maxEx: true}, false, 0, -1,
		func(m string, _ float64) bool {
			got = append(got, m)
			return true
		})
	assert.Eq("exclusive", got, []string{"c"})

	got = nil
	z.RangeByScore(&scoreRange{min: 0, max: 4}, true, 1, 2, func(m string, _ float64) bool {
		got = append(got, m)
		return true
	})
	assert.Eq("rev offset count", got, []string{"d", "c"})
}

func TestZSetRangeByLex(t *testing.T) {
	assert := testutil.NewAssert(t)
	z := newZSet()
	rng := rand.New(rand.NewSource(1))
	for _, m := range []string{"a", "b", "c", "d"} {
		z.Add(rng, m, 0)
	}

	var got []string
	z.RangeByLex(&lexRange{min: "b", max: "c"}, false, 0, -1, func(m string, _ float64) bool {
		got = append(got, m)
		return true
	})
	assert.Eq("inclusive", got, []string{"b", "c"})

	got = nil
	z.RangeByLex(&lexRange{min: "a", minEx: true, maxInf: true}, false, 0, -1,
		func(m string, _ float64) bool {
			got = append(got, m)
			return true
		})
	assert.Eq("exclusive min to +inf", got, []string{"b", "c", "d"})

	got = nil
	z.RangeByLex(&lexRange{minInf: true, maxInf: true}, true, 0, -1,
		func(m string, _ float64) bool {
			got = append(got, m)
			return true
		})
	assert.Eq("rev full", got, []string{"d", "c", "b", "a"})
}

func TestZSetRankSpansStayConsistent(t *testing.T) {
	assert := testutil.NewAssert(t)
	z := newZSet()
	rng := rand.New(rand.NewSource(42))
	const n = 500
	for i := 0; i < n; i++ {
		z.Add(rng, "m"+itoa(int64(i)), float64(rng.Intn(50)))
	}
	// every member's rank must round-trip through nodeByRank
	members := zmembers(z)
	for want, m := range members {
		rank, ok := z.Rank(m)
		assert.Ok("rank found", ok)
		assert.Eq("rank matches order", rank, want)
	}
}
