package peadb

import (
	"sort"
	"strconv"
	"strings"
)

// configMap holds CONFIG parameters and is prototypal in behaviour: local
// read misses fall through to an outer scope, writes are always local. The
// server keeps defaults in the outer scope and runtime CONFIG SET overrides
// in the inner one, so resetting a parameter is just a local delete.
type configMap struct {
	outer *configMap
	m     map[string]string
}

func (c *configMap) Get(name string) (string, bool) {
	name = strings.ToLower(name)
	if c.m != nil {
		if v, ok := c.m[name]; ok {
			return v, true
		}
	}
	if c.outer != nil {
		return c.outer.Get(name)
	}
	return "", false
}

func (c *configMap) Set(name, value string) {
	if c.m == nil {
		c.m = make(map[string]string)
	}
	c.m[strings.ToLower(name)] = value
}

func (c *configMap) NewScope() *configMap {
	return &configMap{outer: c}
}

// Names returns every parameter name visible from this scope, sorted.
func (c *configMap) Names() []string {
	seen := make(map[string]bool)
	for s := c; s != nil; s = s.outer {
		for name := range s.m {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *configMap) GetInt(name string, def int64) int64 {
	v, ok := c.Get(name)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func (c *configMap) GetBool(name string) bool {
	v, _ := c.Get(name)
	return v == "yes"
}

func defaultConfig() *configMap {
	c := &configMap{m: map[string]string{
		"maxmemory":                "0",
		"maxmemory-policy":         "noeviction",
		"maxclients":               "10000",
		"databases":                "16",
		"timeout":                  "0",
		"port":                     "6379",
		"bind":                     "127.0.0.1",
		"dir":                      ".",
		"dbfilename":               "dump.rdb",
		"appendonly":               "no",
		"appendfilename":           "appendonly.aof",
		"save":                     "3600 1 300 100 60 10000",
		"lua-time-limit":           "5000",
		"busy-reply-threshold":     "5000",
		"min-replicas-to-write":    "0",
		"min-replicas-max-lag":     "10",
		"replica-serve-stale-data": "yes",
		"replica-read-only":        "yes",
		"requirepass":              "",
		"hash-max-listpack-entries": "128",
		"hash-max-listpack-value":  "64",
		"list-max-listpack-size":   "128",
		"set-max-intset-entries":   "512",
		"set-max-listpack-entries": "128",
		"zset-max-listpack-entries": "128",
		"zset-max-listpack-value":  "64",
		"proto-max-bulk-len":       "536870912",
		"cluster-enabled":          "no",
		"tcp-keepalive":            "300",
		"hz":                       "10",
	}}
	return c
}
