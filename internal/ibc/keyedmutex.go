package ibc

import (
	"hash/fnv"
	"sync"
)

// keyedMutex serializes transitions on the same packet key without
// serializing unrelated packets behind a single global lock: a fixed set
// of mutex shards, where the token cache uses one RWMutex for its whole map.
// Keys that hash to the same shard share its lock.
type keyedMutex struct {
	shards []sync.Mutex
}

func newKeyedMutex(shardCount int) *keyedMutex {
	if shardCount <= 0 {
		shardCount = 64
	}
	return &keyedMutex{shards: make([]sync.Mutex, shardCount)}
}

func (k *keyedMutex) shardFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &k.shards[h.Sum32()%uint32(len(k.shards))]
}

// Lock acquires the shard guarding key and returns the unlock function.
func (k *keyedMutex) Lock(key string) func() {
	m := k.shardFor(key)
	m.Lock()
	return m.Unlock
}
