package syncutil

import (
	"hash/fnv"
	"sync"
)

const keyMutexShards = 128

// KeyMutex serializes critical sections per string key using a fixed pool of
// mutexes. Memory stays bounded no matter how many keys are seen; two keys
// hashing to the same shard occasionally contend, which is acceptable for
// short critical sections.
type KeyMutex struct {
	shards [keyMutexShards]sync.Mutex
}

// Lock acquires the mutex guarding key and returns its unlock function.
func (m *KeyMutex) Lock(key string) func() {
	mu := m.shard(key)
	mu.Lock()
	return mu.Unlock
}

func (m *KeyMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%keyMutexShards]
}
