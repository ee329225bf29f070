package assess

import (
	"hash/fnv"
	"sync"
)

// keyedLocks serializes state transitions per attempt (and per
// learner/assignment pair at start time) within one process. Striping keeps
// the lock table bounded; the store's unique active-attempt constraint is the
// cross-process backstop.
type keyedLocks struct {
	shards [64]sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &k.shards[h.Sum32()%uint32(len(k.shards))]
	m.Lock()
	return m.Unlock
}
