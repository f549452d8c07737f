package services

import (
	"hash/fnv"
	"sync"
)

const visitorLockStripes = 64

// visitorLocks serialises read-modify-write cycles per visitor. Visitors hashing to the
// same stripe share a mutex.
type visitorLocks [visitorLockStripes]sync.Mutex

func (l *visitorLocks) forVisitor(visitorID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(visitorID))
	return &l[h.Sum32()%visitorLockStripes]
}
