package usecase

import "sync"

// keyedMutex provides one mutex per account ID so mutations to the same
// account serialize while unrelated accounts proceed in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(id string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	return m
}

// Lock locks the mutex for one account and returns the unlock func.
func (k *keyedMutex) Lock(id string) func() {
	m := k.get(id)
	m.Lock()
	return m.Unlock
}

// LockPair locks two accounts in sorted ID order so two simultaneous
// opposite-direction operations cannot deadlock.
func (k *keyedMutex) LockPair(a, b string) func() {
	if a == b {
		return k.Lock(a)
	}
	if b < a {
		a, b = b, a
	}
	first, second := k.get(a), k.get(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
