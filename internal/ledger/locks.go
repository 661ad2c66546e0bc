package ledger

import "sync"

// pairLocks hands out one mutex per canonical pair key so read-modify-write
// cycles on a pair are serialized in-process while unrelated pairs never
// block each other. Mutexes are kept for the process lifetime; the key space
// is bounded by the number of user pairs actually touched.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *pairLocks) lock(key string) (unlock func()) {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
