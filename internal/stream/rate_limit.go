package stream

import (
	"sync"
)

// defaultMaxTotal caps concurrent streams across all clients.
const defaultMaxTotal = 1000

// Rejection reasons, used as the stream error metric label.
const (
	reasonPerIP  = "ip_limit"
	reasonGlobal = "global_limit"
)

// streamSlots bounds concurrent frame streams per client IP and overall.
type streamSlots struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newStreamSlots(maxPerIP, maxTotal int) *streamSlots {
	if maxTotal <= 0 {
		maxTotal = defaultMaxTotal
	}
	return &streamSlots{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// take reserves a slot for ip. On success it returns the function that gives
// the slot back (safe to call more than once); otherwise release is nil and
// reason names the limit that was hit.
func (s *streamSlots) take(ip string) (release func(), reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.total >= s.maxTotal:
		return nil, reasonGlobal
	case s.perIP[ip] >= s.maxPerIP:
		return nil, reasonPerIP
	}
	s.perIP[ip]++
	s.total++
	return sync.OnceFunc(func() { s.give(ip) }), ""
}

func (s *streamSlots) give(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total--
	if s.perIP[ip]--; s.perIP[ip] <= 0 {
		delete(s.perIP, ip)
	}
}

// held returns the number of slots ip currently holds.
func (s *streamSlots) held(ip string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perIP[ip]
}

// inUse returns the number of slots held across all clients.
func (s *streamSlots) inUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
