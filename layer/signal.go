package layer

import "sync"

// Signal is an externally driven level. The layer that reads it checks it once per step for a
// rising edge.
type Signal struct {
	sync.Mutex
	level bool
	seen  bool // level at the previous check
}

// Set sets the level.
func (s *Signal) Set(level bool) {
	s.Lock()
	s.level = level
	s.Unlock()
}

func (s *Signal) Raise() { s.Set(true) }
func (s *Signal) Lower() { s.Set(false) }

// Level returns the current level.
func (s *Signal) Level() bool {
	s.Lock()
	defer s.Unlock()
	return s.level
}

// Rose reports whether the level went up since the previous check, and consumes the edge.
func (s *Signal) Rose() bool {
	s.Lock()
	defer s.Unlock()
	rose := s.level && !s.seen
	s.seen = s.level
	return rose
}
