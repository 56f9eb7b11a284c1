package slideshow

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the time each photo stays on screen.
const DefaultInterval = 3 * time.Second

// Sequence is a circular cursor over photo paths.
type Sequence struct {
	paths []string
	index int
}

// NewSequence copies paths into a Sequence positioned on the first path.
func NewSequence(paths []string) *Sequence {
	return &Sequence{paths: append([]string(nil), paths...)}
}

// Len returns the number of paths.
func (s *Sequence) Len() int {
	return len(s.paths)
}

// Index returns the position of the current path.
func (s *Sequence) Index() int {
	return s.index
}

// Current returns the path under the cursor. It reports false when the
// sequence is empty.
func (s *Sequence) Current() (string, bool) {
	if len(s.paths) == 0 {
		return "", false
	}
	return s.paths[s.index], true
}

// Advance moves to the next path, wrapping from the last to the first, and
// returns it. An empty sequence stays put and reports false.
func (s *Sequence) Advance() (string, bool) {
	if len(s.paths) == 0 {
		return "", false
	}
	s.index = (s.index + 1) % len(s.paths)
	return s.paths[s.index], true
}

// Reset moves the cursor back to the first path.
func (s *Sequence) Reset() {
	s.index = 0
}

// Player shows the photos of a Sequence on a fixed interval until it is
// stopped.
type Player struct {
	seq      *Sequence
	interval time.Duration
	show     func(index int, path string)

	// OnClose, when set, runs once after the player stops.
	OnClose func()

	stopOnce sync.Once
	stop     chan struct{}
	doneOnce sync.Once
	done     chan struct{}
}

// NewPlayer returns a Player over paths. A non-positive interval selects
// DefaultInterval.
func NewPlayer(paths []string, interval time.Duration, show func(index int, path string)) *Player {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Player{
		seq:      NewSequence(paths),
		interval: interval,
		show:     show,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run shows the first photo, then advances on every tick until ctx is done or
// Stop is called. An empty slideshow returns at once. Run returns ctx.Err()
// when the context ended the show, nil otherwise.
func (p *Player) Run(ctx context.Context) error {
	defer p.close()

	path, ok := p.seq.Current()
	if !ok {
		return nil
	}
	p.display(path)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stop:
			return nil
		case <-ticker.C:
			if path, ok := p.seq.Advance(); ok {
				p.display(path)
			}
		}
	}
}

// Stop ends the slideshow. It is safe to call more than once and from another
// goroutine.
func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// Done is closed once Run has returned.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

func (p *Player) display(path string) {
	if p.show != nil {
		p.show(p.seq.Index(), path)
	}
}

func (p *Player) close() {
	p.doneOnce.Do(func() {
		close(p.done)
		if p.OnClose != nil {
			p.OnClose()
		}
	})
}
