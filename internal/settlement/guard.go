package settlement

import "sync"

type guardState uint8

const (
	guardPending guardState = iota + 1
	guardDone
)

// Guard remembers which hands already have a settlement request in flight or
// completed. The zero value is ready to use.
type Guard struct {
	mu    sync.Mutex
	hands map[string]guardState
}

func NewGuard() *Guard {
	return &Guard{hands: make(map[string]guardState)}
}

// Acquire claims handID. It reports false if the hand is pending or done.
func (g *Guard) Acquire(handID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hands == nil {
		g.hands = make(map[string]guardState)
	}
	if _, ok := g.hands[handID]; ok {
		return false
	}
	g.hands[handID] = guardPending
	return true
}

// Release frees a pending claim so the request can be retried.
func (g *Guard) Release(handID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hands[handID] == guardPending {
		delete(g.hands, handID)
	}
}

// Done marks handID as settled for good.
func (g *Guard) Done(handID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hands == nil {
		g.hands = make(map[string]guardState)
	}
	g.hands[handID] = guardDone
}

func (g *Guard) IsDone(handID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hands[handID] == guardDone
}
