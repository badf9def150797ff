package resilience

import "sync"

// Group hands out one breaker per key, so a failing host does not trip
// requests to every other host.
type Group struct {
	prefix   string
	settings Settings

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewGroup creates a group whose breakers share settings.
func NewGroup(prefix string, settings Settings) *Group {
	return &Group{
		prefix:   prefix,
		settings: settings,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for key, creating it on first use.
func (g *Group) Get(key string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.breakers[key]
	if !ok {
		b = New(g.prefix+":"+key, g.settings)
		g.breakers[key] = b
	}
	return b
}

// States reports the state of every breaker created so far.
func (g *Group) States() map[string]State {
	g.mu.Lock()
	breakers := make(map[string]*Breaker, len(g.breakers))
	for k, b := range g.breakers {
		breakers[k] = b
	}
	g.mu.Unlock()

	states := make(map[string]State, len(breakers))
	for k, b := range breakers {
		states[k] = b.State()
	}
	return states
}
