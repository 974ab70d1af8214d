package chainsol

import (
	"context"
	"sync"
)

// Pool caches one SolChain per distinct Config so that HTTP keep-alives and
// websocket subscriptions survive across requests.
type Pool struct {
	mu     sync.Mutex
	chains map[Config]*SolChain
	opts   []Option
}

// NewPool returns an empty pool whose chains are built with opts.
func NewPool(opts ...Option) *Pool {
	return &Pool{
		chains: make(map[Config]*SolChain),
		opts:   opts,
	}
}

// Connect returns the cached chain for cfg, dialing it on first use. Dials
// run outside the lock; when two callers race, the first chain stored wins
// and the other is closed.
func (p *Pool) Connect(ctx context.Context, cfg Config) (*SolChain, error) {
	p.mu.Lock()
	c, ok := p.chains[cfg]
	p.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := NewSolChain(ctx, cfg, p.opts...)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.chains[cfg]; ok {
		c.Close()
		return existing, nil
	}
	p.chains[cfg] = c
	return c, nil
}

// Len reports the number of cached chains.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chains)
}

// Close releases every cached chain.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, c := range p.chains {
		c.Close()
		delete(p.chains, k)
	}
}
