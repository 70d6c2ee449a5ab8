package simulator

import "sync"

// Key identifies one scenario run: a graph variant under one set of settings.
// Graph names must be unique for the lifetime of a Cache.
type Key struct {
	Graph    string
	Settings Settings
}

// Cache keeps simulation results for one estimate run. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	results map[Key]*Result
	hits    int
	misses  int
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{results: make(map[Key]*Result)}
}

// Get returns the cached result for key.
func (c *Cache) Get(key Key) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[key]
	return res, ok
}

// GetOrCompute returns the cached result for key, computing and storing it on
// a miss. Failed computations are not cached. Concurrent misses for the same
// key may compute twice; the first stored result wins.
func (c *Cache) GetOrCompute(key Key, compute func() (*Result, error)) (*Result, error) {
	c.mu.Lock()
	if res, ok := c.results[key]; ok {
		c.hits++
		c.mu.Unlock()
		return res, nil
	}
	c.misses++
	c.mu.Unlock()

	res, err := compute()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.results[key]; ok {
		return existing, nil
	}
	c.results[key] = res
	return res, nil
}

// Stats returns the number of hits and misses so far.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}
