package upload

import (
	"context"
	"sync"
)

type memorySession struct {
	form    Form
	uploads map[string][]Upload
}

type memoryCache struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

// NewMemoryCache creates a process-local cache.
func NewMemoryCache() Cache {
	return &memoryCache{sessions: make(map[string]*memorySession)}
}

func (c *memoryCache) session(id string) *memorySession {
	s, ok := c.sessions[id]
	if !ok {
		s = &memorySession{uploads: make(map[string][]Upload)}
		c.sessions[id] = s
	}
	return s
}

func (c *memoryCache) SaveForm(_ context.Context, session string, form Form) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session(session).form = form
	return nil
}

func (c *memoryCache) Form(_ context.Context, session string) (Form, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.sessions[session]; ok {
		return s.form, nil
	}
	return Form{}, nil
}

func (c *memoryCache) Stage(_ context.Context, session, category string, uploads []Upload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session(session)
	if len(uploads) == 0 {
		delete(s.uploads, category)
		return nil
	}
	s.uploads[category] = append([]Upload(nil), uploads...)
	return nil
}

func (c *memoryCache) Uploads(_ context.Context, session, category string) ([]Upload, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[session]
	if !ok {
		return nil, nil
	}
	return append([]Upload(nil), s.uploads[category]...), nil
}

func (c *memoryCache) Counts(_ context.Context, session string) (map[string]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[string]int)
	if s, ok := c.sessions[session]; ok {
		for category, uploads := range s.uploads {
			counts[category] = len(uploads)
		}
	}
	return counts, nil
}

func (c *memoryCache) Invalidate(_ context.Context, session string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, session)
	return nil
}

func (c *memoryCache) Close() error {
	return nil
}
