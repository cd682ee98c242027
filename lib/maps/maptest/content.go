package maptest

import (
	"sync"

	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// StaticContent is rich marker content that projects Value verbatim and
// counts renders and releases, which makes teardown assertions cheap.
type StaticContent struct {
	Value any

	mu       sync.Mutex
	renders  int
	releases int
}

// Render implements maps.Content.
func (c *StaticContent) Render() (maps.ContentRoot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renders++
	return &staticRoot{content: c}, nil
}

// Renders reports how many roots have been created.
func (c *StaticContent) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}

// Releases reports how many roots have been released.
func (c *StaticContent) Releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}

type staticRoot struct {
	content  *StaticContent
	released sync.Once
}

func (r *staticRoot) Element() any { return r.content.Value }

func (r *staticRoot) Release() {
	r.released.Do(func() {
		r.content.mu.Lock()
		defer r.content.mu.Unlock()
		r.content.releases++
	})
}
