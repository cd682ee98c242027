package mapsctx

import (
	"context"
	"errors"
	"sync"

	"github.com/nptay1999/google-map-javascript-api/lib/loader"
	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// Provider wraps a Loader in a small request/cache layer. It remembers the
// handle once a load succeeds and retries a failed script fetch a
// configured number of times before reporting the error. Retrying lives
// here rather than in the loader, which never retries on its own.
type Provider struct {
	loader  *loader.Loader
	key     string
	opts    loader.Options
	retries int

	mu  sync.Mutex
	api maps.API
}

// Option configures a Provider.
type Option func(*Provider)

// WithRetry sets how many additional load attempts follow a script-load
// failure. The default is one.
func WithRetry(n int) Option {
	return func(p *Provider) {
		p.retries = n
	}
}

// NewProvider returns a Provider that loads with key and opts on first use.
func NewProvider(l *loader.Loader, key string, opts loader.Options, options ...Option) *Provider {
	p := &Provider{loader: l, key: key, opts: opts, retries: 1}
	for _, o := range options {
		o(p)
	}
	return p
}

// API returns the loaded handle, loading the script on first use. Only a
// script-load failure is retried; context errors and caller misuse are
// returned as they are.
func (p *Provider) API(ctx context.Context) (maps.API, error) {
	p.mu.Lock()
	if p.api != nil {
		api := p.api
		p.mu.Unlock()
		return api, nil
	}
	p.mu.Unlock()

	api, err := p.loader.Load(ctx, p.key, p.opts)
	for attempt := 0; attempt < p.retries && errors.Is(err, loader.ErrScriptLoad); attempt++ {
		api, err = p.loader.Load(ctx, p.key, p.opts)
	}
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.api = api
	p.mu.Unlock()
	return api, nil
}

// Attach loads the API if needed and returns ctx with the handle attached.
func (p *Provider) Attach(ctx context.Context) (context.Context, error) {
	api, err := p.API(ctx)
	if err != nil {
		return ctx, err
	}
	return With(ctx, api), nil
}
