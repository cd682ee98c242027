// Package loader loads the Google Maps JavaScript API into a document
// exactly once and hands out the resulting API handle.
//
// A Loader owns the single script-injection slot of its document: the first
// Load call injects the script, every call arriving while that load is in
// flight joins it, and once the API is up further calls return the existing
// handle without touching the network. Dispose tears the whole cycle down
// so a fresh load can start, which is what test fixtures and hot reload
// need.
package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nptay1999/google-map-javascript-api/lib/document"
	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// inflight is one load attempt shared by every caller that joins it. done
// is closed exactly once, after which either api or err is set. Callers
// therefore observe the same outcome in the same order.
type inflight struct {
	callback string
	done     chan struct{}
	api      maps.API
	err      error
}

// Loader coordinates loading of the Maps script into one document. Methods
// are safe for concurrent use. The zero value is not usable; construct with
// New.
//
// Run one Loader per document. Two loaders over the same document would
// each believe they own the injection slot and race each other.
type Loader struct {
	doc document.Document

	mu     sync.Mutex
	cur    *inflight
	script document.Script
}

// New returns a Loader bound to doc.
func New(doc document.Document) *Loader {
	return &Loader{doc: doc}
}

// Load resolves with the Maps API handle, fetching the script if nobody has
// yet. Callers arriving while a load is in flight join it and receive the
// identical outcome. Once loaded, Load returns the existing handle
// immediately; key and opts are ignored from then on, so options only take
// effect on the very first call of a cycle.
//
// ctx detaches this caller from the shared load. It does not cancel the
// fetch, which keeps running for everyone else.
func (l *Loader) Load(ctx context.Context, key string, opts Options) (maps.API, error) {
	l.mu.Lock()
	if api, ok := l.handleLocked(); ok {
		l.mu.Unlock()
		return api, nil
	}
	if p := l.cur; p != nil {
		l.mu.Unlock()
		return await(ctx, p)
	}

	name, err := callbackName()
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("loader: name load callback: %w", err)
	}
	p := &inflight{callback: name, done: make(chan struct{})}
	l.cur = p
	l.mu.Unlock()

	l.doc.RegisterCallback(name, func() { l.finish(p) })
	script, err := l.doc.InjectScript(
		BuildURL(key, opts)+"&callback="+name,
		document.Attrs{Async: true, Defer: true},
		document.Events{OnError: func(error) { l.fail(p) }},
	)
	if err != nil {
		l.fail(p)
		return nil, ErrScriptLoad
	}

	l.mu.Lock()
	l.script = script
	l.mu.Unlock()

	return await(ctx, p)
}

// IsLoaded reports whether the global namespace and its maps sub-namespace
// are both populated. It probes the document on every call and has no side
// effects. During a load it stays false until the script's callback has
// fired.
func (l *Loader) IsLoaded() bool {
	if _, ok := l.doc.Global(maps.RootNamespace); !ok {
		return false
	}
	_, ok := l.doc.Global(maps.Namespace)
	return ok
}

// Wait returns the handle of a finished load, or joins the in-flight one.
// It never starts a load itself; with nothing loaded and nothing pending it
// fails with ErrNotLoading.
func (l *Loader) Wait(ctx context.Context) (maps.API, error) {
	l.mu.Lock()
	if api, ok := l.handleLocked(); ok {
		l.mu.Unlock()
		return api, nil
	}
	if p := l.cur; p != nil {
		l.mu.Unlock()
		return await(ctx, p)
	}
	l.mu.Unlock()
	return nil, ErrNotLoading
}

// ImportLibrary delegates to the loaded API's on-demand library import and
// returns its result unmodified. It fails with ErrNotLoaded until the base
// script has finished loading and never triggers a load itself.
func (l *Loader) ImportLibrary(ctx context.Context, name string) (any, error) {
	l.mu.Lock()
	api, ok := l.handleLocked()
	l.mu.Unlock()

	if !ok {
		return nil, ErrNotLoaded
	}
	return api.ImportLibrary(ctx, name)
}

// Script returns the script element of the current load cycle. It prefers
// the element this loader injected while that is still attached, and
// otherwise adopts any attached script whose source points at the Maps
// endpoint, so a loader can take over a script injected before it existed.
func (l *Loader) Script() (document.Script, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.script != nil && l.script.Attached() {
		return l.script, true
	}
	for _, s := range l.doc.Scripts() {
		if s.Attached() && strings.Contains(s.Src(), Endpoint) {
			l.script = s
			return s, true
		}
	}
	return nil, false
}

// Dispose removes the remembered script element, forgets the in-flight and
// loaded state, deletes the global API namespace and deletes any dangling
// load callback. It is idempotent and safe to call when nothing was ever
// loaded.
//
// Callers blocked in Load or Wait are not resolved by Dispose; their
// context is the way out.
func (l *Loader) Dispose() {
	l.mu.Lock()
	p := l.cur
	l.cur = nil
	script := l.script
	l.script = nil
	l.mu.Unlock()

	if p != nil {
		l.doc.DeleteCallback(p.callback)
	}
	if script != nil {
		script.Remove()
	}
	l.doc.DeleteGlobal(maps.RootNamespace)
}

// finish resolves p with the handle the script published on the global
// object. Stale invocations, where p is no longer the current attempt, are
// ignored; that covers a callback firing after Dispose.
func (l *Loader) finish(p *inflight) {
	l.mu.Lock()
	if l.cur != p {
		l.mu.Unlock()
		return
	}
	if api, ok := l.handleLocked(); ok {
		p.api = api
	} else {
		// The callback fired but the namespace never appeared. Clear the
		// slot so the next Load starts over.
		l.cur = nil
		p.err = ErrScriptLoad
	}
	l.doc.DeleteCallback(p.callback)
	l.mu.Unlock()

	close(p.done)
}

// fail rejects p and clears the in-flight slot so a later Load may retry.
// The failed script element stays in the document until Dispose.
func (l *Loader) fail(p *inflight) {
	l.mu.Lock()
	if l.cur != p {
		l.mu.Unlock()
		return
	}
	l.cur = nil
	l.doc.DeleteCallback(p.callback)
	l.mu.Unlock()

	p.err = ErrScriptLoad
	close(p.done)
}

// handleLocked reads the API handle from the document globals. The caller
// holds l.mu.
func (l *Loader) handleLocked() (maps.API, bool) {
	v, ok := l.doc.Global(maps.Namespace)
	if !ok {
		return nil, false
	}
	api, ok := v.(maps.API)
	return api, ok
}

// await blocks until p settles or ctx expires. Cancellation abandons the
// wait only; the shared load keeps its course for the other callers.
func await(ctx context.Context, p *inflight) (maps.API, error) {
	select {
	case <-p.done:
		if p.err != nil {
			return nil, p.err
		}
		return p.api, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
