// This file contains Sim, a complete in-memory Document used by tests,
// examples and loopback agents.
package document

import (
	"sync"
	"sync/atomic"
)

// ScriptRunner decides the outcome of one simulated script fetch. It runs on
// its own goroutine after InjectScript returns. A non-nil error fires the
// script's OnError hook; otherwise the script counts as fetched and executed
// and OnLoad fires. Runners typically mutate globals and invoke the callback
// named in the src query string, the way a real script would.
type ScriptRunner func(doc *Sim, src string) error

// Sim is an in-memory Document. Create instances with NewSim; the zero
// value is not usable. A nil runner leaves every injected script pending
// forever, which mirrors a hung network fetch.
type Sim struct {
	mu        sync.Mutex
	runner    ScriptRunner
	scripts   []*simScript
	globals   globals
	callbacks map[string]func()
}

// NewSim creates an empty document whose script fetches are decided by
// runner.
func NewSim(runner ScriptRunner) *Sim {
	return &Sim{
		runner:    runner,
		globals:   make(globals),
		callbacks: make(map[string]func()),
	}
}

// InjectScript implements Document. The runner is started on a fresh
// goroutine; the returned script is attached before the runner observes it.
func (d *Sim) InjectScript(src string, attrs Attrs, events Events) (Script, error) {
	s := &simScript{doc: d, src: src, attrs: attrs}
	s.attached.Store(true)

	d.mu.Lock()
	d.scripts = append(d.scripts, s)
	runner := d.runner
	d.mu.Unlock()

	if runner == nil {
		return s, nil
	}

	go func() {
		if err := runner(d, src); err != nil {
			if events.OnError != nil {
				events.OnError(err)
			}
			return
		}
		if events.OnLoad != nil {
			events.OnLoad()
		}
	}()

	return s, nil
}

// Scripts implements Document.
func (d *Sim) Scripts() []Script {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Script, len(d.scripts))
	for i, s := range d.scripts {
		out[i] = s
	}
	return out
}

// RegisterCallback implements Document.
func (d *Sim) RegisterCallback(name string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks[name] = fn
}

// DeleteCallback implements Document.
func (d *Sim) DeleteCallback(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.callbacks, name)
}

// InvokeCallback runs the callback registered under name, if any, and
// reports whether one was found. The callback executes outside the document
// lock so that it may re-enter the document.
func (d *Sim) InvokeCallback(name string) bool {
	d.mu.Lock()
	fn, ok := d.callbacks[name]
	d.mu.Unlock()

	if !ok || fn == nil {
		return false
	}
	fn()
	return true
}

// Global implements Document.
func (d *Sim) Global(path string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.globals.lookup(path)
}

// SetGlobal implements Document.
func (d *Sim) SetGlobal(path string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.globals.set(path, value)
}

// DeleteGlobal implements Document.
func (d *Sim) DeleteGlobal(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.globals.delete(path)
}

type simScript struct {
	doc      *Sim
	src      string
	attrs    Attrs
	attached atomic.Bool
}

func (s *simScript) Src() string { return s.src }

// Attrs returns the attributes the script was injected with.
func (s *simScript) Attrs() Attrs { return s.attrs }

func (s *simScript) Attached() bool { return s.attached.Load() }

func (s *simScript) Remove() {
	if !s.attached.CompareAndSwap(true, false) {
		return
	}

	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()
	for i, cur := range s.doc.scripts {
		if cur == s {
			s.doc.scripts = append(s.doc.scripts[:i], s.doc.scripts[i+1:]...)
			break
		}
	}
}
