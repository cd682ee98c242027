// Package maptest provides an in-memory Maps API and script runners that
// install it into a simulated document the way the real script would. It is
// test tooling for this repo and for consumers of the loader.
package maptest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// Fake implements maps.API entirely in memory and records everything it is
// asked to construct.
type Fake struct {
	mu        sync.Mutex
	maps      []*FakeMap
	markers   []*FakeMarker
	libraries map[string]any
}

// NewFake creates an empty fake API.
func NewFake() *Fake {
	return &Fake{libraries: make(map[string]any)}
}

// RegisterLibrary makes value available to ImportLibrary under name.
func (f *Fake) RegisterLibrary(name string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.libraries[name] = value
}

// NewMap implements maps.API.
func (f *Fake) NewMap(mount maps.Mount, opts maps.MapOptions) (maps.Map, error) {
	if mount == nil {
		return nil, fmt.Errorf("maptest: map requires a mount")
	}

	m := &FakeMap{mount: mount, center: opts.Center, zoom: opts.Zoom, mapID: opts.MapID}
	f.mu.Lock()
	f.maps = append(f.maps, m)
	f.mu.Unlock()
	return m, nil
}

// NewMarker implements maps.API.
func (f *Fake) NewMarker(opts maps.MarkerOptions) (maps.Marker, error) {
	mk := &FakeMarker{
		target:    opts.Map,
		position:  opts.Position,
		title:     opts.Title,
		content:   opts.Content,
		listeners: make(map[string][]*fakeListener),
	}
	f.mu.Lock()
	f.markers = append(f.markers, mk)
	f.mu.Unlock()
	return mk, nil
}

// ImportLibrary implements maps.API. Unknown names fail, loaded values are
// returned verbatim.
func (f *Fake) ImportLibrary(_ context.Context, name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.libraries[name]
	if !ok {
		return nil, fmt.Errorf("maptest: unknown library %q", name)
	}
	return v, nil
}

// Maps returns every map constructed so far.
func (f *Fake) Maps() []*FakeMap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeMap(nil), f.maps...)
}

// Markers returns every marker constructed so far.
func (f *Fake) Markers() []*FakeMarker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeMarker(nil), f.markers...)
}

// FakeMap records the state of one constructed map.
type FakeMap struct {
	mu     sync.Mutex
	mount  maps.Mount
	center maps.LatLng
	zoom   int
	mapID  string
}

func (m *FakeMap) SetCenter(center maps.LatLng) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.center = center
}

func (m *FakeMap) SetZoom(zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoom = zoom
}

// Mount returns the container the map was constructed against.
func (m *FakeMap) Mount() maps.Mount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mount
}

// Center returns the current center.
func (m *FakeMap) Center() maps.LatLng {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center
}

// Zoom returns the current zoom.
func (m *FakeMap) Zoom() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zoom
}

// FakeMarker records the state of one constructed marker.
type FakeMarker struct {
	mu        sync.Mutex
	target    maps.Map
	position  maps.LatLng
	title     string
	content   any
	listeners map[string][]*fakeListener
}

func (mk *FakeMarker) SetMap(m maps.Map) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.target = m
}

func (mk *FakeMarker) SetPosition(position maps.LatLng) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.position = position
}

func (mk *FakeMarker) SetTitle(title string) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.title = title
}

func (mk *FakeMarker) SetContent(element any) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.content = element
}

func (mk *FakeMarker) AddListener(event string, fn func()) maps.Listener {
	l := &fakeListener{marker: mk, event: event, fn: fn}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.listeners[event] = append(mk.listeners[event], l)
	return l
}

// Map returns the map the marker is attached to, or nil when detached.
func (mk *FakeMarker) Map() maps.Map {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.target
}

// Position returns the current position.
func (mk *FakeMarker) Position() maps.LatLng {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.position
}

// Title returns the current title.
func (mk *FakeMarker) Title() string {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.title
}

// Content returns the currently displayed content element.
func (mk *FakeMarker) Content() any {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.content
}

// ListenerCount reports how many listeners are registered for event.
func (mk *FakeMarker) ListenerCount(event string) int {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return len(mk.listeners[event])
}

// Fire invokes every listener registered for event, outside the marker
// lock.
func (mk *FakeMarker) Fire(event string) {
	mk.mu.Lock()
	fns := make([]func(), 0, len(mk.listeners[event]))
	for _, l := range mk.listeners[event] {
		fns = append(fns, l.fn)
	}
	mk.mu.Unlock()

	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

type fakeListener struct {
	marker *FakeMarker
	event  string
	fn     func()
}

func (l *fakeListener) Remove() {
	l.marker.mu.Lock()
	defer l.marker.mu.Unlock()

	list := l.marker.listeners[l.event]
	for i, cur := range list {
		if cur == l {
			l.marker.listeners[l.event] = append(list[:i], list[i+1:]...)
			break
		}
	}
}
