package bridge

import (
	"context"
	"fmt"
	"log"

	"github.com/goccy/go-json"

	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// remoteAPI implements maps.API against the agent-side page. Constructed
// objects stay on the agent; this side keeps numeric handles and proxies
// every mutation.
type remoteAPI struct {
	doc *RemoteDocument
}

// NewMap implements maps.API. The mount must marshal to JSON, since the
// real container lives on the agent and is addressed by value.
func (a *remoteAPI) NewMap(mount maps.Mount, opts maps.MapOptions) (maps.Map, error) {
	if mount == nil {
		return nil, fmt.Errorf("bridge: map requires a mount")
	}
	rawMount, err := json.Marshal(mount)
	if err != nil {
		return nil, fmt.Errorf("bridge: encode mount: %w", err)
	}

	ctx, cancel := a.doc.op()
	defer cancel()
	ref, err := call[newMapRequest, objectRef](ctx, a.doc.conn, verbNewMap, newMapRequest{Mount: rawMount, Options: opts})
	if err != nil {
		return nil, err
	}
	return &remoteMap{doc: a.doc, id: ref.ID}, nil
}

// NewMarker implements maps.API. opts.Map must be a map handle from this
// same bridge, or nil for a detached marker.
func (a *remoteAPI) NewMarker(opts maps.MarkerOptions) (maps.Marker, error) {
	req := newMarkerRequest{Position: opts.Position, Title: opts.Title}

	if opts.Map != nil {
		m, ok := opts.Map.(*remoteMap)
		if !ok {
			return nil, fmt.Errorf("bridge: marker requires a map handle from this bridge")
		}
		req.Map = m.id
	}
	if opts.Content != nil {
		raw, err := json.Marshal(opts.Content)
		if err != nil {
			return nil, fmt.Errorf("bridge: encode marker content: %w", err)
		}
		req.Content = raw
	}

	ctx, cancel := a.doc.op()
	defer cancel()
	ref, err := call[newMarkerRequest, objectRef](ctx, a.doc.conn, verbNewMarker, req)
	if err != nil {
		return nil, err
	}
	return &remoteMarker{doc: a.doc, id: ref.ID}, nil
}

// ImportLibrary implements maps.API.
func (a *remoteAPI) ImportLibrary(ctx context.Context, name string) (any, error) {
	resp, err := call[importLibraryRequest, importLibraryResponse](ctx, a.doc.conn, verbImportLibrary, importLibraryRequest{Name: name})
	if err != nil {
		return nil, err
	}

	var value any
	if len(resp.Value) > 0 {
		if err := json.Unmarshal(resp.Value, &value); err != nil {
			return nil, fmt.Errorf("bridge: decode library %q: %w", name, err)
		}
	}
	return value, nil
}

// remoteMap proxies one map object on the agent. Setters cannot report
// errors through the maps interface, so transport failures are logged.
type remoteMap struct {
	doc *RemoteDocument
	id  uint32
}

func (m *remoteMap) SetCenter(center maps.LatLng) {
	ctx, cancel := m.doc.op()
	defer cancel()
	if _, err := call[setCenterRequest, empty](ctx, m.doc.conn, verbMapSetCenter, setCenterRequest{ID: m.id, Center: center}); err != nil {
		log.Printf("bridge: map %d setCenter: %v", m.id, err)
	}
}

func (m *remoteMap) SetZoom(zoom int) {
	ctx, cancel := m.doc.op()
	defer cancel()
	if _, err := call[setZoomRequest, empty](ctx, m.doc.conn, verbMapSetZoom, setZoomRequest{ID: m.id, Zoom: zoom}); err != nil {
		log.Printf("bridge: map %d setZoom: %v", m.id, err)
	}
}

// remoteMarker proxies one marker object on the agent.
type remoteMarker struct {
	doc *RemoteDocument
	id  uint32
}

func (mk *remoteMarker) SetMap(m maps.Map) {
	req := markerMapRequest{ID: mk.id}
	if m != nil {
		target, ok := m.(*remoteMap)
		if !ok {
			log.Printf("bridge: marker %d setMap: not a map handle from this bridge", mk.id)
			return
		}
		req.Map = target.id
	}

	ctx, cancel := mk.doc.op()
	defer cancel()
	if _, err := call[markerMapRequest, empty](ctx, mk.doc.conn, verbMarkerSetMap, req); err != nil {
		log.Printf("bridge: marker %d setMap: %v", mk.id, err)
	}
}

func (mk *remoteMarker) SetPosition(position maps.LatLng) {
	ctx, cancel := mk.doc.op()
	defer cancel()
	if _, err := call[setPositionRequest, empty](ctx, mk.doc.conn, verbMarkerSetPosition, setPositionRequest{ID: mk.id, Position: position}); err != nil {
		log.Printf("bridge: marker %d setPosition: %v", mk.id, err)
	}
}

func (mk *remoteMarker) SetTitle(title string) {
	ctx, cancel := mk.doc.op()
	defer cancel()
	if _, err := call[setTitleRequest, empty](ctx, mk.doc.conn, verbMarkerSetTitle, setTitleRequest{ID: mk.id, Title: title}); err != nil {
		log.Printf("bridge: marker %d setTitle: %v", mk.id, err)
	}
}

func (mk *remoteMarker) SetContent(element any) {
	raw, err := json.Marshal(element)
	if err != nil {
		log.Printf("bridge: marker %d setContent: %v", mk.id, err)
		return
	}

	ctx, cancel := mk.doc.op()
	defer cancel()
	if _, err := call[setContentRequest, empty](ctx, mk.doc.conn, verbMarkerSetContent, setContentRequest{ID: mk.id, Content: raw}); err != nil {
		log.Printf("bridge: marker %d setContent: %v", mk.id, err)
	}
}

// AddListener implements maps.Marker. The handler runs on this side when
// the agent reports the event; it is routed before the round trip so an
// event firing immediately after registration is not lost. A failed
// registration returns an inert listener, mirroring how a lost page
// listener behaves.
func (mk *remoteMarker) AddListener(event string, fn func()) maps.Listener {
	listenerID := mk.doc.nextToken.Add(1)
	mk.doc.mu.Lock()
	mk.doc.listeners[listenerID] = fn
	mk.doc.mu.Unlock()

	ctx, cancel := mk.doc.op()
	defer cancel()

	req := addListenerRequest{ID: mk.id, Event: event, Listener: listenerID}
	if _, err := call[addListenerRequest, empty](ctx, mk.doc.conn, verbMarkerAddListener, req); err != nil {
		log.Printf("bridge: marker %d addListener: %v", mk.id, err)
		mk.doc.mu.Lock()
		delete(mk.doc.listeners, listenerID)
		mk.doc.mu.Unlock()
		return &remoteListener{doc: mk.doc}
	}
	return &remoteListener{doc: mk.doc, id: listenerID, registered: true}
}

// remoteListener proxies one registered event listener.
type remoteListener struct {
	doc        *RemoteDocument
	id         uint32
	registered bool
}

func (l *remoteListener) Remove() {
	if !l.registered {
		return
	}
	l.registered = false

	l.doc.mu.Lock()
	delete(l.doc.listeners, l.id)
	l.doc.mu.Unlock()

	ctx, cancel := l.doc.op()
	defer cancel()
	if _, err := call[listenerRef, empty](ctx, l.doc.conn, verbListenerRemove, listenerRef{ID: l.id}); err != nil {
		log.Printf("bridge: listener %d remove: %v", l.id, err)
	}
}
