package bridge

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/nptay1999/google-map-javascript-api/lib/document"
	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// eventTimeout bounds one agent-to-client event notification.
const eventTimeout = 5 * time.Second

// Agent serves a local page over a conn: the built-in verbs operate on its
// document and on the Maps API the loaded script published there. Objects
// constructed for the peer never cross the wire; the agent keeps them in an
// object table and hands out numeric ids.
//
// Extra application verbs can be registered directly on the conn next to
// the built-in set.
type Agent struct {
	conn *Conn
	doc  document.Document

	nextID atomic.Uint32

	mu        sync.Mutex
	scripts   map[uint32]document.Script
	scriptIDs map[document.Script]uint32
	maps      map[uint32]maps.Map
	markers   map[uint32]maps.Marker
	listeners map[uint32]maps.Listener
}

// NewAgent wires the built-in verbs for doc onto conn.
func NewAgent(conn *Conn, doc document.Document) *Agent {
	a := &Agent{
		conn:      conn,
		doc:       doc,
		scripts:   make(map[uint32]document.Script),
		scriptIDs: make(map[document.Script]uint32),
		maps:      make(map[uint32]maps.Map),
		markers:   make(map[uint32]maps.Marker),
		listeners: make(map[uint32]maps.Listener),
	}

	conn.RegisterRequestHandler(verbInjectScript, NewJSONHandler(verbInjectScript, a.injectScript))
	conn.RegisterRequestHandler(verbRemoveScript, NewJSONHandler(verbRemoveScript, a.removeScript))
	conn.RegisterRequestHandler(verbScripts, NewJSONHandler(verbScripts, a.listScripts))
	conn.RegisterRequestHandler(verbRegisterCallback, NewJSONHandler(verbRegisterCallback, a.registerCallback))
	conn.RegisterRequestHandler(verbDeleteCallback, NewJSONHandler(verbDeleteCallback, a.deleteCallback))
	conn.RegisterRequestHandler(verbGlobal, NewJSONHandler(verbGlobal, a.readGlobal))
	conn.RegisterRequestHandler(verbSetGlobal, NewJSONHandler(verbSetGlobal, a.setGlobal))
	conn.RegisterRequestHandler(verbDeleteGlobal, NewJSONHandler(verbDeleteGlobal, a.deleteGlobal))

	conn.RegisterRequestHandler(verbNewMap, NewJSONHandler(verbNewMap, a.newMap))
	conn.RegisterRequestHandler(verbNewMarker, NewJSONHandler(verbNewMarker, a.newMarker))
	conn.RegisterRequestHandler(verbImportLibrary, NewJSONHandler(verbImportLibrary, a.importLibrary))

	conn.RegisterRequestHandler(verbMapSetCenter, NewJSONHandler(verbMapSetCenter, a.mapSetCenter))
	conn.RegisterRequestHandler(verbMapSetZoom, NewJSONHandler(verbMapSetZoom, a.mapSetZoom))

	conn.RegisterRequestHandler(verbMarkerSetMap, NewJSONHandler(verbMarkerSetMap, a.markerSetMap))
	conn.RegisterRequestHandler(verbMarkerSetPosition, NewJSONHandler(verbMarkerSetPosition, a.markerSetPosition))
	conn.RegisterRequestHandler(verbMarkerSetTitle, NewJSONHandler(verbMarkerSetTitle, a.markerSetTitle))
	conn.RegisterRequestHandler(verbMarkerSetContent, NewJSONHandler(verbMarkerSetContent, a.markerSetContent))
	conn.RegisterRequestHandler(verbMarkerAddListener, NewJSONHandler(verbMarkerAddListener, a.markerAddListener))
	conn.RegisterRequestHandler(verbListenerRemove, NewJSONHandler(verbListenerRemove, a.listenerRemove))

	return a
}

// Serve starts the conn and announces readiness. It returns once the agent
// is serving; Conn.Wait blocks for the stream's lifetime.
func (a *Agent) Serve(ctx context.Context) error {
	if err := a.conn.Start(ctx); err != nil {
		return err
	}
	return a.conn.AnnounceReady(ctx)
}

// notifyEvent pushes one event to the peer. Events ride their own context:
// the handler that caused them may be long gone.
func (a *Agent) notifyEvent(name string, v any) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := notify(ctx, a.conn, name, v); err != nil {
		log.Printf("bridge: %s notification: %v", name, err)
	}
}

// api reads the Maps handle from the local page, the same slot the loaded
// script populated.
func (a *Agent) api() (maps.API, error) {
	v, ok := a.doc.Global(maps.Namespace)
	if !ok {
		return nil, fmt.Errorf("maps API is not loaded")
	}
	api, ok := v.(maps.API)
	if !ok {
		return nil, fmt.Errorf("maps namespace holds no API handle")
	}
	return api, nil
}

func (a *Agent) injectScript(_ context.Context, req injectScriptRequest) (scriptRef, error) {
	// Events are routed by the client-chosen token, so they stay
	// deliverable even when they beat this response across the wire.
	token := req.Token
	script, err := a.doc.InjectScript(req.Src, document.Attrs{Async: req.Async, Defer: req.Defer}, document.Events{
		OnLoad:  func() { a.notifyEvent(notifyScriptLoad, scriptEvent{Token: token}) },
		OnError: func(err error) { a.notifyEvent(notifyScriptError, scriptEvent{Token: token, Message: err.Error()}) },
	})
	if err != nil {
		return scriptRef{}, err
	}

	id := a.nextID.Add(1)
	a.mu.Lock()
	a.scripts[id] = script
	a.scriptIDs[script] = id
	a.mu.Unlock()

	return scriptRef{ID: id, Src: script.Src(), Attached: script.Attached()}, nil
}

func (a *Agent) removeScript(_ context.Context, req scriptIDRequest) (empty, error) {
	a.mu.Lock()
	script, ok := a.scripts[req.ID]
	if ok {
		delete(a.scripts, req.ID)
		delete(a.scriptIDs, script)
	}
	a.mu.Unlock()

	if ok {
		script.Remove()
	}
	return empty{}, nil
}

func (a *Agent) listScripts(_ context.Context, _ empty) (scriptsResponse, error) {
	list := a.doc.Scripts()

	a.mu.Lock()
	defer a.mu.Unlock()

	refs := make([]scriptRef, 0, len(list))
	for _, s := range list {
		id, ok := a.scriptIDs[s]
		if !ok {
			// A script this agent did not inject, adopted into the table.
			id = a.nextID.Add(1)
			a.scripts[id] = s
			a.scriptIDs[s] = id
		}
		refs = append(refs, scriptRef{ID: id, Src: s.Src(), Attached: s.Attached()})
	}
	return scriptsResponse{Scripts: refs}, nil
}

func (a *Agent) registerCallback(_ context.Context, req callbackName) (empty, error) {
	name := req.Name
	a.doc.RegisterCallback(name, func() {
		a.notifyEvent(notifyCallbackInvoke, callbackName{Name: name})
	})
	return empty{}, nil
}

func (a *Agent) deleteCallback(_ context.Context, req callbackName) (empty, error) {
	a.doc.DeleteCallback(req.Name)
	return empty{}, nil
}

func (a *Agent) readGlobal(_ context.Context, req globalRequest) (globalResponse, error) {
	v, ok := a.doc.Global(req.Path)
	if !ok {
		return globalResponse{}, nil
	}
	if _, isAPI := v.(maps.API); isAPI {
		return globalResponse{Found: true, API: true}, nil
	}

	value, err := json.Marshal(v)
	if err != nil {
		// The slot exists but its value cannot cross the wire. Existence
		// is still worth reporting; IsLoaded probes depend on it.
		return globalResponse{Found: true}, nil
	}
	return globalResponse{Found: true, Value: value}, nil
}

func (a *Agent) setGlobal(_ context.Context, req setGlobalRequest) (empty, error) {
	var value any
	if len(req.Value) > 0 {
		if err := json.Unmarshal(req.Value, &value); err != nil {
			return empty{}, fmt.Errorf("decode global %q: %w", req.Path, err)
		}
	}
	a.doc.SetGlobal(req.Path, value)
	return empty{}, nil
}

func (a *Agent) deleteGlobal(_ context.Context, req globalRequest) (empty, error) {
	a.doc.DeleteGlobal(req.Path)
	return empty{}, nil
}

func (a *Agent) newMap(_ context.Context, req newMapRequest) (objectRef, error) {
	api, err := a.api()
	if err != nil {
		return objectRef{}, err
	}

	var mount any
	if len(req.Mount) > 0 {
		if err := json.Unmarshal(req.Mount, &mount); err != nil {
			return objectRef{}, fmt.Errorf("decode mount: %w", err)
		}
	}

	m, err := api.NewMap(mount, req.Options)
	if err != nil {
		return objectRef{}, err
	}

	id := a.nextID.Add(1)
	a.mu.Lock()
	a.maps[id] = m
	a.mu.Unlock()
	return objectRef{ID: id}, nil
}

func (a *Agent) newMarker(_ context.Context, req newMarkerRequest) (objectRef, error) {
	api, err := a.api()
	if err != nil {
		return objectRef{}, err
	}

	opts := maps.MarkerOptions{Position: req.Position, Title: req.Title}
	if req.Map != 0 {
		m, err := a.mapByID(req.Map)
		if err != nil {
			return objectRef{}, err
		}
		opts.Map = m
	}
	if len(req.Content) > 0 {
		var content any
		if err := json.Unmarshal(req.Content, &content); err != nil {
			return objectRef{}, fmt.Errorf("decode marker content: %w", err)
		}
		opts.Content = content
	}

	marker, err := api.NewMarker(opts)
	if err != nil {
		return objectRef{}, err
	}

	id := a.nextID.Add(1)
	a.mu.Lock()
	a.markers[id] = marker
	a.mu.Unlock()
	return objectRef{ID: id}, nil
}

func (a *Agent) importLibrary(ctx context.Context, req importLibraryRequest) (importLibraryResponse, error) {
	api, err := a.api()
	if err != nil {
		return importLibraryResponse{}, err
	}

	value, err := api.ImportLibrary(ctx, req.Name)
	if err != nil {
		return importLibraryResponse{}, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return importLibraryResponse{}, fmt.Errorf("library %q does not serialize: %w", req.Name, err)
	}
	return importLibraryResponse{Value: raw}, nil
}

func (a *Agent) mapSetCenter(_ context.Context, req setCenterRequest) (empty, error) {
	m, err := a.mapByID(req.ID)
	if err != nil {
		return empty{}, err
	}
	m.SetCenter(req.Center)
	return empty{}, nil
}

func (a *Agent) mapSetZoom(_ context.Context, req setZoomRequest) (empty, error) {
	m, err := a.mapByID(req.ID)
	if err != nil {
		return empty{}, err
	}
	m.SetZoom(req.Zoom)
	return empty{}, nil
}

func (a *Agent) markerSetMap(_ context.Context, req markerMapRequest) (empty, error) {
	marker, err := a.markerByID(req.ID)
	if err != nil {
		return empty{}, err
	}

	var target maps.Map
	if req.Map != 0 {
		target, err = a.mapByID(req.Map)
		if err != nil {
			return empty{}, err
		}
	}
	marker.SetMap(target)
	return empty{}, nil
}

func (a *Agent) markerSetPosition(_ context.Context, req setPositionRequest) (empty, error) {
	marker, err := a.markerByID(req.ID)
	if err != nil {
		return empty{}, err
	}
	marker.SetPosition(req.Position)
	return empty{}, nil
}

func (a *Agent) markerSetTitle(_ context.Context, req setTitleRequest) (empty, error) {
	marker, err := a.markerByID(req.ID)
	if err != nil {
		return empty{}, err
	}
	marker.SetTitle(req.Title)
	return empty{}, nil
}

func (a *Agent) markerSetContent(_ context.Context, req setContentRequest) (empty, error) {
	marker, err := a.markerByID(req.ID)
	if err != nil {
		return empty{}, err
	}

	var content any
	if len(req.Content) > 0 {
		if err := json.Unmarshal(req.Content, &content); err != nil {
			return empty{}, fmt.Errorf("decode marker content: %w", err)
		}
	}
	marker.SetContent(content)
	return empty{}, nil
}

func (a *Agent) markerAddListener(_ context.Context, req addListenerRequest) (empty, error) {
	marker, err := a.markerByID(req.ID)
	if err != nil {
		return empty{}, err
	}

	// The listener id is client-chosen, so the client can route events
	// it receives before this response arrives.
	listenerID := req.Listener
	l := marker.AddListener(req.Event, func() {
		a.notifyEvent(notifyMarkerEvent, listenerRef{ID: listenerID})
	})

	a.mu.Lock()
	a.listeners[listenerID] = l
	a.mu.Unlock()
	return empty{}, nil
}

func (a *Agent) listenerRemove(_ context.Context, req listenerRef) (empty, error) {
	a.mu.Lock()
	l, ok := a.listeners[req.ID]
	delete(a.listeners, req.ID)
	a.mu.Unlock()

	if ok {
		l.Remove()
	}
	return empty{}, nil
}

func (a *Agent) mapByID(id uint32) (maps.Map, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.maps[id]
	if !ok {
		return nil, fmt.Errorf("unknown map %d", id)
	}
	return m, nil
}

func (a *Agent) markerByID(id uint32) (maps.Marker, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	marker, ok := a.markers[id]
	if !ok {
		return nil, fmt.Errorf("unknown marker %d", id)
	}
	return marker, nil
}
