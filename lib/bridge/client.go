package bridge

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/nptay1999/google-map-javascript-api/lib/document"
)

// defaultCallTimeout bounds each individual document operation. The
// document interface is synchronous, so a hung agent must not hang its
// caller forever.
const defaultCallTimeout = 10 * time.Second

// RemoteDocument is a document.Document whose page lives behind a bridge
// conn, typically inside another process. Every operation is one
// round trip, so effects are visible on the agent before the next
// operation starts; the loader's register-then-inject ordering survives
// the wire.
//
// Void operations cannot report transport failures through the document
// interface. They log and carry on; a dead conn ultimately surfaces
// through InjectScript or Global, which do report.
type RemoteDocument struct {
	conn    *Conn
	timeout time.Duration

	// nextToken numbers client-chosen routing ids: script event tokens
	// and listener ids. Client-chosen ids can be registered before the
	// round trip, so events never race their own setup.
	nextToken atomic.Uint32

	mu        sync.Mutex
	callbacks map[string]func()
	listeners map[uint32]func()
	events    map[uint32]document.Events
	scripts   map[uint32]*remoteScript
	api       *remoteAPI
}

// NewRemoteDocument wraps conn. The conn must be started and its agent
// ready before document operations run; WaitReady takes care of that.
func NewRemoteDocument(conn *Conn) *RemoteDocument {
	d := &RemoteDocument{
		conn:      conn,
		timeout:   defaultCallTimeout,
		callbacks: make(map[string]func()),
		listeners: make(map[uint32]func()),
		events:    make(map[uint32]document.Events),
		scripts:   make(map[uint32]*remoteScript),
	}
	conn.RegisterNotifyHandler(notifyCallbackInvoke, NotifyHandlerFunc(d.onCallbackInvoke))
	conn.RegisterNotifyHandler(notifyMarkerEvent, NotifyHandlerFunc(d.onMarkerEvent))
	conn.RegisterNotifyHandler(notifyScriptLoad, NotifyHandlerFunc(d.onScriptLoad))
	conn.RegisterNotifyHandler(notifyScriptError, NotifyHandlerFunc(d.onScriptError))
	return d
}

// op returns the context for one document operation.
func (d *RemoteDocument) op() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

// InjectScript implements document.Document. The event hooks are routed
// before the request goes out, so an error fired by a fast-failing fetch
// cannot be lost.
func (d *RemoteDocument) InjectScript(src string, attrs document.Attrs, events document.Events) (document.Script, error) {
	token := d.nextToken.Add(1)
	d.mu.Lock()
	d.events[token] = events
	d.mu.Unlock()

	ctx, cancel := d.op()
	defer cancel()

	ref, err := call[injectScriptRequest, scriptRef](ctx, d.conn, verbInjectScript, injectScriptRequest{
		Src:   src,
		Async: attrs.Async,
		Defer: attrs.Defer,
		Token: token,
	})
	if err != nil {
		d.mu.Lock()
		delete(d.events, token)
		d.mu.Unlock()
		return nil, err
	}

	s := &remoteScript{doc: d, id: ref.ID, token: token, src: src}
	s.attached.Store(true)

	d.mu.Lock()
	d.scripts[ref.ID] = s
	d.mu.Unlock()
	return s, nil
}

// Scripts implements document.Document.
func (d *RemoteDocument) Scripts() []document.Script {
	ctx, cancel := d.op()
	defer cancel()

	resp, err := call[empty, scriptsResponse](ctx, d.conn, verbScripts, empty{})
	if err != nil {
		log.Printf("bridge: list scripts: %v", err)
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]document.Script, 0, len(resp.Scripts))
	for _, ref := range resp.Scripts {
		s, ok := d.scripts[ref.ID]
		if !ok {
			s = &remoteScript{doc: d, id: ref.ID, src: ref.Src}
			d.scripts[ref.ID] = s
		}
		s.attached.Store(ref.Attached)
		out = append(out, s)
	}
	return out
}

// RegisterCallback implements document.Document. The function stays on
// this side; the agent registers a page callback that signals back when
// the script invokes it.
func (d *RemoteDocument) RegisterCallback(name string, fn func()) {
	d.mu.Lock()
	d.callbacks[name] = fn
	d.mu.Unlock()

	ctx, cancel := d.op()
	defer cancel()
	if _, err := call[callbackName, empty](ctx, d.conn, verbRegisterCallback, callbackName{Name: name}); err != nil {
		log.Printf("bridge: register callback %q: %v", name, err)
	}
}

// DeleteCallback implements document.Document.
func (d *RemoteDocument) DeleteCallback(name string) {
	d.mu.Lock()
	delete(d.callbacks, name)
	d.mu.Unlock()

	ctx, cancel := d.op()
	defer cancel()
	if _, err := call[callbackName, empty](ctx, d.conn, verbDeleteCallback, callbackName{Name: name}); err != nil {
		log.Printf("bridge: delete callback %q: %v", name, err)
	}
}

// Global implements document.Document. The maps namespace comes back as a
// proxy handle driving the agent-side API; every other value crosses the
// wire as JSON.
func (d *RemoteDocument) Global(path string) (any, bool) {
	ctx, cancel := d.op()
	defer cancel()

	resp, err := call[globalRequest, globalResponse](ctx, d.conn, verbGlobal, globalRequest{Path: path})
	if err != nil {
		log.Printf("bridge: read global %q: %v", path, err)
		return nil, false
	}
	if !resp.Found {
		return nil, false
	}
	if resp.API {
		return d.apiProxy(), true
	}

	var value any
	if len(resp.Value) > 0 {
		if err := json.Unmarshal(resp.Value, &value); err != nil {
			log.Printf("bridge: decode global %q: %v", path, err)
			return nil, false
		}
	}
	return value, true
}

// SetGlobal implements document.Document. Values that do not marshal to
// JSON cannot cross the wire and are dropped with a log line.
func (d *RemoteDocument) SetGlobal(path string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("bridge: set global %q: %v", path, err)
		return
	}

	ctx, cancel := d.op()
	defer cancel()
	if _, err := call[setGlobalRequest, empty](ctx, d.conn, verbSetGlobal, setGlobalRequest{Path: path, Value: raw}); err != nil {
		log.Printf("bridge: set global %q: %v", path, err)
	}
}

// DeleteGlobal implements document.Document.
func (d *RemoteDocument) DeleteGlobal(path string) {
	ctx, cancel := d.op()
	defer cancel()
	if _, err := call[globalRequest, empty](ctx, d.conn, verbDeleteGlobal, globalRequest{Path: path}); err != nil {
		log.Printf("bridge: delete global %q: %v", path, err)
	}
}

// apiProxy returns the one proxy handle for the agent-side API. A single
// instance keeps handle comparisons stable across Global reads.
func (d *RemoteDocument) apiProxy() *remoteAPI {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.api == nil {
		d.api = &remoteAPI{doc: d}
	}
	return d.api
}

func (d *RemoteDocument) onCallbackInvoke(_ context.Context, header Header) error {
	var req callbackName
	if err := json.Unmarshal(header.Body, &req); err != nil {
		return err
	}

	d.mu.Lock()
	fn := d.callbacks[req.Name]
	d.mu.Unlock()

	// Invoked outside the lock so the callback may re-enter the document.
	if fn != nil {
		fn()
	}
	return nil
}

func (d *RemoteDocument) onMarkerEvent(_ context.Context, header Header) error {
	var ref listenerRef
	if err := json.Unmarshal(header.Body, &ref); err != nil {
		return err
	}

	d.mu.Lock()
	fn := d.listeners[ref.ID]
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

func (d *RemoteDocument) onScriptLoad(_ context.Context, header Header) error {
	var ev scriptEvent
	if err := json.Unmarshal(header.Body, &ev); err != nil {
		return err
	}

	d.mu.Lock()
	events := d.events[ev.Token]
	d.mu.Unlock()

	if events.OnLoad != nil {
		events.OnLoad()
	}
	return nil
}

func (d *RemoteDocument) onScriptError(_ context.Context, header Header) error {
	var ev scriptEvent
	if err := json.Unmarshal(header.Body, &ev); err != nil {
		return err
	}

	d.mu.Lock()
	events := d.events[ev.Token]
	d.mu.Unlock()

	if events.OnError != nil {
		events.OnError(&ScriptError{Message: ev.Message})
	}
	return nil
}

// ScriptError carries a script failure reported by the agent.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string { return e.Message }

// remoteScript mirrors one script element on the agent's page.
type remoteScript struct {
	doc      *RemoteDocument
	id       uint32
	token    uint32
	src      string
	attached atomic.Bool
}

func (s *remoteScript) Src() string { return s.src }

func (s *remoteScript) Attached() bool { return s.attached.Load() }

func (s *remoteScript) Remove() {
	if !s.attached.CompareAndSwap(true, false) {
		return
	}

	s.doc.mu.Lock()
	delete(s.doc.events, s.token)
	s.doc.mu.Unlock()

	ctx, cancel := s.doc.op()
	defer cancel()
	if _, err := call[scriptIDRequest, empty](ctx, s.doc.conn, verbRemoveScript, scriptIDRequest{ID: s.id}); err != nil {
		log.Printf("bridge: remove script %d: %v", s.id, err)
	}
}
