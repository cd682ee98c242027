package bridge

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// Built-in verbs. The document group mirrors document.Document, the maps
// group mirrors maps.API and its objects. Everything else on a conn is a
// custom verb.
const (
	verbInjectScript     = "document.injectScript"
	verbRemoveScript     = "document.removeScript"
	verbScripts          = "document.scripts"
	verbRegisterCallback = "document.registerCallback"
	verbDeleteCallback   = "document.deleteCallback"
	verbGlobal           = "document.global"
	verbSetGlobal        = "document.setGlobal"
	verbDeleteGlobal     = "document.deleteGlobal"

	verbNewMap        = "maps.newMap"
	verbNewMarker     = "maps.newMarker"
	verbImportLibrary = "maps.importLibrary"

	verbMapSetCenter = "map.setCenter"
	verbMapSetZoom   = "map.setZoom"

	verbMarkerSetMap      = "marker.setMap"
	verbMarkerSetPosition = "marker.setPosition"
	verbMarkerSetTitle    = "marker.setTitle"
	verbMarkerSetContent  = "marker.setContent"
	verbMarkerAddListener = "marker.addListener"
	verbListenerRemove    = "listener.remove"
)

// Agent-to-client notifications.
const (
	notifyScriptLoad     = "script.load"
	notifyScriptError    = "script.error"
	notifyCallbackInvoke = "callback.invoke"
	notifyMarkerEvent    = "marker.event"
)

// empty is the body of void responses.
type empty struct{}

type injectScriptRequest struct {
	Src   string `json:"src"`
	Async bool   `json:"async"`
	Defer bool   `json:"defer"`
	// Token routes load and error events for this script. The client
	// chooses it before the call, so an event that overtakes the
	// response still finds its script.
	Token uint32 `json:"token"`
}

type scriptRef struct {
	ID       uint32 `json:"id"`
	Src      string `json:"src"`
	Attached bool   `json:"attached"`
}

type scriptsResponse struct {
	Scripts []scriptRef `json:"scripts"`
}

type scriptIDRequest struct {
	ID uint32 `json:"id"`
}

type scriptEvent struct {
	Token   uint32 `json:"token"`
	Message string `json:"message,omitempty"`
}

type callbackName struct {
	Name string `json:"name"`
}

type globalRequest struct {
	Path string `json:"path"`
}

type globalResponse struct {
	Found bool `json:"found"`
	// API marks the path as holding the Maps API handle, which cannot
	// cross the wire as a value. The client materializes a proxy instead.
	API   bool            `json:"api,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

type setGlobalRequest struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

type objectRef struct {
	ID uint32 `json:"id"`
}

type newMapRequest struct {
	Mount   json.RawMessage `json:"mount"`
	Options maps.MapOptions `json:"options"`
}

type newMarkerRequest struct {
	Map      uint32          `json:"map,omitempty"`
	Position maps.LatLng     `json:"position"`
	Title    string          `json:"title,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

type setCenterRequest struct {
	ID     uint32      `json:"id"`
	Center maps.LatLng `json:"center"`
}

type setZoomRequest struct {
	ID   uint32 `json:"id"`
	Zoom int    `json:"zoom"`
}

type markerMapRequest struct {
	ID  uint32 `json:"id"`
	Map uint32 `json:"map,omitempty"`
}

type setPositionRequest struct {
	ID       uint32      `json:"id"`
	Position maps.LatLng `json:"position"`
}

type setTitleRequest struct {
	ID    uint32 `json:"id"`
	Title string `json:"title"`
}

type setContentRequest struct {
	ID      uint32          `json:"id"`
	Content json.RawMessage `json:"content"`
}

type addListenerRequest struct {
	ID    uint32 `json:"id"`
	Event string `json:"event"`
	// Listener is the client-chosen id events for this listener carry.
	Listener uint32 `json:"listener"`
}

type listenerRef struct {
	ID uint32 `json:"id"`
}

type importLibraryRequest struct {
	Name string `json:"name"`
}

type importLibraryResponse struct {
	Value json.RawMessage `json:"value"`
}

// call is the JSON request/response exchange the built-in verbs ride on.
func call[Req, Resp any](ctx context.Context, conn *Conn, name string, req Req) (Resp, error) {
	var zero Resp

	body, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("bridge: failed to marshal %s request: %w", name, err)
	}

	responseBody, err := conn.Call(ctx, name, body)
	if err != nil {
		return zero, err
	}

	var resp Resp
	if err := json.Unmarshal(responseBody, &resp); err != nil {
		return zero, fmt.Errorf("bridge: failed to unmarshal %s response: %w", name, err)
	}
	return resp, nil
}

// notify is the JSON one-way counterpart of call.
func notify[Req any](ctx context.Context, conn *Conn, name string, req Req) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("bridge: failed to marshal %s notification: %w", name, err)
	}
	return conn.Notify(ctx, name, body)
}
