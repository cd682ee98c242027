// Package maps defines the surface of the loaded Maps JavaScript API that
// this module consumes, together with adapters that drive native map and
// marker objects from Go code.
//
// The interfaces mirror the object model a successfully executed maps script
// publishes on the document's global object. Concrete implementations come
// from elsewhere: the bridge package proxies a remote page, and maptest
// provides an in-memory fake.
package maps

import "context"

// Namespace is the dot-separated global path the executed script publishes
// the API under.
const Namespace = "google.maps"

// RootNamespace is the top-level global object that carries Namespace.
const RootNamespace = "google"

// Mount is an opaque handle to the container a map renders into. Its
// concrete type belongs to the hosting environment; this module only passes
// it through.
type Mount any

// API is the handle obtained once the maps script has loaded: the
// constructors and the on-demand library importer.
type API interface {
	// NewMap constructs a native map bound to mount.
	NewMap(mount Mount, opts MapOptions) (Map, error)

	// NewMarker constructs a native marker overlay.
	NewMarker(opts MarkerOptions) (Marker, error)

	// ImportLibrary loads one of the API's optional libraries by name and
	// returns whatever the API exposes for it. Results are not cached here
	// and name is passed through unvalidated.
	ImportLibrary(ctx context.Context, name string) (any, error)
}

// Map is a native map object. Mutations are fire-and-forget, matching the
// underlying API's setters.
type Map interface {
	SetCenter(center LatLng)
	SetZoom(zoom int)
}

// Marker is a native marker overlay object.
type Marker interface {
	// SetMap attaches the marker to m, or detaches it when m is nil.
	SetMap(m Map)
	SetPosition(position LatLng)
	SetTitle(title string)
	// SetContent replaces the marker's displayed content with element; nil
	// restores the default pin.
	SetContent(element any)
	// AddListener registers fn for the named native event and returns the
	// registration.
	AddListener(event string, fn func()) Listener
}

// Listener is one registered native event listener.
type Listener interface {
	// Remove unregisters the listener. Removing twice is a no-op.
	Remove()
}

// MapOptions configures a native map at construction time.
type MapOptions struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
	// MapID selects a cloud-configured map style; empty means default.
	MapID string `json:"mapId,omitempty"`
}

// MarkerOptions configures a native marker at construction time. Map may be
// nil to create a detached marker.
type MarkerOptions struct {
	Map      Map
	Position LatLng
	Title    string
	// Content is the element displayed instead of the default pin, usually
	// a ContentRoot's Element.
	Content any
}
