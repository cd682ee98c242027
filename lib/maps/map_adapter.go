package maps

import "errors"

var (
	// ErrNoAPI is returned when an adapter is constructed before the maps
	// script has produced an API handle.
	ErrNoAPI = errors.New("maps: api handle is required")
	// ErrNoMount is returned when an adapter is constructed without a live
	// mount point.
	ErrNoMount = errors.New("maps: mount point is required")
	// ErrNoMap is returned when a marker adapter is constructed without a
	// map to attach to.
	ErrNoMap = errors.New("maps: map is required")
	// ErrAdapterClosed is returned by updates after Close.
	ErrAdapterClosed = errors.New("maps: adapter is closed")
)

// MapProps are the mutable properties a map adapter keeps in sync with its
// native object.
type MapProps struct {
	Center LatLng
	Zoom   int
}

// MapAdapter owns one native map object bound to a mount point. It is
// driven from a single goroutine, the way UI layers drive it; it is not
// safe for concurrent use.
type MapAdapter struct {
	api   API
	mount Mount
	obj   Map
	props MapProps
}

// NewMapAdapter constructs the native map. Both the API handle and the
// mount point must already exist; the adapter never constructs the native
// object before they do.
func NewMapAdapter(api API, mount Mount, props MapProps) (*MapAdapter, error) {
	if api == nil {
		return nil, ErrNoAPI
	}
	if mount == nil {
		return nil, ErrNoMount
	}

	obj, err := api.NewMap(mount, MapOptions{Center: props.Center, Zoom: props.Zoom})
	if err != nil {
		return nil, err
	}

	return &MapAdapter{api: api, mount: mount, obj: obj, props: props}, nil
}

// Map exposes the native object so markers can attach to it.
func (a *MapAdapter) Map() Map { return a.obj }

// Update applies changed properties to the already-constructed native
// object. The object is never torn down and rebuilt here.
func (a *MapAdapter) Update(props MapProps) error {
	if a.obj == nil {
		return ErrAdapterClosed
	}

	if props.Center != a.props.Center {
		a.obj.SetCenter(props.Center)
	}
	if props.Zoom != a.props.Zoom {
		a.obj.SetZoom(props.Zoom)
	}
	a.props = props
	return nil
}

// SetMount rebuilds the native map against a new mount point. This is the
// one path that recreates instead of mutating: a map cannot move between
// containers.
func (a *MapAdapter) SetMount(mount Mount) error {
	if a.obj == nil {
		return ErrAdapterClosed
	}
	if mount == nil {
		return ErrNoMount
	}

	obj, err := a.api.NewMap(mount, MapOptions{Center: a.props.Center, Zoom: a.props.Zoom})
	if err != nil {
		return err
	}
	a.mount = mount
	a.obj = obj
	return nil
}

// Close drops the adapter's references. Native maps carry no destructor;
// releasing the mount is what frees them in the hosting environment.
func (a *MapAdapter) Close() {
	a.obj = nil
	a.mount = nil
	a.api = nil
}
