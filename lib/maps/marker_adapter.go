package maps

import "fmt"

// MarkerProps are the mutable properties a marker adapter keeps in sync
// with its native object.
type MarkerProps struct {
	Position LatLng
	Title    string
	// Content, when non-nil, is projected into the marker in place of the
	// default pin.
	Content Content
	// OnClick, when non-nil, is registered as the marker's click handler.
	OnClick func()
}

// MarkerAdapter owns one native marker attached to a map. Like MapAdapter
// it is driven from a single goroutine and is not safe for concurrent use.
type MarkerAdapter struct {
	api    API
	target Map
	marker Marker
	click  Listener
	root   ContentRoot
	props  MarkerProps
}

// NewMarkerAdapter constructs the native marker and attaches it to m. Both
// the API handle and the map must already exist. When construction fails
// partway, everything created so far is torn down in the usual order.
func NewMarkerAdapter(api API, m Map, props MarkerProps) (*MarkerAdapter, error) {
	if api == nil {
		return nil, ErrNoAPI
	}
	if m == nil {
		return nil, ErrNoMap
	}

	a := &MarkerAdapter{api: api, target: m}

	opts := MarkerOptions{Map: m, Position: props.Position, Title: props.Title}
	if props.Content != nil {
		root, err := props.Content.Render()
		if err != nil {
			return nil, fmt.Errorf("maps: render marker content: %w", err)
		}
		a.root = root
		opts.Content = root.Element()
	}

	marker, err := api.NewMarker(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.marker = marker

	if props.OnClick != nil {
		a.click = marker.AddListener("click", props.OnClick)
	}
	a.props = props
	return a, nil
}

// Marker exposes the native object.
func (a *MarkerAdapter) Marker() Marker { return a.marker }

// Update applies changed properties by mutating the native marker in place.
// Content is re-projected whenever a value is present, since renderable
// content carries no usable identity. The click handler follows the same
// rule: the previous native listener is always removed before the next one
// is registered, so listeners never accumulate across updates.
func (a *MarkerAdapter) Update(props MarkerProps) error {
	if a.marker == nil {
		return ErrAdapterClosed
	}

	if props.Position != a.props.Position {
		a.marker.SetPosition(props.Position)
	}
	if props.Title != a.props.Title {
		a.marker.SetTitle(props.Title)
	}

	if props.Content != nil {
		root, err := props.Content.Render()
		if err != nil {
			return fmt.Errorf("maps: render marker content: %w", err)
		}
		if a.root != nil {
			a.root.Release()
		}
		a.root = root
		a.marker.SetContent(root.Element())
	} else if a.root != nil {
		a.root.Release()
		a.root = nil
		a.marker.SetContent(nil)
	}

	if a.click != nil {
		a.click.Remove()
		a.click = nil
	}
	if props.OnClick != nil {
		a.click = a.marker.AddListener("click", props.OnClick)
	}

	a.props = props
	return nil
}

// SetMap moves the marker to a different map, or detaches it when m is nil.
// The native object is mutated, not recreated.
func (a *MarkerAdapter) SetMap(m Map) error {
	if a.marker == nil {
		return ErrAdapterClosed
	}
	a.marker.SetMap(m)
	a.target = m
	return nil
}

// Close tears the marker down: the native listener is removed first, the
// marker is detached from its map, then the content root is released. Every
// step runs regardless of how far construction got, and Close is safe to
// call more than once.
func (a *MarkerAdapter) Close() {
	if a.click != nil {
		a.click.Remove()
		a.click = nil
	}
	if a.marker != nil {
		a.marker.SetMap(nil)
		a.marker = nil
	}
	if a.root != nil {
		a.root.Release()
		a.root = nil
	}
	a.target = nil
	a.api = nil
}
