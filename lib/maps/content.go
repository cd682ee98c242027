package maps

// Content is rich visual content projected into a marker in place of the
// default pin. Render attaches it to a fresh root; the root is what the
// adapter hands to the native marker and what it releases on teardown.
type Content interface {
	Render() (ContentRoot, error)
}

// ContentRoot is one live projection of a Content value.
type ContentRoot interface {
	// Element returns the value handed to the native marker as its
	// displayed content.
	Element() any

	// Release tears the projection down. Releasing twice is a no-op.
	Release()
}
