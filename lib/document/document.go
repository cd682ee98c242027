// Package document models the script-hosting environment the loader drives:
// a browser page reached through a user agent, or an in-memory simulation.
//
// The loader never touches network or global state directly; everything goes
// through the Document interface, so the same loader runs unchanged against
// a remote page, a loopback bridge, or a test document.
package document

// Attrs captures the element attributes set on an injected script.
type Attrs struct {
	// Async requests asynchronous fetching.
	Async bool
	// Defer requests execution after document parsing completes.
	Defer bool
}

// Events carries the settlement hooks for one injected script. A document
// fires at most one of them, exactly once, on a separate goroutine after
// InjectScript has returned. Either hook may be nil.
type Events struct {
	// OnLoad fires after the script has been fetched and executed.
	OnLoad func()
	// OnError fires when the fetch or execution fails.
	OnError func(err error)
}

// Script is a handle to one script element attached to a document.
type Script interface {
	// Src returns the URL the element points at.
	Src() string

	// Attached reports whether the element is still part of the document.
	Attached() bool

	// Remove detaches the element. Removing a detached element is a no-op.
	// Removal does not abort an in-flight fetch; pending Events may still
	// fire afterwards.
	Remove()
}

// Document is the boundary between the loader and whatever hosts its
// scripts. Implementations must be safe for concurrent use and must not
// hold internal locks while invoking callbacks or Events.
type Document interface {
	// InjectScript appends a script element referencing src to the document
	// head and starts its asynchronous fetch. The returned Script is
	// attached immediately; the outcome of the fetch arrives through
	// events.
	InjectScript(src string, attrs Attrs, events Events) (Script, error)

	// Scripts returns the scripts currently attached, in insertion order.
	Scripts() []Script

	// RegisterCallback exposes fn on the global object under name so that a
	// fetched script can invoke it by name. Registering the same name again
	// replaces the earlier function.
	RegisterCallback(name string, fn func())

	// DeleteCallback removes a registered callback. Unknown names are
	// ignored.
	DeleteCallback(name string)

	// Global returns the value stored at a dot-separated path on the
	// global object, such as "google.maps", and whether the path exists.
	Global(path string) (any, bool)

	// SetGlobal stores value at a dot-separated path, creating intermediate
	// objects as needed. This is what an executing script does when it
	// publishes its namespace.
	SetGlobal(path string, value any)

	// DeleteGlobal removes the value at path together with everything
	// nested under it. Unknown paths are ignored.
	DeleteGlobal(path string)
}
