package loader

import "errors"

// ErrScriptLoad is returned when the Maps script cannot be fetched or
// executed. A bad key, a network failure and a blocked request all surface
// as this one error; the platform does not say which it was.
var ErrScriptLoad = errors.New("Failed to load Google Maps script")

// ErrNotLoading is returned by Wait when nothing is loaded and no load is
// in flight.
var ErrNotLoading = errors.New("loader: no load in progress, call Load first")

// ErrNotLoaded is returned by ImportLibrary before the base script has
// finished loading.
var ErrNotLoaded = errors.New("loader: maps API is not loaded, call Load first")
