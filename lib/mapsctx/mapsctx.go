// Package mapsctx republishes a loaded Maps API handle through a
// context.Context, so code deep in a call tree can reach the API without
// threading the handle through every signature.
package mapsctx

import (
	"context"

	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

type ctxKey struct{}

// With returns a copy of ctx carrying api.
func With(ctx context.Context, api maps.API) context.Context {
	return context.WithValue(ctx, ctxKey{}, api)
}

// From extracts the handle published by With.
func From(ctx context.Context) (maps.API, bool) {
	api, ok := ctx.Value(ctxKey{}).(maps.API)
	return api, ok
}
