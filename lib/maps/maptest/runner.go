package maptest

import (
	"net/url"
	"sync/atomic"

	"github.com/nptay1999/google-map-javascript-api/lib/document"
	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// Install returns a ScriptRunner that mirrors a successful fetch: it
// publishes api at the maps namespace and invokes the callback named in the
// script URL's query string.
func Install(api maps.API) document.ScriptRunner {
	return func(doc *document.Sim, src string) error {
		doc.SetGlobal(maps.Namespace, api)
		if u, err := url.Parse(src); err == nil {
			if cb := u.Query().Get("callback"); cb != "" {
				doc.InvokeCallback(cb)
			}
		}
		return nil
	}
}

// Fail returns a runner that fails every fetch with err.
func Fail(err error) document.ScriptRunner {
	return func(*document.Sim, string) error { return err }
}

// FailOnce returns a runner that fails the first fetch with err and behaves
// like Install(api) afterwards. Useful for retry scenarios.
func FailOnce(err error, api maps.API) document.ScriptRunner {
	var failed atomic.Bool
	install := Install(api)
	return func(doc *document.Sim, src string) error {
		if failed.CompareAndSwap(false, true) {
			return err
		}
		return install(doc, src)
	}
}
