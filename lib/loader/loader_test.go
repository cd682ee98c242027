package loader

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nptay1999/google-map-javascript-api/lib/document"
	"github.com/nptay1999/google-map-javascript-api/lib/maps"
	"github.com/nptay1999/google-map-javascript-api/lib/maps/maptest"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("Condition not reached in time")
}

func TestLoad_CoalescesConcurrentCallers(t *testing.T) {
	fake := maptest.NewFake()
	install := maptest.Install(fake)
	release := make(chan struct{})
	sim := document.NewSim(func(doc *document.Sim, src string) error {
		<-release
		return install(doc, src)
	})

	l := New(sim)

	const callers = 8
	var wg sync.WaitGroup
	handles := make(chan maps.API, callers)
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			api, err := l.Load(context.Background(), "test-key", Options{})
			if err != nil {
				errs <- err
				return
			}
			handles <- api
		}()
	}

	close(release)
	wg.Wait()
	close(handles)
	close(errs)

	for err := range errs {
		t.Fatalf("Load failed: %v", err)
	}
	count := 0
	for api := range handles {
		count++
		if api != maps.API(fake) {
			t.Error("Expected every caller to receive the identical handle")
		}
	}
	if count != callers {
		t.Fatalf("Expected %d handles, got %d", callers, count)
	}
	if got := len(sim.Scripts()); got != 1 {
		t.Errorf("Expected exactly 1 injected script, got %d", got)
	}
}

func TestLoad_SecondCallReturnsExistingHandle(t *testing.T) {
	fake := maptest.NewFake()
	sim := document.NewSim(maptest.Install(fake))
	l := New(sim)

	first, err := l.Load(context.Background(), "test-key", Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Different options once loaded are ignored, no new script is fetched.
	second, err := l.Load(context.Background(), "other-key", Options{Libraries: []string{"places"}})
	if err != nil {
		t.Fatalf("Second Load failed: %v", err)
	}
	if first != second {
		t.Error("Expected the same handle from both calls")
	}
	if got := len(sim.Scripts()); got != 1 {
		t.Errorf("Expected 1 injected script, got %d", got)
	}
}

func TestLoad_AdoptsExistingGlobal(t *testing.T) {
	fake := maptest.NewFake()
	sim := document.NewSim(nil)
	sim.SetGlobal(maps.Namespace, maps.API(fake))

	l := New(sim)
	api, err := l.Load(context.Background(), "test-key", Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if api != maps.API(fake) {
		t.Error("Expected the handle already on the page")
	}
	if got := len(sim.Scripts()); got != 0 {
		t.Errorf("Expected no script injection, got %d", got)
	}
}

func TestIsLoaded_TracksCallback(t *testing.T) {
	fake := maptest.NewFake()
	install := maptest.Install(fake)
	release := make(chan struct{})
	sim := document.NewSim(func(doc *document.Sim, src string) error {
		<-release
		return install(doc, src)
	})

	l := New(sim)
	if l.IsLoaded() {
		t.Error("Expected IsLoaded false before any load")
	}

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), "test-key", Options{})
		done <- err
	}()

	// Script injected, callback not yet fired: still not loaded.
	waitFor(t, func() bool { return len(sim.Scripts()) == 1 })
	if l.IsLoaded() {
		t.Error("Expected IsLoaded false while the load is in flight")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !l.IsLoaded() {
		t.Error("Expected IsLoaded true after the callback fired")
	}
}

func TestWait_NoLoadInProgress(t *testing.T) {
	l := New(document.NewSim(nil))

	_, err := l.Wait(context.Background())
	if !errors.Is(err, ErrNotLoading) {
		t.Errorf("Expected ErrNotLoading, got %v", err)
	}
}

func TestWait_JoinsInflightLoad(t *testing.T) {
	fake := maptest.NewFake()
	install := maptest.Install(fake)
	release := make(chan struct{})
	sim := document.NewSim(func(doc *document.Sim, src string) error {
		<-release
		return install(doc, src)
	})

	l := New(sim)
	go l.Load(context.Background(), "test-key", Options{})
	waitFor(t, func() bool { return len(sim.Scripts()) == 1 })

	waited := make(chan maps.API, 1)
	go func() {
		api, err := l.Wait(context.Background())
		if err != nil {
			t.Errorf("Wait failed: %v", err)
		}
		waited <- api
	}()

	close(release)
	select {
	case api := <-waited:
		if api != maps.API(fake) {
			t.Error("Expected Wait to resolve with the loaded handle")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not resolve")
	}

	// Once loaded, Wait resolves immediately.
	api, err := l.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait after load failed: %v", err)
	}
	if api != maps.API(fake) {
		t.Error("Expected the loaded handle")
	}
}

func TestLoad_ScriptError(t *testing.T) {
	if ErrScriptLoad.Error() != "Failed to load Google Maps script" {
		t.Errorf("Unexpected error message: %q", ErrScriptLoad.Error())
	}

	sim := document.NewSim(maptest.Fail(errors.New("403")))
	l := New(sim)

	_, err := l.Load(context.Background(), "bad-key", Options{})
	if !errors.Is(err, ErrScriptLoad) {
		t.Fatalf("Expected ErrScriptLoad, got %v", err)
	}
	if l.IsLoaded() {
		t.Error("Expected IsLoaded false after a failed load")
	}
}

func TestLoad_ErrorThenRetry(t *testing.T) {
	fake := maptest.NewFake()
	sim := document.NewSim(maptest.FailOnce(errors.New("network down"), fake))
	l := New(sim)

	if _, err := l.Load(context.Background(), "test-key", Options{}); !errors.Is(err, ErrScriptLoad) {
		t.Fatalf("Expected ErrScriptLoad on first attempt, got %v", err)
	}

	// The failure cleared the in-flight slot, so the next call starts a
	// fresh attempt. The dead script element stays behind until Dispose.
	api, err := l.Load(context.Background(), "test-key", Options{})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if api != maps.API(fake) {
		t.Error("Expected the retry to resolve with the handle")
	}
	if got := len(sim.Scripts()); got != 2 {
		t.Errorf("Expected 2 script elements after retry, got %d", got)
	}
}

func TestLoad_ContextDetachesWaiter(t *testing.T) {
	// A nil runner means the fetch never settles.
	sim := document.NewSim(nil)
	l := New(sim)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := l.Load(ctx, "test-key", Options{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context deadline error, got %v", err)
	}

	// The load itself is still pending; Wait can rejoin it.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if _, err := l.Wait(ctx2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected Wait to block on the hung load, got %v", err)
	}
}

func TestImportLibrary(t *testing.T) {
	fake := maptest.NewFake()
	fake.RegisterLibrary("places", "places-library")
	sim := document.NewSim(maptest.Install(fake))
	l := New(sim)

	if _, err := l.ImportLibrary(context.Background(), "places"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Expected ErrNotLoaded before load, got %v", err)
	}
	if got := len(sim.Scripts()); got != 0 {
		t.Errorf("Expected no network activity, got %d scripts", got)
	}

	if _, err := l.Load(context.Background(), "test-key", Options{}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	lib, err := l.ImportLibrary(context.Background(), "places")
	if err != nil {
		t.Fatalf("ImportLibrary failed: %v", err)
	}
	if lib != "places-library" {
		t.Errorf("Expected 'places-library', got %v", lib)
	}

	// Errors from the API's own import pass through unmodified.
	_, err = l.ImportLibrary(context.Background(), "unknown")
	if err == nil || errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected the API's own error, got %v", err)
	}
}

func TestScript(t *testing.T) {
	fake := maptest.NewFake()
	sim := document.NewSim(maptest.Install(fake))
	l := New(sim)

	if _, ok := l.Script(); ok {
		t.Error("Expected no script before load")
	}

	if _, err := l.Load(context.Background(), "test-key", Options{}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s, ok := l.Script()
	if !ok {
		t.Fatal("Expected the injected script")
	}
	if !strings.HasPrefix(s.Src(), Endpoint+"?key=test-key") {
		t.Errorf("Unexpected script src '%s'", s.Src())
	}
}

func TestScript_AdoptsForeignElement(t *testing.T) {
	sim := document.NewSim(nil)
	sim.InjectScript("https://example.com/analytics.js", document.Attrs{}, document.Events{})
	sim.InjectScript(Endpoint+"?key=elsewhere", document.Attrs{}, document.Events{})

	l := New(sim)
	s, ok := l.Script()
	if !ok {
		t.Fatal("Expected the loader to adopt the existing maps script")
	}
	if s.Src() != Endpoint+"?key=elsewhere" {
		t.Errorf("Adopted the wrong script: '%s'", s.Src())
	}
}

func TestDispose(t *testing.T) {
	fake := maptest.NewFake()
	sim := document.NewSim(maptest.Install(fake))
	l := New(sim)

	if _, err := l.Load(context.Background(), "test-key", Options{}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s, ok := l.Script()
	if !ok {
		t.Fatal("Expected an attached script")
	}

	l.Dispose()

	if l.IsLoaded() {
		t.Error("Expected IsLoaded false after Dispose")
	}
	if s.Attached() {
		t.Error("Expected the script element to be detached")
	}
	if got := len(sim.Scripts()); got != 0 {
		t.Errorf("Expected no scripts in the document, got %d", got)
	}
	if _, ok := sim.Global(maps.RootNamespace); ok {
		t.Error("Expected the global namespace to be deleted")
	}

	// Idempotent.
	l.Dispose()

	// A fresh load cycle works after Dispose.
	api, err := l.Load(context.Background(), "test-key", Options{})
	if err != nil {
		t.Fatalf("Load after Dispose failed: %v", err)
	}
	if api != maps.API(fake) {
		t.Error("Expected a working handle after reload")
	}
	if !l.IsLoaded() {
		t.Error("Expected IsLoaded true after reload")
	}
}

func TestDispose_NothingLoaded(t *testing.T) {
	l := New(document.NewSim(nil))
	l.Dispose()
	l.Dispose()

	if l.IsLoaded() {
		t.Error("Expected IsLoaded false")
	}
}

func TestLoad_CallbackContract(t *testing.T) {
	fake := maptest.NewFake()
	install := maptest.Install(fake)

	var mu sync.Mutex
	var callback string
	sim := document.NewSim(func(doc *document.Sim, src string) error {
		if u, err := url.Parse(src); err == nil {
			mu.Lock()
			callback = u.Query().Get("callback")
			mu.Unlock()
		}
		return install(doc, src)
	})

	l := New(sim)
	opts := Options{Libraries: []string{"marker"}, Language: "en"}
	if _, err := l.Load(context.Background(), "test-key", opts); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	mu.Lock()
	name := callback
	mu.Unlock()

	if !strings.HasPrefix(name, "__googleMapsCallback_") {
		t.Errorf("Unexpected callback name '%s'", name)
	}

	// The callback is one-shot: it was deleted once the load finished.
	if sim.InvokeCallback(name) {
		t.Error("Expected the load callback to be deleted after firing")
	}

	// The script element carries the exact URL plus the callback, with
	// async and deferred loading semantics.
	s, ok := l.Script()
	if !ok {
		t.Fatal("Expected the injected script")
	}
	want := BuildURL("test-key", opts) + "&callback=" + name
	if s.Src() != want {
		t.Errorf("Expected src '%s', got '%s'", want, s.Src())
	}
	attrs := s.(interface{ Attrs() document.Attrs }).Attrs()
	if !attrs.Async || !attrs.Defer {
		t.Errorf("Expected async and deferred script, got %+v", attrs)
	}
}
