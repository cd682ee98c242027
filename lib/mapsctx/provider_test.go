package mapsctx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nptay1999/google-map-javascript-api/lib/document"
	"github.com/nptay1999/google-map-javascript-api/lib/loader"
	"github.com/nptay1999/google-map-javascript-api/lib/maps"
	"github.com/nptay1999/google-map-javascript-api/lib/maps/maptest"
)

func TestWithFrom(t *testing.T) {
	if _, ok := From(context.Background()); ok {
		t.Error("Expected no handle on an empty context")
	}

	fake := maptest.NewFake()
	ctx := With(context.Background(), fake)

	api, ok := From(ctx)
	if !ok {
		t.Fatal("Expected a handle after With")
	}
	if api != maps.API(fake) {
		t.Error("Expected the attached handle")
	}
}

func TestProvider_CachesHandle(t *testing.T) {
	fake := maptest.NewFake()
	sim := document.NewSim(maptest.Install(fake))
	p := NewProvider(loader.New(sim), "test-key", loader.Options{})

	first, err := p.API(context.Background())
	if err != nil {
		t.Fatalf("API failed: %v", err)
	}
	second, err := p.API(context.Background())
	if err != nil {
		t.Fatalf("API failed: %v", err)
	}

	if first != second {
		t.Error("Expected the cached handle on the second call")
	}
	if got := len(sim.Scripts()); got != 1 {
		t.Errorf("Expected 1 injected script, got %d", got)
	}
}

func TestProvider_RetriesScriptLoadOnce(t *testing.T) {
	fake := maptest.NewFake()
	sim := document.NewSim(maptest.FailOnce(errors.New("network down"), fake))
	p := NewProvider(loader.New(sim), "test-key", loader.Options{})

	api, err := p.API(context.Background())
	if err != nil {
		t.Fatalf("Expected the retry to succeed, got %v", err)
	}
	if api != maps.API(fake) {
		t.Error("Expected the handle from the retry")
	}
	if got := len(sim.Scripts()); got != 2 {
		t.Errorf("Expected 2 script elements after one retry, got %d", got)
	}
}

func TestProvider_GivesUpAfterRetries(t *testing.T) {
	sim := document.NewSim(maptest.Fail(errors.New("blocked")))
	p := NewProvider(loader.New(sim), "test-key", loader.Options{})

	if _, err := p.API(context.Background()); !errors.Is(err, loader.ErrScriptLoad) {
		t.Fatalf("Expected ErrScriptLoad, got %v", err)
	}
	if got := len(sim.Scripts()); got != 2 {
		t.Errorf("Expected 2 attempts with the default retry, got %d", got)
	}
}

func TestProvider_WithRetryZero(t *testing.T) {
	sim := document.NewSim(maptest.Fail(errors.New("blocked")))
	p := NewProvider(loader.New(sim), "test-key", loader.Options{}, WithRetry(0))

	if _, err := p.API(context.Background()); !errors.Is(err, loader.ErrScriptLoad) {
		t.Fatalf("Expected ErrScriptLoad, got %v", err)
	}
	if got := len(sim.Scripts()); got != 1 {
		t.Errorf("Expected a single attempt, got %d", got)
	}
}

func TestProvider_ContextErrorNotRetried(t *testing.T) {
	// A hung fetch: the context error must surface without a second
	// attempt.
	sim := document.NewSim(nil)
	p := NewProvider(loader.New(sim), "test-key", loader.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := p.API(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context deadline error, got %v", err)
	}
	if got := len(sim.Scripts()); got != 1 {
		t.Errorf("Expected 1 attempt, got %d", got)
	}
}

func TestProvider_Attach(t *testing.T) {
	fake := maptest.NewFake()
	sim := document.NewSim(maptest.Install(fake))
	p := NewProvider(loader.New(sim), "test-key", loader.Options{})

	ctx, err := p.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	api, ok := From(ctx)
	if !ok {
		t.Fatal("Expected a handle on the returned context")
	}
	if api != maps.API(fake) {
		t.Error("Expected the loaded handle")
	}
}
