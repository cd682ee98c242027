package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nptay1999/google-map-javascript-api/lib/document"
	"github.com/nptay1999/google-map-javascript-api/lib/loader"
	"github.com/nptay1999/google-map-javascript-api/lib/maps"
	"github.com/nptay1999/google-map-javascript-api/lib/maps/maptest"
	"github.com/nptay1999/google-map-javascript-api/lib/mapsctx"
)

func main() {
	fmt.Println("=== Simulated Document Demo ===")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 1. A fake Maps API behind a simulated document.
	fmt.Println("1. Creating the simulated document...")
	fake := maptest.NewFake()
	fake.RegisterLibrary("places", map[string]any{"autocomplete": true})
	doc := document.NewSim(maptest.Install(fake))

	// 2. Load the script once.
	fmt.Println("2. Loading the Maps script...")
	l := loader.New(doc)
	api, err := l.Load(ctx, "demo-key", loader.Options{
		Libraries: []string{"places"},
		Language:  "en",
	})
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	fmt.Printf("   IsLoaded: %v\n", l.IsLoaded())
	if script, ok := l.Script(); ok {
		fmt.Printf("   Script element: %s\n", script.Src())
	}

	// 3. Every caller gets the same handle, whenever it asks.
	fmt.Println("3. Loading again from three goroutines...")
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			again, err := l.Load(ctx, "demo-key", loader.Options{})
			if err != nil {
				log.Printf("goroutine %d: Load failed: %v", id, err)
				return
			}
			fmt.Printf("   goroutine %d got the same handle: %v\n", id, again == api)
		}(i)
	}
	wg.Wait()
	fmt.Printf("   Scripts in the document: %d\n", len(doc.Scripts()))

	// 4. Drive a map and a marker through the adapters.
	fmt.Println("4. Creating a map with one marker...")
	mapAdapter, err := maps.NewMapAdapter(api, "map-canvas", maps.MapProps{
		Center: maps.LatLng{Lat: 10.7769, Lng: 106.7009},
		Zoom:   12,
	})
	if err != nil {
		log.Fatalf("Map adapter failed: %v", err)
	}

	clicked := make(chan struct{}, 1)
	marker, err := maps.NewMarkerAdapter(api, mapAdapter.Map(), maps.MarkerProps{
		Position: maps.LatLng{Lat: 10.7769, Lng: 106.7009},
		Title:    "Ben Thanh Market",
		Content:  &maptest.StaticContent{Value: "<div class=\"pin\">market</div>"},
		OnClick:  func() { clicked <- struct{}{} },
	})
	if err != nil {
		log.Fatalf("Marker adapter failed: %v", err)
	}
	fmt.Printf("   Maps: %d, markers: %d\n", len(fake.Maps()), len(fake.Markers()))

	// 5. Fire a click the way the page would.
	fmt.Println("5. Firing a click on the marker...")
	fake.Markers()[0].Fire("click")
	select {
	case <-clicked:
		fmt.Println("   Click handler ran")
	case <-ctx.Done():
		log.Fatalf("Click never arrived: %v", ctx.Err())
	}

	// 6. Re-rendering mutates instead of recreating.
	fmt.Println("6. Updating the map and marker in place...")
	if err := mapAdapter.Update(maps.MapProps{Center: maps.LatLng{Lat: 21.0285, Lng: 105.8542}, Zoom: 14}); err != nil {
		log.Fatalf("Map update failed: %v", err)
	}
	if err := marker.Update(maps.MarkerProps{
		Position: maps.LatLng{Lat: 21.0285, Lng: 105.8542},
		Title:    "Hoan Kiem Lake",
		OnClick:  func() { clicked <- struct{}{} },
	}); err != nil {
		log.Fatalf("Marker update failed: %v", err)
	}
	fmt.Printf("   Still %d map(s), click listeners: %d\n",
		len(fake.Maps()), fake.Markers()[0].ListenerCount("click"))

	// 7. Optional libraries come through the loader too.
	fmt.Println("7. Importing the places library...")
	value, err := l.ImportLibrary(ctx, "places")
	if err != nil {
		log.Fatalf("ImportLibrary failed: %v", err)
	}
	fmt.Printf("   places: %v\n", value)

	// 8. A context-scoped handle for request pipelines.
	fmt.Println("8. Attaching the handle to a context...")
	provider := mapsctx.NewProvider(l, "demo-key", loader.Options{}, mapsctx.WithRetry(2))
	reqCtx, err := provider.Attach(ctx)
	if err != nil {
		log.Fatalf("Attach failed: %v", err)
	}
	if _, ok := mapsctx.From(reqCtx); ok {
		fmt.Println("   Downstream code can read the handle from the context")
	}

	// 9. Tear everything down.
	fmt.Println("9. Tearing down...")
	marker.Close()
	mapAdapter.Close()
	l.Dispose()
	fmt.Printf("   IsLoaded: %v, scripts left: %d\n", l.IsLoaded(), len(doc.Scripts()))

	fmt.Println("=== Done ===")
}
