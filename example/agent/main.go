package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nptay1999/google-map-javascript-api/lib/bridge"
	"github.com/nptay1999/google-map-javascript-api/lib/document"
	"github.com/nptay1999/google-map-javascript-api/lib/maps/maptest"
)

var opts struct {
	FailFirst bool `long:"fail-first" description:"fail the first script fetch, to exercise client retries"`
	AutoClick bool `long:"auto-click" description:"fire one click on every marker shortly after it appears"`
}

// A user agent serving a simulated page over stdio. Bridge frames own
// stdout; logs go to stderr.
func main() {
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}
	log.SetPrefix("maps-agent: ")

	fake := maptest.NewFake()
	fake.RegisterLibrary("places", map[string]any{"autocomplete": true})

	runner := maptest.Install(fake)
	if opts.FailFirst {
		runner = maptest.FailOnce(errors.New("simulated network failure"), fake)
	}
	doc := document.NewSim(runner)

	if opts.AutoClick {
		go clickNewMarkers(fake)
	}

	conn := bridge.NewConn(os.Stdin, os.Stdout)
	conn.RegisterRequestHandler("agent.describe", bridge.NewProtobufHandler(
		"agent.describe",
		func() *structpb.Struct { return new(structpb.Struct) },
		func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{
				"pid":     os.Getpid(),
				"scripts": len(doc.Scripts()),
				"maps":    len(fake.Maps()),
				"markers": len(fake.Markers()),
			})
		},
	))

	agent := bridge.NewAgent(conn, doc)
	if err := agent.Serve(context.Background()); err != nil {
		log.Fatalf("serve: %v", err)
	}
	log.Printf("serving on stdio (pid %d)", os.Getpid())

	conn.Wait()
	log.Printf("stream closed, exiting")
}

// clickNewMarkers simulates a user clicking each marker once, so the far
// side of the bridge sees its listeners fire.
func clickNewMarkers(fake *maptest.Fake) {
	seen := 0
	for {
		time.Sleep(500 * time.Millisecond)
		markers := fake.Markers()
		for _, marker := range markers[seen:] {
			marker.Fire("click")
		}
		seen = len(markers)
	}
}
