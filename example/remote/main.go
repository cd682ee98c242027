package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nptay1999/google-map-javascript-api/lib/bridge"
	"github.com/nptay1999/google-map-javascript-api/lib/config"
	"github.com/nptay1999/google-map-javascript-api/lib/geocode"
	"github.com/nptay1999/google-map-javascript-api/lib/loader"
	"github.com/nptay1999/google-map-javascript-api/lib/maps"
	fork "github.com/nptay1999/google-map-javascript-api/lib/process"
)

var opts struct {
	Config  string `short:"c" long:"config" description:"config file path or URL"`
	Agent   string `short:"a" long:"agent" description:"agent command to fork" default:"./agent/agent"`
	Key     string `short:"k" long:"key" description:"Maps API key, overrides the config"`
	Address string `long:"address" description:"geocode this address for the initial center (needs a real key)"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}

	fmt.Println("=== Remote Document Demo ===")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Configuration: file or URL, with flag overrides.
	cfg := &config.Config{APIKey: "demo-key"}
	if opts.Config != "" {
		loaded, err := config.NewFromURL(ctx, opts.Config)
		if err != nil {
			log.Fatalf("Config failed: %v", err)
		}
		cfg = loaded
	}
	if opts.Key != "" {
		cfg.APIKey = opts.Key
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config invalid: %v", err)
	}

	agentCommand := opts.Agent
	agentArgs := []string{"--auto-click"}
	if cfg.Agent != nil && cfg.Agent.Command != "" {
		agentCommand = cfg.Agent.Command
		agentArgs = cfg.Agent.Args
	}

	// 2. Fork the agent and bridge over its stdio.
	fmt.Printf("1. Forking agent: %s\n", agentCommand)
	proc, err := fork.Agent(agentCommand, agentArgs...)
	if err != nil {
		log.Fatalf("Fork failed: %v", err)
	}
	defer proc.Close()

	conn := bridge.NewConn(proc.Stdout(), proc.Stdin())
	doc := bridge.NewRemoteDocument(conn)
	if err := conn.Start(ctx); err != nil {
		log.Fatalf("Conn start failed: %v", err)
	}
	defer conn.Close()

	readyTimeout := 5 * time.Second
	if cfg.Agent != nil && cfg.Agent.Timeout.Std() > 0 {
		readyTimeout = cfg.Agent.Timeout.Std()
	}
	readyCtx, cancelReady := context.WithTimeout(ctx, readyTimeout)
	defer cancelReady()
	if err := conn.WaitReady(readyCtx); err != nil {
		log.Fatalf("Agent never became ready: %v", err)
	}
	fmt.Println("   Agent is ready")

	// 3. Pick a center, geocoding the address when one was given.
	center := maps.LatLng{Lat: 10.7769, Lng: 106.7009}
	if opts.Address != "" {
		service, err := geocode.NewService(cfg.APIKey)
		if err != nil {
			log.Fatalf("Geocode service failed: %v", err)
		}
		located, err := service.Locate(ctx, opts.Address)
		if err != nil {
			log.Printf("Geocoding %q failed, keeping the default center: %v", opts.Address, err)
		} else {
			center = located
			fmt.Printf("   %q resolved to %+v\n", opts.Address, center)
		}
	}

	// 4. Load the Maps script inside the agent's document.
	fmt.Println("2. Loading the Maps script through the bridge...")
	l := loader.New(doc)
	api, err := l.Load(ctx, cfg.APIKey, cfg.Options())
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	fmt.Printf("   IsLoaded: %v\n", l.IsLoaded())

	// 5. Drive a map and a marker living in the agent process.
	fmt.Println("3. Creating a map with one marker...")
	mapAdapter, err := maps.NewMapAdapter(api, "map-canvas", maps.MapProps{Center: center, Zoom: 12})
	if err != nil {
		log.Fatalf("Map adapter failed: %v", err)
	}

	clicked := make(chan struct{}, 1)
	marker, err := maps.NewMarkerAdapter(api, mapAdapter.Map(), maps.MarkerProps{
		Position: center,
		Title:    "You are here",
		OnClick: func() {
			select {
			case clicked <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		log.Fatalf("Marker adapter failed: %v", err)
	}

	// 6. The agent fires a click; the handler runs in this process.
	fmt.Println("4. Waiting for a click from the agent...")
	select {
	case <-clicked:
		fmt.Println("   Click crossed the bridge")
	case <-time.After(5 * time.Second):
		fmt.Println("   No click arrived (agent not clicking?)")
	}

	// 7. A custom protobuf verb, next to the built-in ones.
	fmt.Println("5. Asking the agent to describe itself...")
	caller := bridge.NewProtobufCaller[*structpb.Struct, *structpb.Struct](
		conn,
		"agent.describe",
		func() *structpb.Struct { return new(structpb.Struct) },
	)
	description, err := caller.Call(ctx, &structpb.Struct{})
	if err != nil {
		log.Printf("Describe failed: %v", err)
	} else {
		for name, value := range description.Fields {
			fmt.Printf("   %s: %v\n", name, value.AsInterface())
		}
	}

	// 8. Tear down; closing the conn lets the agent exit on its own.
	fmt.Println("6. Tearing down...")
	marker.Close()
	mapAdapter.Close()
	l.Dispose()
	conn.Close()

	fmt.Println("=== Done ===")
}
