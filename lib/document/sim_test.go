package document

import (
	"errors"
	"testing"
	"time"
)

func TestSim_InjectScript_RunnerSuccess(t *testing.T) {
	doc := NewSim(func(d *Sim, src string) error {
		d.SetGlobal("google.maps", "api")
		d.InvokeCallback("cb")
		return nil
	})

	invoked := make(chan struct{}, 1)
	doc.RegisterCallback("cb", func() { invoked <- struct{}{} })

	loaded := make(chan struct{}, 1)
	s, err := doc.InjectScript("https://example.com/js?callback=cb", Attrs{Async: true, Defer: true}, Events{
		OnLoad: func() { loaded <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("InjectScript failed: %v", err)
	}
	if !s.Attached() {
		t.Error("Expected injected script to be attached")
	}

	select {
	case <-invoked:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for callback invocation")
	}
	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for OnLoad")
	}

	if _, ok := doc.Global("google.maps"); !ok {
		t.Error("Expected 'google.maps' global after runner executed")
	}
}

func TestSim_InjectScript_RunnerError(t *testing.T) {
	boom := errors.New("fetch failed")
	doc := NewSim(func(d *Sim, src string) error { return boom })

	errs := make(chan error, 1)
	_, err := doc.InjectScript("https://example.com/js", Attrs{}, Events{
		OnError: func(e error) { errs <- e },
		OnLoad:  func() { t.Error("OnLoad must not fire on failure") },
	})
	if err != nil {
		t.Fatalf("InjectScript failed: %v", err)
	}

	select {
	case e := <-errs:
		if !errors.Is(e, boom) {
			t.Errorf("Expected runner error, got %v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for OnError")
	}
}

func TestSim_NilRunnerNeverSettles(t *testing.T) {
	doc := NewSim(nil)

	settled := make(chan struct{}, 2)
	s, err := doc.InjectScript("https://example.com/js", Attrs{}, Events{
		OnLoad:  func() { settled <- struct{}{} },
		OnError: func(error) { settled <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("InjectScript failed: %v", err)
	}
	if !s.Attached() {
		t.Error("Expected script to stay attached")
	}

	select {
	case <-settled:
		t.Error("Expected no settlement with a nil runner")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSim_ScriptRemove(t *testing.T) {
	doc := NewSim(nil)

	s1, _ := doc.InjectScript("https://example.com/a.js", Attrs{}, Events{})
	s2, _ := doc.InjectScript("https://example.com/b.js", Attrs{}, Events{})

	if got := len(doc.Scripts()); got != 2 {
		t.Fatalf("Expected 2 scripts, got %d", got)
	}

	s1.Remove()
	if s1.Attached() {
		t.Error("Expected removed script to be detached")
	}

	rest := doc.Scripts()
	if len(rest) != 1 || rest[0].Src() != s2.Src() {
		t.Errorf("Expected only the second script to remain, got %d", len(rest))
	}

	// Second removal is a no-op.
	s1.Remove()
	if got := len(doc.Scripts()); got != 1 {
		t.Errorf("Expected 1 script after repeated removal, got %d", got)
	}
}

func TestSim_Callbacks(t *testing.T) {
	doc := NewSim(nil)

	count := 0
	doc.RegisterCallback("cb", func() { count++ })

	if !doc.InvokeCallback("cb") {
		t.Error("Expected InvokeCallback to find 'cb'")
	}
	if count != 1 {
		t.Errorf("Expected callback to run once, ran %d times", count)
	}

	doc.DeleteCallback("cb")
	if doc.InvokeCallback("cb") {
		t.Error("Expected InvokeCallback to miss after deletion")
	}

	// A callback may re-enter the document without deadlocking.
	doc.RegisterCallback("reenter", func() {
		doc.SetGlobal("touched", true)
		doc.DeleteCallback("reenter")
	})
	if !doc.InvokeCallback("reenter") {
		t.Fatal("Expected re-entrant callback to run")
	}
	if _, ok := doc.Global("touched"); !ok {
		t.Error("Expected re-entrant callback to mutate globals")
	}
}
