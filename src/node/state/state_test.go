package state

import (
	"sync"
	"testing"
)

func TestSetState(t *testing.T) {
	var m Manager

	if m.GetState() != Producing {
		t.Fatalf("zero state should be Producing, not %v", m.GetState())
	}

	m.SetState(Observing)
	if m.GetState() != Observing {
		t.Fatalf("state should be Observing, not %v", m.GetState())
	}

	if Shutdown.String() != "Shutdown" || State(42).String() != "Unknown" {
		t.Fatal("unexpected State strings")
	}
}

func TestGoFuncLimit(t *testing.T) {
	var m Manager

	release := make(chan struct{})
	var started sync.WaitGroup

	for i := 0; i < WGLIMIT; i++ {
		started.Add(1)
		ok := m.GoFunc(func() {
			started.Done()
			<-release
		})
		if !ok {
			t.Fatalf("GoFunc %d should have been launched", i)
		}
	}

	started.Wait()

	if m.GoFunc(func() {}) {
		t.Fatal("GoFunc should refuse beyond WGLIMIT")
	}
	if m.Running() != WGLIMIT {
		t.Fatalf("Running should be %d, not %d", WGLIMIT, m.Running())
	}

	close(release)
	m.WaitRoutines()

	if m.Running() != 0 {
		t.Fatalf("Running should be 0, not %d", m.Running())
	}

	done := make(chan struct{})
	if !m.GoFunc(func() { close(done) }) {
		t.Fatal("GoFunc should launch once routines have returned")
	}
	<-done
	m.WaitRoutines()
}

func TestGoPhaseReserve(t *testing.T) {
	var m Manager

	release := make(chan struct{})
	for i := 0; i < WGLIMIT; i++ {
		if !m.GoFunc(func() { <-release }) {
			t.Fatalf("GoFunc %d should have been launched", i)
		}
	}
	if m.GoFunc(func() {}) {
		t.Fatal("GoFunc pool should be saturated")
	}

	var ran sync.WaitGroup
	for i := 0; i < PHASELIMIT; i++ {
		ran.Add(1)
		if !m.GoPhase(func() {
			ran.Done()
			<-release
		}) {
			t.Fatalf("GoPhase %d should launch while GoFunc is saturated", i)
		}
	}
	ran.Wait()

	if m.GoPhase(func() {}) {
		t.Fatal("GoPhase should refuse beyond PHASELIMIT")
	}
	if m.Running() != WGLIMIT+PHASELIMIT {
		t.Fatalf("Running should be %d, not %d", WGLIMIT+PHASELIMIT, m.Running())
	}

	close(release)
	m.WaitRoutines()

	if m.Running() != 0 {
		t.Fatalf("Running should be 0, not %d", m.Running())
	}
}
