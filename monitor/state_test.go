package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"modbus-rtu-tools/recorder"
)

func poll10(seq uint16) []uint16 {
	return []uint16{seq, 31337, 17, 101, 102, 103, 104, 105, 106, 107}
}

func TestUpdateFromPollStampsOnlyChangedRegisters(t *testing.T) {
	s := NewState(nil)

	t0 := time.Now()
	s.UpdateFromPoll(poll10(1), t0)

	t1 := t0.Add(time.Second)
	s.UpdateFromPoll(poll10(2), t1)

	_, lastChange, _, _ := s.Snapshot()
	if got, ok := lastChange[0]; !ok || !got.Equal(t1) {
		t.Errorf("expected register 0 stamped at %v, got %v (ok=%v)", t1, got, ok)
	}
	for addr := uint16(1); addr < 10; addr++ {
		if _, ok := lastChange[addr]; ok {
			t.Errorf("register %d did not change but was stamped", addr)
		}
	}
}

func TestFirstPollDoesNotEmitChanges(t *testing.T) {
	events := make(chan recorder.Event, 10)
	s := NewState(events)

	s.UpdateFromPoll(poll10(5), time.Now())
	if len(events) != 0 {
		t.Errorf("the first poll should not emit change events, got %d", len(events))
	}

	s.UpdateFromPoll(poll10(6), time.Now())
	if len(events) != 1 {
		t.Fatalf("expected 1 change event, got %d", len(events))
	}
	ev := <-events
	if ev.Address != 0 || ev.Old != 5 || ev.New != 6 || ev.Label != "Sequential Counter" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestSnapshotReturnsCopies(t *testing.T) {
	s := NewState(nil)
	s.UpdateFromPoll(poll10(1), time.Now())

	current, _, _, _ := s.Snapshot()
	current[0] = 9999

	fresh, _, _, _ := s.Snapshot()
	if fresh[0] == 9999 {
		t.Errorf("mutating a snapshot must not affect the state")
	}
}

func TestEventLogIsBounded(t *testing.T) {
	s := NewState(nil)
	for i := 0; i < maxEvents+50; i++ {
		s.AppendEvent("line")
	}
	_, _, _, events := s.Snapshot()
	if len(events) != maxEvents {
		t.Errorf("expected the event log capped at %d lines, got %d", maxEvents, len(events))
	}
}

// pollClient answers every read with a fresh snapshot, failing the
// first open when told to.
type pollClient struct {
	mu        sync.Mutex
	openCalls int
	reads     int
	closed    int
	failOpens int
}

func (c *pollClient) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openCalls++
	if c.openCalls <= c.failOpens {
		return errors.New("open /dev/ttyUSB0: permission denied")
	}
	return nil
}

func (c *pollClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *pollClient) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return poll10(uint16(c.reads)), nil
}

func (c *pollClient) WriteRegister(addr uint16, value uint16) error { return nil }

func TestPollUpdatesStateUntilCancelled(t *testing.T) {
	s := NewState(nil)
	client := &pollClient{}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go Poll(ctx, &wg, s, client, time.Millisecond)

	deadline := time.After(2 * time.Second)
	for s.PollCount.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("poll loop made no progress, polls: %d", s.PollCount.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	wg.Wait()

	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed == 0 {
		t.Errorf("expected the client to be closed on shutdown")
	}

	current, _, _, _ := s.Snapshot()
	if current[1] != 31337 {
		t.Errorf("expected register 1 to carry the polled value, got %d", current[1])
	}
}
