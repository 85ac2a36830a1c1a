// Package monitor continuously polls the slave's register map and
// presents it in a terminal UI, optionally recording every register
// change.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"modbus-rtu-tools/recorder"
	"modbus-rtu-tools/tester"
)

const maxEvents = 200

// State holds the live data shared between the poll loop and the TUI.
// The TUI only ever sees copies taken under the lock.
type State struct {
	mu         sync.Mutex
	current    map[uint16]uint16
	previous   map[uint16]uint16
	lastChange map[uint16]time.Time
	status     string
	events     []string

	PollCount  *atomic.Uint64
	ErrorCount *atomic.Uint64

	// eventChan feeds the recorder when one is attached; nil otherwise.
	eventChan chan<- recorder.Event
}

func NewState(eventChan chan<- recorder.Event) *State {
	s := &State{
		current:    make(map[uint16]uint16),
		previous:   make(map[uint16]uint16),
		lastChange: make(map[uint16]time.Time),
		status:     "Initializing...",
		PollCount:  atomic.NewUint64(0),
		ErrorCount: atomic.NewUint64(0),
		eventChan:  eventChan,
	}
	for addr := uint16(0); addr < tester.RegisterCount; addr++ {
		s.current[addr] = 0
		s.previous[addr] = 0
	}
	return s
}

// UpdateFromPoll stores a fresh register snapshot, stamping every
// register whose value moved and emitting a change event for it.
func (s *State) UpdateFromPoll(values []uint16, when time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := s.PollCount.Load() == 0
	for i, v := range values {
		addr := uint16(i)
		prev := s.current[addr]
		s.previous[addr] = prev
		s.current[addr] = v

		if first || prev == v {
			continue
		}
		s.lastChange[addr] = when
		s.appendEventLocked(fmt.Sprintf("%s  reg %d (%s): %d -> %d",
			when.Format("15:04:05.000"), addr, tester.RegisterLabel(i), prev, v))
		if s.eventChan != nil {
			select {
			case s.eventChan <- recorder.Event{
				Timestamp: when,
				Address:   addr,
				Label:     tester.RegisterLabel(i),
				Old:       prev,
				New:       v,
			}:
			default:
				// the recorder is falling behind, drop rather than
				// stall the poll loop
			}
		}
	}
	s.PollCount.Inc()
}

// SetStatus replaces the status line shown by the TUI.
func (s *State) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// AppendEvent adds a line to the event log.
func (s *State) AppendEvent(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendEventLocked(line)
}

func (s *State) appendEventLocked(line string) {
	s.events = append(s.events, line)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// Snapshot returns copies of the live data for rendering.
func (s *State) Snapshot() (current map[uint16]uint16, lastChange map[uint16]time.Time, status string, events []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current = make(map[uint16]uint16, len(s.current))
	for k, v := range s.current {
		current[k] = v
	}
	lastChange = make(map[uint16]time.Time, len(s.lastChange))
	for k, v := range s.lastChange {
		lastChange[k] = v
	}
	events = make([]string, len(s.events))
	copy(events, s.events)

	return current, lastChange, s.status, events
}
