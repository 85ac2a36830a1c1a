// Package slavesim reproduces the register map of the ESP32-S3 slave
// device in software, so the tester and monitor can be exercised on a
// bench with no hardware attached.
package slavesim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/atomic"
)

const (
	// HoldingRegCount is the number of holding registers the device
	// exposes.
	HoldingRegCount = 10

	randomUpdatePeriod  = 5 * time.Second
	counterUpdatePeriod = time.Second
)

// Stats mirrors the request counters the device firmware keeps and
// prints on its status line.
type Stats struct {
	TotalRequests uint64
	ReadRequests  uint64
	WriteRequests uint64
	UptimeSeconds uint64
}

// Handler implements modbus.RequestHandler with the device's holding
// register map:
//
//   - register 0: sequential counter, advanced after every holding
//     register access starting at address 0,
//   - register 1: random number, re-rolled every 5s,
//   - register 2: second counter, wrapping at 65535,
//   - registers 3-9: general purpose.
//
// Handler methods are called from one goroutine per client, so all
// register state is guarded by the lock.
type Handler struct {
	lock   sync.RWMutex
	regs   [HoldingRegCount]uint16
	unitId uint8

	totalRequests *atomic.Uint64
	readRequests  *atomic.Uint64
	writeRequests *atomic.Uint64
	uptimeSeconds *atomic.Uint64
}

// NewHandler returns a handler answering for the given unit id, with
// the general purpose registers carrying their power-on test values.
func NewHandler(unitId uint8) *Handler {
	h := &Handler{
		unitId:        unitId,
		totalRequests: atomic.NewUint64(0),
		readRequests:  atomic.NewUint64(0),
		writeRequests: atomic.NewUint64(0),
		uptimeSeconds: atomic.NewUint64(0),
	}

	h.regs[1] = uint16(rand.Intn(0x10000))
	for i := 2; i < HoldingRegCount; i++ {
		h.regs[i] = uint16(100 + i - 2)
	}

	return h
}

// Run drives the background updaters until ctx is cancelled: the
// random number every 5s, the second counter and uptime every second.
func (h *Handler) Run(ctx context.Context) {
	randTicker := time.NewTicker(randomUpdatePeriod)
	secTicker := time.NewTicker(counterUpdatePeriod)
	defer randTicker.Stop()
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-randTicker.C:
			h.RollRandom()
		case <-secTicker.C:
			h.TickSecond()
			h.uptimeSeconds.Inc()
		}
	}
}

// RollRandom replaces the register 1 random number.
func (h *Handler) RollRandom() {
	h.lock.Lock()
	h.regs[1] = uint16(rand.Intn(0x10000))
	h.lock.Unlock()
}

// TickSecond advances the register 2 second counter, wrapping back to
// zero past 65535.
func (h *Handler) TickSecond() {
	h.lock.Lock()
	if h.regs[2] >= 0xffff {
		h.regs[2] = 0
	} else {
		h.regs[2]++
	}
	h.lock.Unlock()
}

// Stats returns the request counters accumulated so far.
func (h *Handler) Stats() Stats {
	return Stats{
		TotalRequests: h.totalRequests.Load(),
		ReadRequests:  h.readRequests.Load(),
		WriteRequests: h.writeRequests.Load(),
		UptimeSeconds: h.uptimeSeconds.Load(),
	}
}

// Snapshot returns a copy of the current register values.
func (h *Handler) Snapshot() []uint16 {
	h.lock.RLock()
	defer h.lock.RUnlock()

	out := make([]uint16, HoldingRegCount)
	copy(out, h.regs[:])
	return out
}

// HandleHoldingRegisters services read holding registers (0x03),
// write single register (0x06) and write multiple registers (0x10)
// requests.
func (h *Handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) (res []uint16, err error) {
	if req.UnitId != h.unitId {
		// the device answers only its configured slave address
		return nil, modbus.ErrIllegalFunction
	}
	if int(req.Addr)+int(req.Quantity) > HoldingRegCount {
		return nil, modbus.ErrIllegalDataAddress
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	h.totalRequests.Inc()
	if req.IsWrite {
		h.writeRequests.Inc()
		copy(h.regs[req.Addr:int(req.Addr)+int(req.Quantity)], req.Args)
	} else {
		h.readRequests.Inc()
		res = make([]uint16, req.Quantity)
		copy(res, h.regs[req.Addr:int(req.Addr)+int(req.Quantity)])
	}

	// the sequential counter advances after any access starting at
	// register 0: reads return the pre-increment value and a
	// just-written 999 reads back as 1000
	if req.Addr == 0 {
		h.regs[0]++
	}

	return res, nil
}

// Only holding registers exist on this device.

func (h *Handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *Handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *Handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}
