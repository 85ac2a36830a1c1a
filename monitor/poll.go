package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"modbus-rtu-tools/tester"
)

const reconnectDelay = 2 * time.Second

// Poll reads holding registers 0-9 from the slave at the given
// interval until ctx is cancelled, feeding results into state. After
// an error the link is closed and reopened.
func Poll(ctx context.Context, wg *sync.WaitGroup, state *State, client tester.Client, interval time.Duration) {
	defer wg.Done()

	opened := false
	defer func() {
		if opened {
			client.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !opened {
			state.SetStatus("Connecting...")
			if err := client.Open(); err != nil {
				state.ErrorCount.Inc()
				state.SetStatus(fmt.Sprintf("Connect failed: %v", err))
				if !sleepCtx(ctx, reconnectDelay) {
					return
				}
				continue
			}
			opened = true
			state.AppendEvent(time.Now().Format("15:04:05.000") + "  link opened")
		}

		values, err := client.ReadRegisters(0, tester.RegisterCount)
		if err != nil {
			state.ErrorCount.Inc()
			state.SetStatus(fmt.Sprintf("Poll failed: %v", err))
			client.Close()
			opened = false
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		state.UpdateFromPoll(values, time.Now())
		state.SetStatus("Polling")
		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

// sleepCtx pauses for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
