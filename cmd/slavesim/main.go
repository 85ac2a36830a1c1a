// slavesim serves the simulated slave device over modbus, so the
// tester and monitor can be exercised without hardware.
//
// run with: go run ./cmd/slavesim, then in another terminal:
// rtu-tester tcp://localhost:5502
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simonvetter/modbus"

	"modbus-rtu-tools/slavesim"
	"modbus-rtu-tools/version"
)

func main() {
	listen := flag.String("listen", "tcp://localhost:5502", "url to serve on (e.g. tcp://[::]:5502)")
	unitId := flag.Uint("unit-id", 1, "unit/slave id to answer for")
	flag.Parse()

	if *unitId > 0xff {
		fmt.Printf("unit id: value '%v' out of range\n", *unitId)
		os.Exit(1)
	}

	handler := slavesim.NewHandler(uint8(*unitId))

	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        *listen,
		Timeout:    30 * time.Second,
		MaxClients: 5,
	}, handler)
	if err != nil {
		fmt.Printf("failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		fmt.Printf("failed to start server: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go handler.Run(ctx)

	fmt.Printf("slavesim %s listening on %s, unit id %d\n",
		version.Version, *listen, *unitId)
	fmt.Println("registers: 0=Sequential Counter, 1=Random Number, 2=Second Counter, 3-9=General Purpose")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st := handler.Stats()
			fmt.Printf("alive - requests: %d, reads: %d, writes: %d, uptime: %ds\n",
				st.TotalRequests, st.ReadRequests, st.WriteRequests, st.UptimeSeconds)

		case <-sigChan:
			fmt.Println("shutting down")
			cancel()
			server.Stop()
			return
		}
	}
}
