// rtu-monitor continuously polls the slave's register map and shows
// it in a terminal UI, optionally recording register changes into a
// SQLite file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"modbus-rtu-tools/monitor"
	"modbus-rtu-tools/recorder"
	"modbus-rtu-tools/tester"
)

func main() {
	port := flag.String("port", "/dev/ttyUSB0", "serial device path or client url (e.g. tcp://localhost:5502)")
	slave := flag.Uint("slave", 1, "slave address to poll")
	interval := flag.Duration("interval", time.Second, "poll interval")
	dbFile := flag.String("db", "", "record register changes into this SQLite file")
	logFile := flag.String("log", "monitor_events.log", "operational log file (stdout belongs to the TUI)")
	flag.Parse()

	if *slave > 0xff {
		fmt.Printf("slave address: value '%v' out of range\n", *slave)
		os.Exit(1)
	}

	lf, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer lf.Close()
	logger := log.New(lf, "", log.LstdFlags|log.Lmicroseconds)

	client, err := tester.NewClient(tester.TargetURL(*port), uint8(*slave))
	if err != nil {
		fmt.Printf("failed to create client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	var eventChan chan recorder.Event
	if *dbFile != "" {
		eventChan = make(chan recorder.Event, 100)
		wg.Add(1)
		go recorder.Writer(ctx, &wg, *dbFile, eventChan, logger)
	}

	state := monitor.NewState(eventChan)

	wg.Add(1)
	go monitor.Poll(ctx, &wg, state, client, *interval)

	p := tea.NewProgram(monitor.NewModel(state, *port), tea.WithAltScreen())

	// when the TUI exits for any reason, trigger the shutdown
	go func() {
		if _, err := p.Run(); err != nil {
			log.Fatalf("tui error: %v", err)
		}
		cancel()
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-shutdownChan:
		logger.Println("shutdown signal received")
		p.Quit()
		cancel()
	case <-ctx.Done():
		logger.Println("tui exited, shutting down")
	}

	wg.Wait()
	if eventChan != nil {
		close(eventChan)
	}
	logger.Println("monitor stopped")
}
