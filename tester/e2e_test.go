package tester

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/simonvetter/modbus"

	"modbus-rtu-tools/slavesim"
)

func startSimServer(t *testing.T, url string, unitId uint8) *modbus.ModbusServer {
	t.Helper()

	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        url,
		Timeout:    10 * time.Second,
		MaxClients: 2,
	}, slavesim.NewHandler(unitId))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	return server
}

func TestRunAgainstSimulator(t *testing.T) {
	startSimServer(t, "tcp://localhost:5582", 1)

	var out bytes.Buffer
	r := NewRunner("tcp://localhost:5582", 1)
	r.Out = &out
	r.settleDelay = time.Millisecond

	if !r.Run() {
		t.Fatalf("run should have passed, output:\n%s", out.String())
	}
	for _, want := range []string{
		"Sequential Counter",
		"✓ Write SUCCESS!",
		"✓ Register 0 value: 1000",
		"✓ PASS: Sequential counter incremented correctly!",
		"ALL TESTS PASSED",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunAgainstSimulatorWrongSlaveAddress(t *testing.T) {
	startSimServer(t, "tcp://localhost:5583", 1)

	var out bytes.Buffer
	r := NewRunner("tcp://localhost:5583", 9)
	r.Out = &out
	r.settleDelay = time.Millisecond

	if r.Run() {
		t.Fatalf("run should have failed against a foreign slave address")
	}
	if !strings.Contains(out.String(), "✗ Read FAILED") {
		t.Errorf("expected the first read to fail, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Check slave address matches") {
		t.Errorf("expected the troubleshooting checklist, got:\n%s", out.String())
	}
}
