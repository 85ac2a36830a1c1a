package tester

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// allow tests to override port enumeration
var getPortsList = serial.GetPortsList

// printConnectHints is shown when the serial port cannot be opened at
// all (missing device, permissions). The detected port list saves the
// user a trip to ls /dev.
func printConnectHints(w io.Writer, port string) {
	fmt.Fprintln(w, "ERROR: Failed to connect to serial port")
	fmt.Fprintf(w, "Make sure %s exists and you have permissions\n", port)
	fmt.Fprintln(w, "Try: ls -la /dev/ttyUSB* /dev/ttyACM*")

	ports, err := getPortsList()
	if err != nil || len(ports) == 0 {
		return
	}
	fmt.Fprintln(w, "Serial ports detected on this host:")
	for _, p := range ports {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

// printReadChecklist is shown when the slave answers with an error
// (or not at all) on the very first read: at that point anything from
// wiring to addressing may be wrong.
func printReadChecklist(w io.Writer) {
	fmt.Fprintln(w, "\nTroubleshooting:")
	fmt.Fprintln(w, "1. Check wiring: TX(GPIO17)->DI, RX(GPIO16)->RO, RTS(GPIO18)->DE&RE")
	fmt.Fprintln(w, "2. Verify MAX485 has 5V power")
	fmt.Fprintln(w, "3. Check A/B connections (try swapping if needed)")
	fmt.Fprintln(w, "4. Verify slave is running (check monitor output)")
	fmt.Fprintln(w, "5. Check slave address matches (default is 1)")
}
