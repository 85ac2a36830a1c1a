// rtu-tester runs a fixed diagnostic sequence against a Modbus RTU
// slave device and exits 0 when every test passed, 1 otherwise.
//
// Usage: rtu-tester [port] [slaveAddress]
//
// port defaults to /dev/ttyUSB0 and may also be a client URL such as
// tcp://localhost:5502 to target the simulator. slaveAddress defaults
// to 1.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"modbus-rtu-tools/tester"
)

const (
	defaultPort      = "/dev/ttyUSB0"
	defaultSlaveAddr = 1
)

func main() {
	port := defaultPort
	slaveAddr := defaultSlaveAddr

	args := os.Args[1:]
	if len(args) > 0 {
		port = args[0]
	}
	if len(args) > 1 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Printf("failed to parse slave address '%s': %v\n", args[1], err)
			os.Exit(1)
		}
		if parsed < 0 || parsed > 0xff {
			fmt.Printf("slave address: value '%v' out of range\n", parsed)
			os.Exit(1)
		}
		slaveAddr = parsed
	}

	fmt.Println("ESP32-S3 Modbus RTU Slave Tester")
	fmt.Println(strings.Repeat("=", 50))

	if !tester.NewRunner(port, uint8(slaveAddr)).Run() {
		fmt.Println("\n" + strings.Repeat("!", 50))
		fmt.Println("TESTS FAILED - Check connections and configuration")
		fmt.Println(strings.Repeat("!", 50))
		os.Exit(1)
	}
}
