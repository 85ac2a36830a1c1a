package tester

import (
	"strings"
	"time"

	"github.com/simonvetter/modbus"
)

// Fixed link parameters for the bench setup: the slave firmware is
// built for 9600 8N1 and answers well within two seconds.
const (
	LinkSpeed    uint = 9600
	LinkDataBits uint = 8
	LinkStopBits uint = 1
	LinkTimeout       = 2 * time.Second
)

// Client is the capability the test script needs from the modbus
// stack: open and close the link, read holding registers and write a
// single one. Protocol-level slave error responses come back as the
// stack's sentinel modbus.Error values, transport faults as anything
// else.
type Client interface {
	Open() error
	Close() error
	ReadRegisters(addr uint16, quantity uint16) ([]uint16, error)
	WriteRegister(addr uint16, value uint16) error
}

// NewClient returns a Client bound to the given target, talking to
// the given slave address.
func NewClient(url string, slaveAddr uint8) (Client, error) {
	return newClient(url, slaveAddr)
}

// allow tests to substitute the modbus client
var newClient = func(url string, slaveAddr uint8) (Client, error) {
	mc, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      url,
		Speed:    LinkSpeed,
		DataBits: LinkDataBits,
		Parity:   modbus.PARITY_NONE,
		StopBits: LinkStopBits,
		Timeout:  LinkTimeout,
	})
	if err != nil {
		return nil, err
	}
	mc.SetUnitId(slaveAddr)

	return &clientAdapter{mc: mc}, nil
}

type clientAdapter struct {
	mc *modbus.ModbusClient
}

func (c *clientAdapter) Open() error  { return c.mc.Open() }
func (c *clientAdapter) Close() error { return c.mc.Close() }

func (c *clientAdapter) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	return c.mc.ReadRegisters(addr, quantity, modbus.HOLDING_REGISTER)
}

func (c *clientAdapter) WriteRegister(addr uint16, value uint16) error {
	return c.mc.WriteRegister(addr, value)
}

// TargetURL turns a serial device path into a client URL. Arguments
// already carrying a scheme (rtu://, tcp://) pass through untouched,
// which lets the tester run against the simulator over TCP.
func TargetURL(port string) string {
	if strings.Contains(port, "://") {
		return port
	}

	return "rtu://" + port
}
