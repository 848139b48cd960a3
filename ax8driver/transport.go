package ax8driver

import (
	"encoding/binary"
	"net"
	"strconv"
	"time"

	"github.com/goburrow/modbus"
	"github.com/womat/debug"
)

const (
	MODBUS_PORT = 502
)

var (
	MODBUS_TIMEOUT      = 5 * time.Second
	MODBUS_IDLE_TIMEOUT = 60 * time.Second
)

// Transport reads and writes 16-bit holding registers on a Modbus unit.
type Transport interface {
	ReadHoldingRegisters(unitID byte, address, quantity uint16) ([]uint16, error)
	WriteMultipleRegisters(unitID byte, address uint16, values []uint16) error
	Close() error
}

// TransportConfig locates the camera's Modbus TCP server.
type TransportConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Timeout     time.Duration `yaml:"timeout"`
	IdleTimeout time.Duration `yaml:"idletimeout"`
}

// Address returns host:port, using the standard Modbus port when unset.
func (c TransportConfig) Address() string {
	port := c.Port
	if port == 0 {
		port = MODBUS_PORT
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// ModbusTransport is a Transport over a single Modbus TCP connection.
// The connection is reopened on demand after an idle close.
type ModbusTransport struct {
	address string
	handler *modbus.TCPClientHandler
	client  modbus.Client
	closed  bool
}

// DialModbus connects to the camera.
func DialModbus(cfg TransportConfig) (*ModbusTransport, error) {
	handler := modbus.NewTCPClientHandler(cfg.Address())
	handler.Timeout = MODBUS_TIMEOUT
	if cfg.Timeout > 0 {
		handler.Timeout = cfg.Timeout
	}
	handler.IdleTimeout = MODBUS_IDLE_TIMEOUT
	if cfg.IdleTimeout > 0 {
		handler.IdleTimeout = cfg.IdleTimeout
	}
	handler.Logger = debug.TraceLog

	if err := handler.Connect(); err != nil {
		return nil, &ConnectionError{Address: cfg.Address(), Err: err}
	}
	debug.DebugLog.Printf("Connected to modbus tcp server at %s", cfg.Address())
	return newModbusTransport(cfg.Address(), handler, modbus.NewClient(handler)), nil
}

func newModbusTransport(address string, handler *modbus.TCPClientHandler, client modbus.Client) *ModbusTransport {
	return &ModbusTransport{
		address: address,
		handler: handler,
		client:  client,
	}
}

// Address returns the host:port the transport talks to.
func (t *ModbusTransport) Address() string {
	return t.address
}

func (t *ModbusTransport) ReadHoldingRegisters(unitID byte, address, quantity uint16) ([]uint16, error) {
	if t.closed {
		return nil, &TransportError{Op: "read", UnitID: unitID, Address: address, Quantity: int(quantity), Err: ErrClosed}
	}
	t.handler.SlaveId = unitID
	results, err := t.client.ReadHoldingRegisters(address, quantity)
	if err == nil && len(results) != 2*int(quantity) {
		err = &CodecError{Message: "odd register response length " + strconv.Itoa(len(results))}
	}
	if err != nil {
		return nil, &TransportError{Op: "read", UnitID: unitID, Address: address, Quantity: int(quantity), Err: err}
	}
	return bytesToWords(results), nil
}

func (t *ModbusTransport) WriteMultipleRegisters(unitID byte, address uint16, values []uint16) error {
	if t.closed {
		return &TransportError{Op: "write", UnitID: unitID, Address: address, Quantity: len(values), Err: ErrClosed}
	}
	t.handler.SlaveId = unitID
	_, err := t.client.WriteMultipleRegisters(address, uint16(len(values)), wordsToBytes(values))
	if err != nil {
		return &TransportError{Op: "write", UnitID: unitID, Address: address, Quantity: len(values), Err: err}
	}
	return nil
}

// Close closes the connection. Further calls fail with ErrClosed.
func (t *ModbusTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.handler.Close()
}

func bytesToWords(b []byte) []uint16 {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return words
}

func wordsToBytes(words []uint16) []byte {
	b := make([]byte, 2*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(b[2*i:], w)
	}
	return b
}
