package ax8driver

import (
	"errors"
)

type regOp struct {
	UnitID  byte
	Address uint16
	Values  []uint16
}

// fakeTransport is an in-memory register file. Writes are stored and
// recorded, reads return what was stored or zeros.
type fakeTransport struct {
	registers map[uint16][]uint16
	writes    []regOp
	reads     []regOp
	onRead    func(address, quantity uint16) []uint16
	readErr   error
	// writes fail once this many have succeeded; -1 never fails
	failAfter int
	closed    bool
}

var errFakeDown = errors.New("camera unreachable")

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		registers: map[uint16][]uint16{
			INTERNAL_TEMPERATURE_REG: floatWords(305.5),
		},
		failAfter: -1,
	}
}

func (t *fakeTransport) ReadHoldingRegisters(unitID byte, address, quantity uint16) ([]uint16, error) {
	t.reads = append(t.reads, regOp{UnitID: unitID, Address: address, Values: make([]uint16, quantity)})
	if t.readErr != nil {
		return nil, &TransportError{Op: "read", UnitID: unitID, Address: address, Quantity: int(quantity), Err: t.readErr}
	}
	if t.onRead != nil {
		if words := t.onRead(address, quantity); words != nil {
			return words, nil
		}
	}
	if words, ok := t.registers[address]; ok {
		return append([]uint16(nil), words...), nil
	}
	return make([]uint16, quantity), nil
}

func (t *fakeTransport) WriteMultipleRegisters(unitID byte, address uint16, values []uint16) error {
	if t.failAfter >= 0 && len(t.writes) >= t.failAfter {
		return &TransportError{Op: "write", UnitID: unitID, Address: address, Quantity: len(values), Err: errFakeDown}
	}
	values = append([]uint16(nil), values...)
	t.writes = append(t.writes, regOp{UnitID: unitID, Address: address, Values: values})
	t.registers[address] = values
	return nil
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

// floatWords is the two word high-first form of v.
func floatWords(v float32) []uint16 {
	p, _ := EncodeFloat(float64(v))
	w := p.Value()
	return w[:]
}

// kelvinBlock is a 6 word spot temperature read window holding v at its tail.
func kelvinBlock(v float32) []uint16 {
	p, _ := EncodeFloat(float64(v))
	return p.Words()
}
