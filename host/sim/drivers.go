package sim

import (
	"sync/atomic"

	"upditerm/protocol"
)

// Simulated part: an ATtiny1614-sized SRAM at the top of the data space
const (
	RAMStart uint16 = 0x3800
	RAMSize  uint16 = 0x0800
)

// Signature is reported by the simulated chip (ATtiny1614)
var Signature = [3]byte{0x1e, 0x94, 0x22}

// PWM records the LED duty cycle
type PWM struct {
	duty       atomic.Uint32
	configured atomic.Bool
}

func (p *PWM) Configure() error {
	p.configured.Store(true)
	return nil
}

func (p *PWM) SetDuty(percent uint8) error {
	p.duty.Store(uint32(percent))
	return nil
}

// Duty returns the last duty cycle set, in percent
func (p *PWM) Duty() uint8 {
	return uint8(p.duty.Load())
}

// System serves chip information from the simulated memory and turns a
// watchdog reset into a restart of the target
type System struct {
	mem      *protocol.Memory
	watchdog func()
}

func (s *System) Signature() [3]byte {
	return Signature
}

func (s *System) RAM() (start, size uint16) {
	return RAMStart, RAMSize
}

func (s *System) ReadByte(addr uint16) byte {
	b, _ := s.mem.Peek(addr)
	return b
}

func (s *System) WatchdogReset() {
	if s.watchdog != nil {
		s.watchdog()
	}
}
