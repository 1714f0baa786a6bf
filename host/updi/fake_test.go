package updi

import (
	"sync"

	"upditerm/protocol"
)

// fakeDevice is a UPDI target behind a half-duplex serial adapter.
// It echoes every byte written and answers instructions from a
// protocol.Memory, so a firmware UART can run against it.
type fakeDevice struct {
	mu sync.Mutex

	mem     *protocol.Memory
	cs      [16]uint8
	sib     string
	keys    []string
	resets  int
	onReset func()

	rx     []byte // bytes waiting for the host
	in     []byte // bytes not yet parsed
	stsTo  int    // address of an STS waiting for its data byte, or -1
	writes [][]byte
	bauds  []int
	closed bool

	noEcho bool
	nack   bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		mem:   protocol.NewMemory(),
		sib:   "tinyAVR P:0D:0-3M2 (01.59B14.0)",
		stsTo: -1,
	}
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(p, d.rx)
	d.rx = d.rx[n:]
	return n, nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, append([]byte(nil), p...))
	if !d.noEcho {
		d.rx = append(d.rx, p...)
	}
	d.in = append(d.in, p...)
	for len(d.in) > 0 && d.step() {
	}
	return len(p), nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rx = nil
	return nil
}

func (d *fakeDevice) SetBaud(baud int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bauds = append(d.bauds, baud)
	return nil
}

func (d *fakeDevice) reply(b ...byte) {
	d.rx = append(d.rx, b...)
}

func (d *fakeDevice) ack() {
	if d.nack {
		d.reply(0x00)
		return
	}
	d.reply(ACK)
}

// step parses one instruction from d.in; false means more bytes are needed
func (d *fakeDevice) step() bool {
	if d.stsTo >= 0 {
		d.mem.Poke(uint16(d.stsTo), d.in[0])
		d.stsTo = -1
		d.in = d.in[1:]
		d.ack()
		return true
	}
	if d.in[0] != SYNCH {
		// BREAK or line noise
		d.in = d.in[1:]
		return true
	}
	if len(d.in) < 2 {
		return false
	}
	op := d.in[1]
	addrLen := 1
	if op&sizeWord != 0 {
		addrLen = 2
	}
	readAddr := func() uint16 {
		if addrLen == 1 {
			return uint16(d.in[2])
		}
		return uint16(d.in[2]) | uint16(d.in[3])<<8
	}

	switch op & 0xe0 {
	case opLDS:
		if len(d.in) < 2+addrLen {
			return false
		}
		v, _ := d.mem.Peek(readAddr())
		d.in = d.in[2+addrLen:]
		d.reply(v)
	case opSTS:
		if len(d.in) < 2+addrLen {
			return false
		}
		d.stsTo = int(readAddr())
		d.in = d.in[2+addrLen:]
		d.ack()
	case opLDCS:
		d.reply(d.cs[op&0x0f])
		d.in = d.in[2:]
	case opSTCS:
		if len(d.in) < 3 {
			return false
		}
		d.stcs(op&0x0f, d.in[2])
		d.in = d.in[3:]
	case opKEY:
		if op == keySIB {
			sib := make([]byte, sibSize)
			copy(sib, d.sib)
			d.reply(sib...)
			d.in = d.in[2:]
			return true
		}
		if len(d.in) < 10 {
			return false
		}
		key := make([]byte, 8)
		for i := range key {
			key[i] = d.in[9-i]
		}
		d.keys = append(d.keys, string(key))
		switch string(key) {
		case KeyNVMProg, KeyChipErase, KeyUserRow, KeyOCD:
			d.cs[RegASIKeyStatus] |= 0x10
		}
		d.in = d.in[10:]
	default:
		d.in = d.in[2:]
	}
	return true
}

func (d *fakeDevice) stcs(addr, value uint8) {
	d.cs[addr] = value
	if addr == RegASIResetReq && value == ResetRequest {
		d.resets++
		d.mem.Reset()
		if d.onReset != nil {
			d.onReset()
		}
	}
}

func (d *fakeDevice) written() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.writes...)
}

func (d *fakeDevice) clearWrites() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = nil
}
