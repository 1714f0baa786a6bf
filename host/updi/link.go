// Package updi talks to an AVR over its one-wire UPDI debug interface,
// using a serial adapter whose TX and RX are tied together.
package updi

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"upditerm/host/serial"
)

// Line characters
const (
	SYNCH = 0x55
	ACK   = 0x40
	BREAK = 0x00
)

// Instructions
const (
	opLDS  = 0x00
	opSTS  = 0x40
	opLDCS = 0x80
	opSTCS = 0xc0
	opKEY  = 0xe0

	sizeByte = 0 << 2 // one-byte address
	sizeWord = 1 << 2 // two-byte address
	keySIB   = opKEY | 1<<2 | 2
)

// Control/status registers
const (
	RegCTRLB        = 0x3
	RegASIOCDStatus = 0x5
	RegASIKeyStatus = 0x7
	RegASIResetReq  = 0x8
	RegASICtrlA     = 0x9
	RegASISysStatus = 0xb

	CTRLBUPDIDIS  = 0x04
	CTRLBCCDETDIS = 0x08

	OCDStatusOCDMV = 0x10

	ResetRequest = 0x59
	ResetRun     = 0x00

	CtrlAUPDICLKSEL16 = 0x01

	SysStatusLOCKSTATUS = 0x01
)

// Keys, as written in the datasheet. They go out on the wire reversed.
const (
	KeyNVMProg   = "NVMProg "
	KeyChipErase = "NVMErase"
	KeyUserRow   = "NVMUs&te"
	KeyOCD       = "OCD     "
)

const (
	// MaxInitBaud is the fastest speed the UPDI accepts before switching
	// to its 16 MHz clock
	MaxInitBaud = 115200
	// BreakBaud stretches a 0x00 character into a BREAK (10 bits = 33 ms)
	BreakBaud = 300
	// DefaultBaud is the speed used when none is given
	DefaultBaud = 921600

	readTimeout = time.Second
	sibSize     = 32
)

// Link is an open UPDI connection. It implements protocol.Bus.
// All methods are safe for concurrent use; each instruction runs under
// the link lock.
type Link struct {
	mu     sync.Mutex
	port   serial.Port
	baud   int
	trace  bool
	closed bool
}

// Options tweak a link
type Options struct {
	// Trace logs every byte sent and received
	Trace bool
}

// Open opens device as a UPDI line (8E2) and brings the link up at baud
func Open(device string, baud int, backend serial.Backend, opts Options) (*Link, error) {
	cfg := serial.DefaultConfig(device)
	cfg.Baud = min(baud, MaxInitBaud)
	cfg.Parity = serial.ParityEven
	cfg.StopBits = serial.TwoStopBits
	cfg.ReadTimeout = int(readTimeout / time.Millisecond)
	cfg.Backend = backend

	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot open serial port: %w", err)
	}
	link, err := NewLink(port, baud, opts)
	if err != nil {
		port.Close()
		return nil, err
	}
	return link, nil
}

// NewLink initialises UPDI over an already open 8E2 port running at
// min(baud, MaxInitBaud). The port is switched to baud when that is faster.
func NewLink(port serial.Port, baud int, opts Options) (*Link, error) {
	l := &Link{
		port:  port,
		baud:  min(baud, MaxInitBaud),
		trace: opts.Trace,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop whatever the line collected before us, or the echo check trips on it
	if err := l.port.Flush(); err != nil {
		return nil, err
	}
	// Two BREAKs reset the UPDI receiver whatever state it is in
	for i := 0; i < 2; i++ {
		if err := l.sendBreak(); err != nil {
			return nil, err
		}
	}
	// Contention detection trips on the echo of our own bytes
	if err := l.stcs(RegCTRLB, CTRLBCCDETDIS); err != nil {
		return nil, err
	}
	if baud > MaxInitBaud {
		if err := l.stcs(RegASICtrlA, CtrlAUPDICLKSEL16); err != nil {
			return nil, err
		}
		if err := l.port.SetBaud(baud); err != nil {
			return nil, err
		}
		l.baud = baud
	}
	glog.V(1).Infof("updi: link up at %d baud", l.baud)
	return l, nil
}

// Baud returns the current line speed
func (l *Link) Baud() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baud
}

// Close disables UPDI on the target and closes the port
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	err := l.stcs(RegCTRLB, CTRLBUPDIDIS)
	l.closed = true
	if cerr := l.port.Close(); err == nil {
		err = cerr
	}
	return err
}

func (l *Link) send(data []byte) error {
	if l.closed {
		return ErrClosed
	}
	if l.trace {
		glog.Infof("send: % x", data)
	}
	if _, err := l.port.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	// Half duplex: everything sent comes straight back
	echo, err := l.readN(len(data))
	if err != nil || !bytes.Equal(echo, data) {
		return ErrNoEcho
	}
	return nil
}

func (l *Link) recv(n int) ([]byte, error) {
	data, err := l.readN(n)
	if l.trace {
		glog.Infof("recv: % x", data)
	}
	return data, err
}

// readN reads exactly n bytes or fails after the read timeout
func (l *Link) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(readTimeout)
	for got < n {
		m, err := l.port.Read(buf[got:])
		got += m
		if got == n {
			break
		}
		if err != nil || time.Now().After(deadline) {
			return buf[:got], ErrShortRead
		}
		if m == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	return buf, nil
}

func (l *Link) sendBreak() error {
	if err := l.port.SetBaud(BreakBaud); err != nil {
		return err
	}
	if err := l.send([]byte{BREAK}); err != nil {
		return err
	}
	return l.port.SetBaud(l.baud)
}

func (l *Link) instr(data ...byte) error {
	return l.send(append([]byte{SYNCH}, data...))
}

func (l *Link) stcs(addr, value uint8) error {
	if err := l.instr(opSTCS|addr, value); err != nil {
		return &InstructionError{Op: "STCS", Addr: uint16(addr), Err: err}
	}
	return nil
}

func (l *Link) ldcs(addr uint8) (uint8, error) {
	if err := l.instr(opLDCS | addr); err != nil {
		return 0, &InstructionError{Op: "LDCS", Addr: uint16(addr), Err: err}
	}
	data, err := l.recv(1)
	if err != nil {
		return 0, &InstructionError{Op: "LDCS", Addr: uint16(addr), Err: err}
	}
	return data[0], nil
}

// address encodes an LDS/STS address operand
func address(op uint8, addr uint16) []byte {
	if addr <= 0xff {
		return []byte{op | sizeByte, uint8(addr)}
	}
	return []byte{op | sizeWord, uint8(addr), uint8(addr >> 8)}
}

func (l *Link) lds(addr uint16) (uint8, error) {
	if err := l.instr(address(opLDS, addr)...); err != nil {
		return 0, &InstructionError{Op: "LDS", Addr: addr, Err: err}
	}
	data, err := l.recv(1)
	if err != nil {
		return 0, &InstructionError{Op: "LDS", Addr: addr, Err: err}
	}
	return data[0], nil
}

func (l *Link) sts(addr uint16, value uint8) error {
	wrap := func(err error) error {
		return &InstructionError{Op: "STS", Addr: addr, Err: err}
	}
	if err := l.instr(address(opSTS, addr)...); err != nil {
		return wrap(err)
	}
	if err := l.expectACK(); err != nil {
		return wrap(err)
	}
	if err := l.send([]byte{value}); err != nil {
		return wrap(err)
	}
	if err := l.expectACK(); err != nil {
		return wrap(err)
	}
	return nil
}

func (l *Link) expectACK() error {
	data, err := l.recv(1)
	if err != nil {
		return err
	}
	if data[0] != ACK {
		return fmt.Errorf("%w: got 0x%02x", ErrNoAck, data[0])
	}
	return nil
}

// LoadCS reads a UPDI control/status register
func (l *Link) LoadCS(addr uint8) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ldcs(addr)
}

// StoreCS writes a UPDI control/status register
func (l *Link) StoreCS(addr, value uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stcs(addr, value)
}

// Peek reads one byte of the target data space (protocol.Bus)
func (l *Link) Peek(addr uint16) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lds(addr)
}

// Poke writes one byte of the target data space (protocol.Bus)
func (l *Link) Poke(addr uint16, value uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sts(addr, value)
}

// Key sends an activation key and checks that the target took it
func (l *Link) Key(key string) error {
	if len(key) != 8 {
		return fmt.Errorf("key %q: need 8 characters", key)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	data := []byte{opKEY}
	for i := len(key) - 1; i >= 0; i-- {
		data = append(data, key[i])
	}
	if err := l.instr(data...); err != nil {
		return &InstructionError{Op: "KEY", Err: err}
	}
	status, err := l.ldcs(RegASIKeyStatus)
	if err != nil {
		return err
	}
	if status == 0 {
		return fmt.Errorf("%w: %q", ErrKeyRejected, key)
	}
	return nil
}

// SIB reads the 32-byte System Information Block
func (l *Link) SIB() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.instr(keySIB); err != nil {
		return "", &InstructionError{Op: "SIB", Err: err}
	}
	data, err := l.recv(sibSize)
	if err != nil {
		return "", &InstructionError{Op: "SIB", Err: err}
	}
	return strings.TrimRight(string(data), "\x00"), nil
}

// Reset pulses the system reset and waits up to 0.1 s for the device to
// come out of it
func (l *Link) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.stcs(RegASIResetReq, ResetRequest); err != nil {
		return err
	}
	if err := l.stcs(RegASIResetReq, ResetRun); err != nil {
		return err
	}
	// One LDCS is 3 characters of 12 bits
	polls := l.baud / 12 / 3 / 10
	for i := 0; i < polls; i++ {
		status, err := l.ldcs(RegASISysStatus)
		if err != nil {
			return err
		}
		if status&SysStatusLOCKSTATUS == 0 {
			break
		}
	}
	return nil
}

// MessagePending reports ASI_OCD_STATUS.OCDMV: the CPU wrote SYSCFG.OCDM
// and the message has not been read yet
func (l *Link) MessagePending() (bool, error) {
	status, err := l.LoadCS(RegASIOCDStatus)
	if err != nil {
		return false, err
	}
	return status&OCDStatusOCDMV != 0, nil
}
