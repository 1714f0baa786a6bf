// Package shell is an interactive register shell for poking at a target
// and its virtual UART by hand.
package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"upditerm/host/updi"
	"upditerm/protocol"
)

// Device is a target the shell can drive: a data-space bus that can be
// reset. A UPDI link and a simulated target both qualify.
type Device interface {
	protocol.Bus
	Reset() error
}

// ControlSpace is implemented by devices with UPDI control/status
// registers, activation keys and a System Information Block
type ControlSpace interface {
	LoadCS(addr uint8) (uint8, error)
	StoreCS(addr, value uint8) error
	SIB() (string, error)
	Key(key string) error
	MessagePending() (bool, error)
}

// keys maps the names accepted by the key command to activation keys
var keys = map[string]string{
	"nvmprog":   updi.KeyNVMProg,
	"chiperase": updi.KeyChipErase,
	"userrow":   updi.KeyUserRow,
	"ocd":       updi.KeyOCD,
}

// ErrNoControlSpace is returned for UPDI-only commands on a simulated target
var ErrNoControlSpace = errors.New("device has no UPDI control space")

const (
	shellKey = "$shell"
	prompt   = "updi> "

	sendTimeout = 100 * time.Millisecond
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Shell *ishell.Shell

	dev  Device
	peer protocol.Peer
}

// New creates a shell over dev using the given virtual UART layout
func New(dev Device, variant protocol.Variant) (*Shell, error) {
	s, err := newShell(dev, variant)
	if err != nil {
		return nil, err
	}
	s.Shell = ishell.New()
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range s.commands() {
		s.Shell.AddCmd(cmd)
	}
	return s, nil
}

func newShell(dev Device, variant protocol.Variant) (*Shell, error) {
	layout, err := protocol.NewLayout(variant)
	if err != nil {
		return nil, err
	}
	return &Shell{dev: dev, peer: layout.Peer(dev)}, nil
}

// Run runs one command given as args, or the interactive loop without args
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	s.Shell.Run()
	return nil
}

// command adapts a handler returning text to an ishell command
func command(name, help string, fn func(s *Shell, args []string) (string, error)) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: help,
		Func: func(c *ishell.Context) {
			s := c.Get(shellKey).(*Shell)
			out, err := fn(s, c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if out != "" {
				c.Println(out)
			}
		},
	}
}

func (s *Shell) commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		command("sib", "show the System Information Block", (*Shell).sib),
		command("ldcs", "ADDR: read a UPDI control/status register", (*Shell).ldcs),
		command("stcs", "ADDR VALUE: write a UPDI control/status register", (*Shell).stcs),
		command("key", "NAME: send an activation key (nvmprog, chiperase, userrow, ocd)", (*Shell).key),
		command("ocdmv", "show whether an OCD message is waiting", (*Shell).ocdmv),
		command("lds", "ADDR [COUNT]: read the data space", (*Shell).lds),
		command("sts", "ADDR VALUE: write the data space", (*Shell).sts),
		command("reset", "reset the target", (*Shell).reset),
		command("attach", "enable the virtual UART", (*Shell).attach),
		command("detach", "disable the virtual UART", (*Shell).detach),
		command("status", "show the virtual UART flags", (*Shell).status),
		command("send", "TEXT...: send text to the target", (*Shell).send),
		command("recv", "show pending target output", (*Shell).recv),
	}
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func needArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func (s *Shell) controlSpace() (ControlSpace, error) {
	cs, ok := s.dev.(ControlSpace)
	if !ok {
		return nil, ErrNoControlSpace
	}
	return cs, nil
}

func (s *Shell) sib(args []string) (string, error) {
	cs, err := s.controlSpace()
	if err != nil {
		return "", err
	}
	return cs.SIB()
}

func (s *Shell) ldcs(args []string) (string, error) {
	if err := needArgs(args, 1, "ldcs ADDR"); err != nil {
		return "", err
	}
	cs, err := s.controlSpace()
	if err != nil {
		return "", err
	}
	addr, err := parseUint(args[0], 4)
	if err != nil {
		return "", err
	}
	v, err := cs.LoadCS(uint8(addr))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%02x", v), nil
}

func (s *Shell) stcs(args []string) (string, error) {
	if err := needArgs(args, 2, "stcs ADDR VALUE"); err != nil {
		return "", err
	}
	cs, err := s.controlSpace()
	if err != nil {
		return "", err
	}
	addr, err := parseUint(args[0], 4)
	if err != nil {
		return "", err
	}
	value, err := parseUint(args[1], 8)
	if err != nil {
		return "", err
	}
	return "", cs.StoreCS(uint8(addr), uint8(value))
}

func (s *Shell) key(args []string) (string, error) {
	if err := needArgs(args, 1, "key NAME"); err != nil {
		return "", err
	}
	cs, err := s.controlSpace()
	if err != nil {
		return "", err
	}
	key, ok := keys[strings.ToLower(args[0])]
	if !ok {
		return "", fmt.Errorf("unknown key %q", args[0])
	}
	if err := cs.Key(key); err != nil {
		return "", err
	}
	return fmt.Sprintf("key %q accepted", key), nil
}

// ocdmv reads ASI_OCD_STATUS; the OCD layout sends through this message slot
func (s *Shell) ocdmv(args []string) (string, error) {
	cs, err := s.controlSpace()
	if err != nil {
		return "", err
	}
	pending, err := cs.MessagePending()
	if err != nil {
		return "", err
	}
	if pending {
		return "message pending", nil
	}
	return "no message", nil
}

func (s *Shell) lds(args []string) (string, error) {
	if err := needArgs(args, 1, "lds ADDR [COUNT]"); err != nil {
		return "", err
	}
	addr, err := parseUint(args[0], 16)
	if err != nil {
		return "", err
	}
	count := uint64(1)
	if len(args) > 1 {
		if count, err = parseUint(args[1], 16); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for i := uint64(0); i < count; i++ {
		a := uint16(addr + i)
		if i%16 == 0 {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%04x:", a)
		}
		v, err := s.dev.Peek(a)
		if err != nil {
			return b.String(), err
		}
		fmt.Fprintf(&b, " %02x", v)
	}
	return b.String(), nil
}

func (s *Shell) sts(args []string) (string, error) {
	if err := needArgs(args, 2, "sts ADDR VALUE"); err != nil {
		return "", err
	}
	addr, err := parseUint(args[0], 16)
	if err != nil {
		return "", err
	}
	value, err := parseUint(args[1], 8)
	if err != nil {
		return "", err
	}
	return "", s.dev.Poke(uint16(addr), uint8(value))
}

func (s *Shell) reset(args []string) (string, error) {
	return "", s.dev.Reset()
}

func (s *Shell) attach(args []string) (string, error) {
	return "", s.peer.Attach()
}

func (s *Shell) detach(args []string) (string, error) {
	return "", s.peer.Detach()
}

func (s *Shell) status(args []string) (string, error) {
	st, err := s.peer.Status()
	if err != nil {
		return "", err
	}
	return st.String(), nil
}

// send offers each byte until the target takes it or sendTimeout passes
func (s *Shell) send(args []string) (string, error) {
	if err := needArgs(args, 1, "send TEXT..."); err != nil {
		return "", err
	}
	text := strings.Join(args, " ")
	for i := 0; i < len(text); i++ {
		deadline := time.Now().Add(sendTimeout)
		for {
			ok, err := s.peer.TrySend(text[i])
			if err != nil {
				return "", err
			}
			if ok {
				break
			}
			if time.Now().After(deadline) {
				return "", fmt.Errorf("target not reading, sent %d of %d bytes", i, len(text))
			}
			time.Sleep(time.Millisecond)
		}
	}
	return fmt.Sprintf("sent %d bytes", len(text)), nil
}

func (s *Shell) recv(args []string) (string, error) {
	var out []byte
	for {
		b, ok, err := s.peer.TryRecv()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		out = append(out, b)
	}
	return strconv.Quote(string(out)), nil
}
