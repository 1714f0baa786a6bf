package updi

import (
	"fmt"

	"github.com/golang/glog"

	"upditerm/protocol"
)

// VirtualPort is the probe end of the virtual UART: a UPDI link plus the
// handshake for one register layout
type VirtualPort struct {
	link *Link
	peer protocol.Peer
}

// NewVirtualPort attaches to the virtual UART behind link, optionally
// resetting the target first
func NewVirtualPort(link *Link, variant protocol.Variant, reset bool) (*VirtualPort, error) {
	layout, err := protocol.NewLayout(variant)
	if err != nil {
		return nil, err
	}
	p := &VirtualPort{
		link: link,
		peer: layout.Peer(link),
	}
	if reset {
		if err := link.Reset(); err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}
	}
	if err := p.peer.Attach(); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	glog.V(1).Infof("updi: attached to %s virtual UART", variant)
	return p, nil
}

// Link returns the underlying UPDI link
func (p *VirtualPort) Link() *Link {
	return p.link
}

// TrySend hands b to the target if its receive slot is free
func (p *VirtualPort) TrySend(b byte) (bool, error) {
	return p.peer.TrySend(b)
}

// TryRecv takes a byte from the target if one is waiting
func (p *VirtualPort) TryRecv() (byte, bool, error) {
	return p.peer.TryRecv()
}

// Status reads the channel flags
func (p *VirtualPort) Status() (protocol.Status, error) {
	return p.peer.Status()
}

// Reset restarts the target and re-enables the channel, which the
// reset cleared
func (p *VirtualPort) Reset() error {
	if err := p.link.Reset(); err != nil {
		return err
	}
	return p.peer.Attach()
}

// Close detaches and shuts the link down
func (p *VirtualPort) Close() error {
	err := p.peer.Detach()
	if cerr := p.link.Close(); err == nil {
		err = cerr
	}
	return err
}
