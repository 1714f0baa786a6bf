package protocol

const (
	ocdFlags = AddrGPIOR0
	ocdRx    = AddrGPIOR1
)

// ocdLayout keeps enable and RX full in one flags register. TX has no
// local full flag: the firmware writes SYSCFG.OCDM once OCDMSTATUS is
// clear, and the probe clears OCDMSTATUS after taking the byte.
type ocdLayout struct{}

func (ocdLayout) Variant() Variant { return VariantOCD }

func (ocdLayout) Bind(regs RegisterFile) (rx, tx Channel) {
	flags := regs.Register(ocdFlags)
	rx = &flagChannel{flags: flags, data: regs.Register(ocdRx)}
	tx = &messageChannel{
		flags:   flags,
		message: regs.Register(AddrOCDM),
		status:  regs.Register(AddrOCDMStatus),
	}
	return rx, tx
}

func (ocdLayout) Peer(bus Bus) Peer {
	return &ocdPeer{bus: bus}
}

// messageChannel sends through the OCD message register.
// The status register is read-only to the firmware.
type messageChannel struct {
	flags   Register
	message Register
	status  Register
}

func (c *messageChannel) Enabled() bool {
	return c.flags.HasBits(FlagEnable)
}

func (c *messageChannel) Full() bool {
	return c.status.HasBits(OCDMStatusPending)
}

func (c *messageChannel) Load() byte {
	return c.message.Get()
}

func (c *messageChannel) Store(b byte) {
	c.message.Set(b)
}

// MarkFull is implicit: the write to OCDM raises the status bit
func (c *messageChannel) MarkFull() {}

// MarkEmpty belongs to the probe
func (c *messageChannel) MarkEmpty() {}

type ocdPeer struct {
	bus Bus
}

func (p *ocdPeer) Attach() error {
	return p.bus.Poke(ocdFlags, FlagEnable)
}

func (p *ocdPeer) Detach() error {
	return p.bus.Poke(ocdFlags, 0)
}

func (p *ocdPeer) TrySend(b byte) (bool, error) {
	flags, err := p.bus.Peek(ocdFlags)
	if err != nil {
		return false, err
	}
	if flags&FlagFull != 0 {
		return false, nil
	}
	if err := p.bus.Poke(ocdRx, b); err != nil {
		return false, err
	}
	if err := p.bus.Poke(ocdFlags, FlagEnable|FlagFull); err != nil {
		return false, err
	}
	return true, nil
}

func (p *ocdPeer) TryRecv() (byte, bool, error) {
	flags, err := p.bus.Peek(ocdFlags)
	if err != nil || flags&FlagEnable == 0 {
		return 0, false, err
	}
	status, err := p.bus.Peek(AddrOCDMStatus)
	if err != nil || status&OCDMStatusPending == 0 {
		return 0, false, err
	}
	b, err := p.bus.Peek(AddrOCDM)
	if err != nil {
		return 0, false, err
	}
	if err := p.bus.Poke(AddrOCDMStatus, 0); err != nil {
		return 0, false, err
	}
	return b, true, nil
}

func (p *ocdPeer) Status() (Status, error) {
	st := Status{Variant: VariantOCD}
	flags, err := p.bus.Peek(ocdFlags)
	if err != nil {
		return st, err
	}
	status, err := p.bus.Peek(AddrOCDMStatus)
	if err != nil {
		return st, err
	}
	st.RxEnabled = flags&FlagEnable != 0
	st.TxEnabled = st.RxEnabled
	st.RxFull = flags&FlagFull != 0
	st.TxFull = status&OCDMStatusPending != 0
	return st, nil
}
