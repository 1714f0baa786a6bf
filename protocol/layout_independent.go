package protocol

// Register map shared by the independent and shared layouts
const (
	pairRxFlags = AddrGPIOR0
	pairRx      = AddrGPIOR1
	pairTxFlags = AddrGPIOR2
	pairTx      = AddrGPIOR3
)

// independentLayout: RX and TX each own a flags and a data register.
// The writer sets FULL after storing the payload, the reader clears it.
type independentLayout struct{}

func (independentLayout) Variant() Variant { return VariantIndependent }

func (independentLayout) Bind(regs RegisterFile) (rx, tx Channel) {
	return bindPair(regs, false)
}

func (independentLayout) Peer(bus Bus) Peer {
	return &pairPeer{bus: bus, variant: VariantIndependent}
}

func bindPair(regs RegisterFile, strictRx bool) (rx, tx Channel) {
	rx = &flagChannel{
		flags:  regs.Register(pairRxFlags),
		data:   regs.Register(pairRx),
		strict: strictRx,
	}
	tx = &flagChannel{
		flags: regs.Register(pairTxFlags),
		data:  regs.Register(pairTx),
	}
	return rx, tx
}

// flagChannel is a flags+data register pair
type flagChannel struct {
	flags Register
	data  Register

	// strict requires the flags register to read exactly ENABLE|FULL
	// before a byte counts as present
	strict bool
}

func (c *flagChannel) Enabled() bool {
	return c.flags.HasBits(FlagEnable)
}

func (c *flagChannel) Full() bool {
	if c.strict {
		return c.flags.Get() == FlagEnable|FlagFull
	}
	return c.flags.HasBits(FlagFull)
}

func (c *flagChannel) Load() byte {
	return c.data.Get()
}

func (c *flagChannel) Store(b byte) {
	c.data.Set(b)
}

func (c *flagChannel) MarkFull() {
	c.flags.SetBits(FlagFull)
}

func (c *flagChannel) MarkEmpty() {
	c.flags.ClearBits(FlagFull)
}

// pairPeer is the probe side of the independent and shared layouts
type pairPeer struct {
	bus     Bus
	variant Variant
}

func (p *pairPeer) Attach() error {
	if err := p.bus.Poke(pairRxFlags, FlagEnable); err != nil {
		return err
	}
	return p.bus.Poke(pairTxFlags, FlagEnable)
}

func (p *pairPeer) Detach() error {
	if err := p.bus.Poke(pairTxFlags, 0); err != nil {
		return err
	}
	return p.bus.Poke(pairRxFlags, 0)
}

func (p *pairPeer) TrySend(b byte) (bool, error) {
	flags, err := p.bus.Peek(pairRxFlags)
	if err != nil {
		return false, err
	}
	if flags&FlagFull != 0 {
		return false, nil
	}
	if err := p.bus.Poke(pairRx, b); err != nil {
		return false, err
	}
	if err := p.bus.Poke(pairRxFlags, FlagEnable|FlagFull); err != nil {
		return false, err
	}
	return true, nil
}

func (p *pairPeer) TryRecv() (byte, bool, error) {
	flags, err := p.bus.Peek(pairTxFlags)
	if err != nil || flags&FlagEnable == 0 || flags&FlagFull == 0 {
		return 0, false, err
	}
	b, err := p.bus.Peek(pairTx)
	if err != nil {
		return 0, false, err
	}
	if err := p.bus.Poke(pairTxFlags, FlagEnable); err != nil {
		return 0, false, err
	}
	return b, true, nil
}

func (p *pairPeer) Status() (Status, error) {
	st := Status{Variant: p.variant}
	rx, err := p.bus.Peek(pairRxFlags)
	if err != nil {
		return st, err
	}
	tx, err := p.bus.Peek(pairTxFlags)
	if err != nil {
		return st, err
	}
	st.RxEnabled = rx&FlagEnable != 0
	st.RxFull = rx&FlagFull != 0
	st.TxEnabled = tx&FlagEnable != 0
	st.TxFull = tx&FlagFull != 0
	return st, nil
}
