package protocol

// sharedLayout uses the same register pairs as independentLayout, and
// each direction maintains its own ENABLE bit. RX data only counts as
// present when its flags register equals ENABLE|FULL; a FULL bit left
// behind by a detached probe is ignored.
type sharedLayout struct{}

func (sharedLayout) Variant() Variant { return VariantShared }

func (sharedLayout) Bind(regs RegisterFile) (rx, tx Channel) {
	return bindPair(regs, true)
}

func (sharedLayout) Peer(bus Bus) Peer {
	return &pairPeer{bus: bus, variant: VariantShared}
}
