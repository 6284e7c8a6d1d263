package safety

// Frame is a single CAN message as seen by the safety engine: the segment
// it arrived on (or is destined for), its arbitration identifier and its
// payload. The engine never mutates a frame.
type Frame struct {
	Bus  uint8
	ID   uint32
	Data []byte
}

// Byte returns payload byte i, or zero when the payload is shorter.
// Out-of-range reads decode as zero rather than faulting so that a
// truncated frame can never crash the engine.
func (f Frame) Byte(i int) byte {
	if i < 0 || i >= len(f.Data) {
		return 0
	}
	return f.Data[i]
}

// Bit returns payload bit n using big-endian bit numbering: bit 0 is the
// most significant bit of byte 0. This is the numbering the profile decode
// tables are written in.
func (f Frame) Bit(n int) bool {
	if n < 0 {
		return false
	}
	return f.Byte(n/8)>>(7-uint(n)%8)&1 == 1
}

// BitField extracts an unsigned big-endian bit field of the given width
// starting at bit position start. Width must be at most 32.
func (f Frame) BitField(start, width int) uint32 {
	var v uint32
	for i := 0; i < width; i++ {
		v <<= 1
		if f.Bit(start + i) {
			v |= 1
		}
	}
	return v
}

// SignedBitField extracts a two's-complement big-endian bit field.
func (f Frame) SignedBitField(start, width int) int32 {
	v := f.BitField(start, width)
	if width > 0 && width < 32 && v&(1<<uint(width-1)) != 0 {
		v |= ^uint32(0) << uint(width)
	}
	return int32(v)
}

// BEUint16 returns the big-endian 16-bit value starting at byte i.
func (f Frame) BEUint16(i int) uint16 {
	return uint16(f.Byte(i))<<8 | uint16(f.Byte(i+1))
}
