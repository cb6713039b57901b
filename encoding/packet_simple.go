package encoding

// emptyPacket is the shared shape of the three packet types whose fixed
// header is the entire packet: PINGREQ, PINGRESP, DISCONNECT.
type emptyPacket struct{}

func (emptyPacket) encodedLength() int          { return 0 }
func (emptyPacket) encodeBody(w byteWriter) error { return nil }

// PingreqPacket is a keep-alive ping from client to server (spec.md §4.11).
type PingreqPacket struct{ emptyPacket }

func (p *PingreqPacket) Type() PacketType { return PINGREQ }

// PingrespPacket answers a PINGREQ (spec.md §4.11).
type PingrespPacket struct{ emptyPacket }

func (p *PingrespPacket) Type() PacketType { return PINGRESP }

// DisconnectPacket is a clean, voluntary connection close (spec.md §4.12).
type DisconnectPacket struct{ emptyPacket }

func (p *DisconnectPacket) Type() PacketType { return DISCONNECT }

func decodeEmptyBody(c *Cursor, pt PacketType, fh FixedHeader) (emptyPacket, error) {
	if fh.RemainingLength != 0 {
		return emptyPacket{}, decodeErr(pt, "remaining_length", ErrRemainingLengthMismatch)
	}
	return emptyPacket{}, nil
}
