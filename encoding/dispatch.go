package encoding

import "bytes"

// Packet is the sum type over the fourteen MQTT 3.1.1 control packet
// variants (spec.md §9). Decode returns one of the concrete *XxxPacket
// types below as a Packet; callers recover the concrete type with a type
// switch, the dispatch mechanism spec.md §9 calls out by name over a
// closed set of alternatives.
type Packet interface {
	// Type identifies which of the fourteen control packet types this
	// value represents.
	Type() PacketType

	encodedLength() int
	encodeBody(w byteWriter) error
}

// Decode reads exactly one complete packet from the front of data and
// returns it along with the number of bytes consumed. Decode never reads
// past the packet's own remaining length; data may contain trailing bytes
// belonging to a subsequent packet, and those are left untouched.
//
// On ErrIncomplete, data held too little to decode a full packet and the
// caller should buffer more before retrying. Any other error is fatal per
// spec.md §7 and the connection that produced data must be terminated.
func Decode(data []byte) (Packet, int, error) {
	c := NewCursor(data)

	fh, err := DecodeFixedHeader(c)
	if err != nil {
		return nil, 0, err
	}

	if c.Len() < int(fh.RemainingLength) {
		return nil, 0, ErrIncomplete
	}

	bodyStart := c.Pos()
	pkt, err := decodeBody(c, fh)
	if err != nil {
		return nil, 0, err
	}

	consumed := c.Pos() - bodyStart
	if consumed != int(fh.RemainingLength) {
		return nil, 0, decodeErr(fh.Type, "remaining_length", ErrRemainingLengthMismatch)
	}

	return pkt, c.Pos(), nil
}

// decodeBody dispatches on the already-decoded fixed header's type to the
// matching packet variant's decode function. This is the one exhaustive
// type switch every other piece of dispatch logic (Encode, EncodedLength)
// mirrors, grounded on spec.md §9's recommendation to use an interface plus
// a type switch rather than reflection or a registry.
func decodeBody(c *Cursor, fh FixedHeader) (Packet, error) {
	switch fh.Type {
	case CONNECT:
		return decodeConnectBody(c)
	case CONNACK:
		return decodeConnackBody(c)
	case PUBLISH:
		return decodePublishBody(c, fh)
	case PUBACK:
		return decodePubackBody(c)
	case PUBREC:
		return decodePubrecBody(c)
	case PUBREL:
		return decodePubrelBody(c)
	case PUBCOMP:
		return decodePubcompBody(c)
	case SUBSCRIBE:
		return decodeSubscribeBody(c, fh)
	case SUBACK:
		return decodeSubackBody(c, fh)
	case UNSUBSCRIBE:
		return decodeUnsubscribeBody(c, fh)
	case UNSUBACK:
		return decodeUnsubackBody(c)
	case PINGREQ:
		body, err := decodeEmptyBody(c, PINGREQ, fh)
		if err != nil {
			return nil, err
		}
		return &PingreqPacket{body}, nil
	case PINGRESP:
		body, err := decodeEmptyBody(c, PINGRESP, fh)
		if err != nil {
			return nil, err
		}
		return &PingrespPacket{body}, nil
	case DISCONNECT:
		body, err := decodeEmptyBody(c, DISCONNECT, fh)
		if err != nil {
			return nil, err
		}
		return &DisconnectPacket{body}, nil
	default:
		return nil, decodeErr(fh.Type, "type", ErrInvalidPacketType)
	}
}

// flagsFor returns the fixed-header flags appropriate to pkt's type: the
// PUBLISH DUP/QoS/Retain bits, or zero for every other packet. Spec.md
// §3.2 is read literally here — "for every other packet: must be zero" —
// rather than carrying forward the real protocol's reserved 0010 pattern
// on PUBREL/SUBSCRIBE/UNSUBSCRIBE.
func flagsFor(pkt Packet) FixedHeader {
	if pub, ok := pkt.(*PublishPacket); ok {
		return pub.fixedHeader(uint32(pub.encodedLength()))
	}
	return FixedHeader{Type: pkt.Type(), RemainingLength: uint32(pkt.encodedLength())}
}

// Encode serializes pkt into a freshly allocated byte slice: fixed header
// followed by variable header and payload. Fails with an *EncodeRangeError
// if pkt's encoded length exceeds the wire format's remaining-length
// ceiling.
func Encode(pkt Packet) ([]byte, error) {
	fh := flagsFor(pkt)

	var buf bytes.Buffer
	buf.Grow(5 + pkt.encodedLength())

	if err := fh.Encode(&buf); err != nil {
		return nil, err
	}
	if err := pkt.encodeBody(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodedLength returns the total wire size Encode would produce for pkt,
// including the fixed header, without allocating.
func EncodedLength(pkt Packet) int {
	fh := flagsFor(pkt)
	return SizeVarInt(fh.RemainingLength) + 1 + pkt.encodedLength()
}
