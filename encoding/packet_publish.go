package encoding

// PublishPacket carries application data on a topic (spec.md §4.5). PacketID
// is only present on the wire when QoS is 1 or 2; at QoS 0 it reads as 0 and
// is never encoded.
type PublishPacket struct {
	DUP       bool
	QoS       QoS
	Retain    bool
	TopicName string
	PacketID  uint16
	Payload   []byte
}

func (p *PublishPacket) Type() PacketType { return PUBLISH }

func (p *PublishPacket) fixedHeader(remainingLength uint32) FixedHeader {
	return FixedHeader{Type: PUBLISH, RemainingLength: remainingLength, DUP: p.DUP, QoS: p.QoS, Retain: p.Retain}
}

func (p *PublishPacket) encodedLength() int {
	n := sizeString(p.TopicName) + len(p.Payload)
	if p.QoS > QoS0 {
		n += 2
	}
	return n
}

func (p *PublishPacket) encodeBody(w byteWriter) error {
	if err := writeString(w, p.TopicName); err != nil {
		return err
	}
	if p.QoS > QoS0 {
		if err := writeU16(w, p.PacketID); err != nil {
			return err
		}
	}
	if len(p.Payload) == 0 {
		return nil
	}
	_, err := w.Write(p.Payload)
	return err
}

// decodePublishBody decodes PUBLISH's variable header and payload. fh
// supplies the QoS/DUP/Retain bits already validated by DecodeFixedHeader,
// and its RemainingLength bounds how many payload bytes remain once the
// topic name and (if present) packet ID are consumed.
func decodePublishBody(c *Cursor, fh FixedHeader) (*PublishPacket, error) {
	start := c.Pos()

	topic, err := c.ReadString()
	if err != nil {
		return nil, decodeErr(PUBLISH, "topic_name", err)
	}
	if err := ValidateTopicName(topic); err != nil {
		return nil, decodeErr(PUBLISH, "topic_name", err)
	}

	p := &PublishPacket{DUP: fh.DUP, QoS: fh.QoS, Retain: fh.Retain, TopicName: topic}

	if fh.QoS > QoS0 {
		p.PacketID, err = c.ReadUint16()
		if err != nil {
			return nil, decodeErr(PUBLISH, "packet_id", err)
		}
		if p.PacketID == 0 {
			return nil, decodeErr(PUBLISH, "packet_id", ErrInvalidPacketIDZero)
		}
	}

	consumed := c.Pos() - start
	payloadLen := int(fh.RemainingLength) - consumed
	if payloadLen < 0 {
		return nil, decodeErr(PUBLISH, "payload", ErrRemainingLengthMismatch)
	}
	if payloadLen > 0 {
		raw, err := c.Take(payloadLen)
		if err != nil {
			return nil, decodeErr(PUBLISH, "payload", err)
		}
		p.Payload = append([]byte(nil), raw...)
	}

	return p, nil
}
