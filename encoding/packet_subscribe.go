package encoding

// Subscription is one topic-filter/requested-QoS pair in a SUBSCRIBE
// packet's payload.
type Subscription struct {
	TopicFilter string
	QoS         QoS
}

// SubscribePacket requests one or more topic subscriptions (spec.md §4.7).
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
}

func (p *SubscribePacket) Type() PacketType { return SUBSCRIBE }

func (p *SubscribePacket) encodedLength() int {
	n := 2
	for _, s := range p.Subscriptions {
		n += sizeString(s.TopicFilter) + 1
	}
	return n
}

func (p *SubscribePacket) encodeBody(w byteWriter) error {
	if err := writeU16(w, p.PacketID); err != nil {
		return err
	}
	for _, s := range p.Subscriptions {
		if err := writeString(w, s.TopicFilter); err != nil {
			return err
		}
		if err := writeU8(w, byte(s.QoS)); err != nil {
			return err
		}
	}
	return nil
}

func decodeSubscribeBody(c *Cursor, fh FixedHeader) (*SubscribePacket, error) {
	start := c.Pos()

	id, err := c.ReadUint16()
	if err != nil {
		return nil, decodeErr(SUBSCRIBE, "packet_id", err)
	}
	if id == 0 {
		return nil, decodeErr(SUBSCRIBE, "packet_id", ErrInvalidPacketIDZero)
	}

	p := &SubscribePacket{PacketID: id}

	for c.Pos()-start < int(fh.RemainingLength) {
		filter, err := c.ReadString()
		if err != nil {
			return nil, decodeErr(SUBSCRIBE, "topic_filter", err)
		}
		if err := ValidateTopicFilter(filter); err != nil {
			return nil, decodeErr(SUBSCRIBE, "topic_filter", err)
		}

		optByte, err := c.ReadByte()
		if err != nil {
			return nil, decodeErr(SUBSCRIBE, "requested_qos", err)
		}
		if err := ValidateSubscriptionOptions(optByte); err != nil {
			return nil, decodeErr(SUBSCRIBE, "requested_qos", err)
		}

		p.Subscriptions = append(p.Subscriptions, Subscription{TopicFilter: filter, QoS: QoS(optByte & 0x03)})
	}

	if len(p.Subscriptions) == 0 {
		return nil, decodeErr(SUBSCRIBE, "subscriptions", ErrEmptySubscriptionList)
	}
	if c.Pos()-start != int(fh.RemainingLength) {
		return nil, decodeErr(SUBSCRIBE, "subscriptions", ErrRemainingLengthMismatch)
	}

	return p, nil
}

// SubackPacket grants (or refuses) each filter requested in a SUBSCRIBE
// (spec.md §4.8). ReturnCodes has the same length and order as the
// originating request's Subscriptions.
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []SubscribeReturnCode
}

func (p *SubackPacket) Type() PacketType { return SUBACK }

func (p *SubackPacket) encodedLength() int { return 2 + len(p.ReturnCodes) }

func (p *SubackPacket) encodeBody(w byteWriter) error {
	if err := writeU16(w, p.PacketID); err != nil {
		return err
	}
	for _, rc := range p.ReturnCodes {
		if err := writeU8(w, byte(rc)); err != nil {
			return err
		}
	}
	return nil
}

func decodeSubackBody(c *Cursor, fh FixedHeader) (*SubackPacket, error) {
	start := c.Pos()

	id, err := c.ReadUint16()
	if err != nil {
		return nil, decodeErr(SUBACK, "packet_id", err)
	}
	if id == 0 {
		return nil, decodeErr(SUBACK, "packet_id", ErrInvalidPacketIDZero)
	}

	p := &SubackPacket{PacketID: id}

	n := int(fh.RemainingLength) - (c.Pos() - start)
	if n < 1 {
		return nil, decodeErr(SUBACK, "return_codes", ErrRemainingLengthMismatch)
	}

	raw, err := c.Take(n)
	if err != nil {
		return nil, decodeErr(SUBACK, "return_codes", err)
	}
	for _, b := range raw {
		rc := SubscribeReturnCode(b)
		if !rc.IsValid() {
			return nil, decodeErr(SUBACK, "return_codes", ErrInvalidSubscribeReturn)
		}
		p.ReturnCodes = append(p.ReturnCodes, rc)
	}

	return p, nil
}
