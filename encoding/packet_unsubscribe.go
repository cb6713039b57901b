package encoding

// UnsubscribePacket requests removal of one or more topic subscriptions
// (spec.md §4.9).
type UnsubscribePacket struct {
	PacketID     uint16
	TopicFilters []string
}

func (p *UnsubscribePacket) Type() PacketType { return UNSUBSCRIBE }

func (p *UnsubscribePacket) encodedLength() int {
	n := 2
	for _, f := range p.TopicFilters {
		n += sizeString(f)
	}
	return n
}

func (p *UnsubscribePacket) encodeBody(w byteWriter) error {
	if err := writeU16(w, p.PacketID); err != nil {
		return err
	}
	for _, f := range p.TopicFilters {
		if err := writeString(w, f); err != nil {
			return err
		}
	}
	return nil
}

func decodeUnsubscribeBody(c *Cursor, fh FixedHeader) (*UnsubscribePacket, error) {
	start := c.Pos()

	id, err := c.ReadUint16()
	if err != nil {
		return nil, decodeErr(UNSUBSCRIBE, "packet_id", err)
	}
	if id == 0 {
		return nil, decodeErr(UNSUBSCRIBE, "packet_id", ErrInvalidPacketIDZero)
	}

	p := &UnsubscribePacket{PacketID: id}

	for c.Pos()-start < int(fh.RemainingLength) {
		filter, err := c.ReadString()
		if err != nil {
			return nil, decodeErr(UNSUBSCRIBE, "topic_filter", err)
		}
		if err := ValidateTopicFilter(filter); err != nil {
			return nil, decodeErr(UNSUBSCRIBE, "topic_filter", err)
		}
		p.TopicFilters = append(p.TopicFilters, filter)
	}

	if len(p.TopicFilters) == 0 {
		return nil, decodeErr(UNSUBSCRIBE, "topic_filters", ErrEmptyUnsubscribeList)
	}
	if c.Pos()-start != int(fh.RemainingLength) {
		return nil, decodeErr(UNSUBSCRIBE, "topic_filters", ErrRemainingLengthMismatch)
	}

	return p, nil
}
