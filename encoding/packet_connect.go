package encoding

// ProtocolVersion is the one-byte protocol level carried in CONNECT's
// variable header. This module's compatibility target is 3.1.1 only
// (protocol level 4, protocol name "MQTT"); a peer presenting any other
// value is rejected at decode time.
type ProtocolVersion byte

const ProtocolVersion311 ProtocolVersion = 4

const protocolName311 = "MQTT"

// ConnectPacket is the client-to-server connection request (spec.md §4.3).
// Will/username/password fields are only meaningful when their
// corresponding flag is set; Decode leaves them zero-valued otherwise,
// following the strict field-presence gating original_source/src/packet/
// connect.rs's ConnectPayload::decode enforces and axmq-ax never did.
type ConnectPacket struct {
	ProtocolVersion ProtocolVersion
	CleanSession    bool
	WillFlag        bool
	WillQoS         QoS
	WillRetain      bool
	UsernameFlag    bool
	PasswordFlag    bool
	KeepAlive       uint16
	ClientID        string
	WillTopic       string
	WillPayload     []byte
	Username        string
	Password        []byte
}

func (p *ConnectPacket) Type() PacketType { return CONNECT }

func (p *ConnectPacket) encodedLength() int {
	n := sizeString(protocolName311) + 1 + 1 + 2 // protocol name, version, flags, keep alive
	n += sizeString(p.ClientID)
	if p.WillFlag {
		n += sizeString(p.WillTopic)
		n += sizeBinary(p.WillPayload)
	}
	if p.UsernameFlag {
		n += sizeString(p.Username)
	}
	if p.PasswordFlag {
		n += sizeBinary(p.Password)
	}
	return n
}

func (p *ConnectPacket) encodeBody(w byteWriter) error {
	if err := writeString(w, protocolName311); err != nil {
		return err
	}
	if err := writeU8(w, byte(p.ProtocolVersion)); err != nil {
		return err
	}

	flags := connectFlags{
		usernameFlag: p.UsernameFlag,
		passwordFlag: p.PasswordFlag,
		willRetain:   p.WillRetain,
		willQoS:      p.WillQoS,
		willFlag:     p.WillFlag,
		cleanSession: p.CleanSession,
	}
	if err := writeU8(w, flags.pack()); err != nil {
		return err
	}
	if err := writeU16(w, p.KeepAlive); err != nil {
		return err
	}

	if err := writeString(w, p.ClientID); err != nil {
		return err
	}
	if p.WillFlag {
		if err := writeString(w, p.WillTopic); err != nil {
			return err
		}
		if err := writeBinary(w, p.WillPayload); err != nil {
			return err
		}
	}
	if p.UsernameFlag {
		if err := writeString(w, p.Username); err != nil {
			return err
		}
	}
	if p.PasswordFlag {
		if err := writeBinary(w, p.Password); err != nil {
			return err
		}
	}
	return nil
}

// decodeConnectBody decodes CONNECT's variable header and payload. The
// protocol-name/version check happens before any flag is interpreted, and
// every payload field after the flags byte is read only when its
// corresponding flag bit says it's present — the field-presence gating
// connect.rs's decode path enforces (see DESIGN.md's Open-question
// resolutions).
func decodeConnectBody(c *Cursor) (*ConnectPacket, error) {
	name, err := c.ReadString()
	if err != nil {
		return nil, decodeErr(CONNECT, "protocol_name", err)
	}
	if name != protocolName311 {
		return nil, decodeErr(CONNECT, "protocol_name", ErrInvalidProtocolName)
	}

	versionByte, err := c.ReadByte()
	if err != nil {
		return nil, decodeErr(CONNECT, "protocol_version", err)
	}
	if ProtocolVersion(versionByte) != ProtocolVersion311 {
		return nil, decodeErr(CONNECT, "protocol_version", ErrInvalidProtocolVersion)
	}

	flagsByte, err := c.ReadByte()
	if err != nil {
		return nil, decodeErr(CONNECT, "connect_flags", err)
	}
	flags, err := unpackConnectFlags(flagsByte)
	if err != nil {
		return nil, decodeErr(CONNECT, "connect_flags", err)
	}

	keepAlive, err := c.ReadUint16()
	if err != nil {
		return nil, decodeErr(CONNECT, "keep_alive", err)
	}

	p := &ConnectPacket{
		ProtocolVersion: ProtocolVersion311,
		CleanSession:    flags.cleanSession,
		WillFlag:        flags.willFlag,
		WillQoS:         flags.willQoS,
		WillRetain:      flags.willRetain,
		UsernameFlag:    flags.usernameFlag,
		PasswordFlag:    flags.passwordFlag,
		KeepAlive:       keepAlive,
	}

	p.ClientID, err = c.ReadString()
	if err != nil {
		return nil, decodeErr(CONNECT, "client_id", err)
	}

	if flags.willFlag {
		p.WillTopic, err = c.ReadString()
		if err != nil {
			return nil, decodeErr(CONNECT, "will_topic", err)
		}
		p.WillPayload, err = c.ReadBinary()
		if err != nil {
			return nil, decodeErr(CONNECT, "will_message", err)
		}
	}

	if flags.usernameFlag {
		p.Username, err = c.ReadString()
		if err != nil {
			return nil, decodeErr(CONNECT, "username", err)
		}
	}

	if flags.passwordFlag {
		p.Password, err = c.ReadBinary()
		if err != nil {
			return nil, decodeErr(CONNECT, "password", err)
		}
	}

	return p, nil
}

// ConnackPacket is the server's CONNECT acknowledgement (spec.md §4.4).
type ConnackPacket struct {
	SessionPresent bool
	ReturnCode     ConnackReturnCode
}

func (p *ConnackPacket) Type() PacketType   { return CONNACK }
func (p *ConnackPacket) encodedLength() int { return 2 }

func (p *ConnackPacket) encodeBody(w byteWriter) error {
	var ack byte
	if p.SessionPresent {
		ack = 0x01
	}
	if err := writeU8(w, ack); err != nil {
		return err
	}
	return writeU8(w, byte(p.ReturnCode))
}

func decodeConnackBody(c *Cursor) (*ConnackPacket, error) {
	ackByte, err := c.ReadByte()
	if err != nil {
		return nil, decodeErr(CONNACK, "ack_flags", err)
	}
	if ackByte&0xFE != 0 {
		return nil, decodeErr(CONNACK, "ack_flags", ErrInvalidFlags)
	}

	rcByte, err := c.ReadByte()
	if err != nil {
		return nil, decodeErr(CONNACK, "return_code", err)
	}
	rc := ConnackReturnCode(rcByte)
	if !rc.IsValid() {
		return nil, decodeErr(CONNACK, "return_code", ErrInvalidConnackReturn)
	}

	return &ConnackPacket{SessionPresent: ackByte&0x01 != 0, ReturnCode: rc}, nil
}
