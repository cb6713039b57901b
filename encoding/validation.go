package encoding

import "strings"

// ValidatePacketID checks a packet identifier field. requireNonZero is true
// for every packet type that carries one except a QoS 0 PUBLISH, which has
// none at all.
//
// Grounded on axmq-ax/encoding/validation.go's ValidatePacketID.
func ValidatePacketID(packetID uint16, requireNonZero bool) error {
	if requireNonZero && packetID == 0 {
		return ErrInvalidPacketIDZero
	}
	return nil
}

// ValidateRemainingLength checks a decoded remaining length against the VBI
// ceiling (spec.md §3.1).
//
// Grounded on axmq-ax/encoding/validation.go's ValidateRemainingLength.
func ValidateRemainingLength(length uint32) error {
	if length > MaxVarInt {
		return ErrVarIntTooLarge
	}
	return nil
}

// ValidateSubscriptionOptions validates a SUBSCRIBE packet's per-filter
// requested-QoS byte (spec.md §4.8). 3.1.1 defines only the low two bits;
// the remaining six bits are reserved and must be zero, unlike the later
// protocol revision this module does not target.
//
// Grounded on axmq-ax/encoding/validation.go's ValidateSubscriptionOptions,
// trimmed of the MQTT5-only No-Local/Retain-As-Published/Retain-Handling
// bits.
func ValidateSubscriptionOptions(options byte) error {
	qos := QoS(options & 0x03)
	if !qos.IsValid() {
		return ErrInvalidQoS
	}
	if options&0xFC != 0 {
		return ErrInvalidFlags
	}
	return nil
}

// ValidatePublishPacket validates the cross-field PUBLISH invariant that a
// topic/QoS/packet-ID triple must satisfy: a valid topic name, a valid QoS,
// and (for QoS 1 or 2) a nonzero packet identifier.
//
// Grounded on axmq-ax/encoding/validation.go's ValidatePublishPacket.
func ValidatePublishPacket(topicName string, qos QoS, packetID uint16) error {
	if err := ValidateTopicName(topicName); err != nil {
		return err
	}
	if !qos.IsValid() {
		return ErrInvalidQoS
	}
	if qos > QoS0 {
		return ValidatePacketID(packetID, true)
	}
	return nil
}

// ValidateTopicName validates an MQTT topic name, used in PUBLISH. Topic
// names must be non-empty, wildcard-free, and a legal MQTT string.
//
// Grounded on axmq-ax/encoding/validation.go's ValidateTopicName, carried
// over close to verbatim — this rule doesn't change between MQTT5 and
// 3.1.1.
func ValidateTopicName(topic string) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopicName
	}
	return validateMQTTString([]byte(topic))
}

// ValidateTopicFilter validates an MQTT topic filter, used in SUBSCRIBE and
// UNSUBSCRIBE. '#' is only legal alone as the final level; '+' is only
// legal alone within a level.
//
// Grounded on axmq-ax/encoding/validation.go's ValidateTopicFilter.
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return ErrInvalidTopicFilter
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") && (level != "#" || i != len(levels)-1) {
			return ErrInvalidTopicFilter
		}
		if strings.Contains(level, "+") && level != "+" {
			return ErrInvalidTopicFilter
		}
	}

	if err := validateMQTTString([]byte(filter)); err != nil {
		return ErrInvalidTopicFilter
	}
	return nil
}

// connectFlags is the packed CONNECT variable-header flags byte
// (spec.md §3.3), decoded/encoded bit-by-bit in the documented order:
// bit 7 user-name, bit 6 password, bit 5 will-retain, bits 4-3 will-QoS,
// bit 2 will-flag, bit 1 clean-session, bit 0 reserved.
type connectFlags struct {
	usernameFlag bool
	passwordFlag bool
	willRetain   bool
	willQoS      QoS
	willFlag     bool
	cleanSession bool
}

func (f connectFlags) pack() byte {
	var b byte
	if f.usernameFlag {
		b |= 0x80
	}
	if f.passwordFlag {
		b |= 0x40
	}
	if f.willRetain {
		b |= 0x20
	}
	b |= byte(f.willQoS) << 3
	if f.willFlag {
		b |= 0x04
	}
	if f.cleanSession {
		b |= 0x02
	}
	return b
}

// unpackConnectFlags decodes the packed byte and enforces the cross-field
// invariants spec.md §4.3/§9 describe: the reserved bit must be zero (open
// question #2, resolved per the published protocol spec rather than the
// source, which neither rejects nor asserts it); will-QoS/will-retain must
// be zero when will-flag is clear; password-without-username is rejected
// (open question #3, likewise resolved against the source).
func unpackConnectFlags(b byte) (connectFlags, error) {
	if b&0x01 != 0 {
		return connectFlags{}, ErrInvalidConnectFlags
	}

	f := connectFlags{
		usernameFlag: b&0x80 != 0,
		passwordFlag: b&0x40 != 0,
		willRetain:   b&0x20 != 0,
		willQoS:      QoS((b & 0x18) >> 3),
		willFlag:     b&0x04 != 0,
		cleanSession: b&0x02 != 0,
	}

	if !f.willQoS.IsValid() {
		return connectFlags{}, ErrInvalidQoS
	}
	if !f.willFlag && (f.willQoS != QoS0 || f.willRetain) {
		return connectFlags{}, ErrWillFlagMismatch
	}
	if f.passwordFlag && !f.usernameFlag {
		return connectFlags{}, ErrPasswordWithoutUsername
	}

	return f, nil
}

// ConnackReturnCode is the CONNACK return code byte (spec.md §3.3), a
// closed 3.1.1 enumeration — not the MQTT5 reason-code space.
type ConnackReturnCode byte

const (
	ConnectionAccepted               ConnackReturnCode = 0x00
	RefusedUnacceptableProtocol      ConnackReturnCode = 0x01
	RefusedIdentifierRejected        ConnackReturnCode = 0x02
	RefusedServerUnavailable         ConnackReturnCode = 0x03
	RefusedBadUsernameOrPassword     ConnackReturnCode = 0x04
	RefusedNotAuthorized             ConnackReturnCode = 0x05
)

// IsValid reports whether c is one of the six 3.1.1 CONNACK return codes.
func (c ConnackReturnCode) IsValid() bool { return c <= RefusedNotAuthorized }

// SubscribeReturnCode is the per-filter byte in a SUBACK payload
// (spec.md §3.3): the granted QoS, or Failure.
type SubscribeReturnCode byte

const (
	SubackQoS0    SubscribeReturnCode = 0x00
	SubackQoS1    SubscribeReturnCode = 0x01
	SubackQoS2    SubscribeReturnCode = 0x02
	SubackFailure SubscribeReturnCode = 0x80
)

// IsValid reports whether c is one of {0,1,2,0x80}.
func (c SubscribeReturnCode) IsValid() bool {
	return c == SubackQoS0 || c == SubackQoS1 || c == SubackQoS2 || c == SubackFailure
}
