package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectFixture() *ConnectPacket {
	return &ConnectPacket{
		ProtocolVersion: ProtocolVersion311,
		CleanSession:    true,
		KeepAlive:       60,
		ClientID:        "client-1",
	}
}

func TestConnectPacket_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  *ConnectPacket
	}{
		{"minimal", connectFixture()},
		{"with_will", func() *ConnectPacket {
			p := connectFixture()
			p.WillFlag = true
			p.WillQoS = QoS1
			p.WillRetain = true
			p.WillTopic = "lwt/topic"
			p.WillPayload = []byte("goodbye")
			return p
		}()},
		{"with_username_and_password", func() *ConnectPacket {
			p := connectFixture()
			p.UsernameFlag = true
			p.Username = "alice"
			p.PasswordFlag = true
			p.Password = []byte("hunter2")
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.pkt)
			require.NoError(t, err)

			decoded, n, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, len(encoded), n)

			got, ok := decoded.(*ConnectPacket)
			require.True(t, ok)
			assert.Equal(t, tt.pkt, got)
		})
	}
}

func TestConnectPacket_DecodeGatesFieldsOnFlags(t *testing.T) {
	// Will flag clear: will topic/payload must not be read even if present
	// in the payload bytes that follow client ID — here there simply are
	// none, proving decode stops at client ID.
	p := connectFixture()
	encoded, err := Encode(p)
	require.NoError(t, err)

	decoded, _, err := Decode(encoded)
	require.NoError(t, err)
	got := decoded.(*ConnectPacket)
	assert.Empty(t, got.WillTopic)
	assert.Empty(t, got.Username)
	assert.Nil(t, got.Password)
}

func TestConnectPacket_RejectsBadProtocolName(t *testing.T) {
	c := &ConnectPacket{ProtocolVersion: ProtocolVersion311, ClientID: "x"}
	buf, err := Encode(c)
	require.NoError(t, err)

	// Corrupt "MQTT"'s first byte (1 byte fixed header type/flags + 1 byte
	// remaining length + 2 byte string length prefix = offset 4).
	buf[4] = 'X'

	_, _, err = Decode(buf)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestConnectPacket_RejectsReservedFlagBit(t *testing.T) {
	_, err := unpackConnectFlags(0x01)
	assert.ErrorIs(t, err, ErrInvalidConnectFlags)
}

func TestConnectPacket_RejectsPasswordWithoutUsername(t *testing.T) {
	_, err := unpackConnectFlags(0x40) // password bit set, username bit clear
	assert.ErrorIs(t, err, ErrPasswordWithoutUsername)
}

func TestConnectPacket_RejectsWillQoSWithoutWillFlag(t *testing.T) {
	_, err := unpackConnectFlags(0x08) // will QoS 1 bits set, will flag clear
	assert.ErrorIs(t, err, ErrWillFlagMismatch)
}

func TestConnackPacket_RoundTrip(t *testing.T) {
	p := &ConnackPacket{SessionPresent: true, ReturnCode: ConnectionAccepted}
	encoded, err := Encode(p)
	require.NoError(t, err)

	decoded, _, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestConnackPacket_RejectsInvalidReturnCode(t *testing.T) {
	// fixed header: CONNACK, remaining length 2; ack flags 0; return code 0x06 (invalid)
	data := []byte{byte(CONNACK) << 4, 0x02, 0x00, 0x06}
	_, _, err := Decode(data)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestConnackPacket_RejectsReservedAckBits(t *testing.T) {
	data := []byte{byte(CONNACK) << 4, 0x02, 0x02, 0x00}
	_, _, err := Decode(data)
	assert.ErrorIs(t, err, ErrMalformed)
}
