package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyPackets_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{"pingreq", &PingreqPacket{}},
		{"pingresp", &PingrespPacket{}},
		{"disconnect", &DisconnectPacket{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.pkt)
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(tt.pkt.Type()) << 4, 0x00}, encoded)

			decoded, n, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, tt.pkt, decoded)
		})
	}
}

func TestEmptyPacket_RejectsNonZeroRemainingLength(t *testing.T) {
	data := []byte{byte(PINGREQ) << 4, 0x01, 0xFF}
	_, _, err := Decode(data)
	assert.ErrorIs(t, err, ErrMalformed)
}
