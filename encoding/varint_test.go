package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVarInt(t *testing.T) {
	tests := []struct {
		name     string
		input    uint32
		expected []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"max_single_byte", 127, []byte{0x7F}},
		{"min_two_byte", 128, []byte{0x80, 0x01}},
		{"max_two_byte", 16383, []byte{0xFF, 0x7F}},
		{"min_three_byte", 16384, []byte{0x80, 0x80, 0x01}},
		{"max_three_byte", 2097151, []byte{0xFF, 0xFF, 0x7F}},
		{"min_four_byte", 2097152, []byte{0x80, 0x80, 0x80, 0x01}},
		{"max_four_byte", MaxVarInt, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeVarInt(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncodeVarInt_TooLarge(t *testing.T) {
	_, err := EncodeVarInt(MaxVarInt + 1)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeVarInt(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint32
	}{
		{"zero", []byte{0x00}, 0},
		{"max_single_byte", []byte{0x7F}, 127},
		{"min_two_byte", []byte{0x80, 0x01}, 128},
		{"max_two_byte", []byte{0xFF, 0x7F}, 16383},
		{"min_three_byte", []byte{0x80, 0x80, 0x01}, 16384},
		{"max_three_byte", []byte{0xFF, 0xFF, 0x7F}, 2097151},
		{"min_four_byte", []byte{0x80, 0x80, 0x80, 0x01}, 2097152},
		{"max_four_byte", []byte{0xFF, 0xFF, 0xFF, 0x7F}, MaxVarInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor(tt.input)
			got, err := DecodeVarInt(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.input), c.Pos())
		})
	}
}

func TestDecodeVarInt_Incomplete(t *testing.T) {
	// A continuation byte with nothing after it is incomplete, not malformed.
	c := NewCursor([]byte{0x80})
	_, err := DecodeVarInt(c)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, 0, c.Pos(), "cursor must not advance on failure")
}

func TestDecodeVarInt_FifthContinuationByte(t *testing.T) {
	c := NewCursor([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F})
	_, err := DecodeVarInt(c)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, 0, c.Pos())
}

func TestVarIntRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, MaxVarInt} {
		encoded, err := EncodeVarInt(v)
		require.NoError(t, err)

		c := NewCursor(encoded)
		decoded, err := DecodeVarInt(c)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestPeekVarInt(t *testing.T) {
	t.Run("complete within buffer", func(t *testing.T) {
		value, width, complete, malformed := peekVarInt([]byte{0x80, 0x01, 0xAA, 0xBB})
		assert.True(t, complete)
		assert.False(t, malformed)
		assert.Equal(t, uint32(128), value)
		assert.Equal(t, 2, width)
	})

	t.Run("incomplete", func(t *testing.T) {
		_, _, complete, malformed := peekVarInt([]byte{0x80})
		assert.False(t, complete)
		assert.False(t, malformed)
	})

	t.Run("malformed fifth continuation byte", func(t *testing.T) {
		_, _, complete, malformed := peekVarInt([]byte{0xFF, 0xFF, 0xFF, 0xFF})
		assert.False(t, complete)
		assert.True(t, malformed)
	})

	t.Run("never reads past the fourth byte", func(t *testing.T) {
		// buf has only 4 bytes total; peekVarInt must not index out of range
		// looking for a fifth.
		_, _, complete, malformed := peekVarInt([]byte{0x80, 0x80, 0x80, 0x01})
		assert.True(t, complete)
		assert.False(t, malformed)
	})
}
