package encoding

// FrameStatus reports what TryFrame could determine from the bytes it was
// given.
type FrameStatus int

const (
	// FrameIncomplete means buf does not yet hold a full packet; the
	// caller should read more bytes and try again without discarding buf.
	FrameIncomplete FrameStatus = iota
	// FrameComplete means buf's prefix [0:consumed] is exactly one
	// complete packet.
	FrameComplete
	// FrameMalformed means the fixed header itself is invalid (a bad
	// packet type or an overlong remaining-length VBI) — the connection
	// must be terminated regardless of how many more bytes might arrive.
	// The flag bits are not checked here; Decode rejects bad flags.
	FrameMalformed
)

// TryFrame looks only at buf's fixed header — never at the packet's
// variable header or payload — to determine whether buf's prefix holds one
// complete packet (spec.md §6). This is the framer's entire job: a
// streaming transport delivers bytes in arbitrary chunks, and the framer is
// what turns that stream back into packet-sized units before Decode ever
// runs.
//
// On FrameComplete, consumed is the exact byte length of the packet at the
// front of buf (fixed header plus remaining length) and frame is
// buf[:consumed]. On FrameIncomplete or FrameMalformed, frame is nil and
// consumed is 0 — the caller must not advance its read position.
func TryFrame(buf []byte) (frame []byte, consumed int, status FrameStatus) {
	if len(buf) < 1 {
		return nil, 0, FrameIncomplete
	}

	t := PacketType(buf[0] >> 4)
	if t == typeReserved || t > typeMax {
		return nil, 0, FrameMalformed
	}

	rl, width, complete, malformed := peekVarInt(buf[1:])
	if malformed {
		return nil, 0, FrameMalformed
	}
	if !complete {
		return nil, 0, FrameIncomplete
	}
	if rl > MaxVarInt {
		return nil, 0, FrameMalformed
	}

	total := 1 + width + int(rl)
	if len(buf) < total {
		return nil, 0, FrameIncomplete
	}

	return buf[:total], total, FrameComplete
}
