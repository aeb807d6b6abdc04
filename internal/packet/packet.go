// Package packet implements the higher-level request/response packet
// format that travels inside an SPI frame's payload: an 8-byte header
// followed by up to Length-8 bytes of payload.
package packet

import "encoding/binary"

// HeaderSize is the size of the fixed packet header.
const HeaderSize = 8

// OptionResponseExpected is the bit in Header.Options that marks a
// request as wanting a response (brickd's 0x08 "return expected").
const OptionResponseExpected = 0x08

// FunctionStackEnumerate is the function code used by discovery to ask a
// slot to report its UIDs.
const FunctionStackEnumerate = 0xF8

// MaxUIDsPerResponse bounds how many UIDs a single StackEnumerate
// response can carry (mirrors slavetable.MaxUIDs).
const MaxUIDsPerResponse = 16

// BroadcastUID is the reserved UID meaning "all slaves" on ingress.
const BroadcastUID = 0

// Header is the fixed 8-byte packet header, little-endian on the wire.
type Header struct {
	UID      uint32
	Length   uint8
	Function uint8
	Options  uint8
	Flags    uint8
}

// Marshal encodes h into a HeaderSize-byte slice.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.UID)
	buf[4] = h.Length
	buf[5] = h.Function
	buf[6] = h.Options
	buf[7] = h.Flags
	return buf
}

// UnmarshalHeader decodes the first HeaderSize bytes of data.
func UnmarshalHeader(data []byte) (Header, bool) {
	if len(data) < HeaderSize {
		return Header{}, false
	}
	return Header{
		UID:      binary.LittleEndian.Uint32(data[0:4]),
		Length:   data[4],
		Function: data[5],
		Options:  data[6],
		Flags:    data[7],
	}, true
}

// NewStackEnumerateRequest builds the fixed request used by discovery:
// UID 0, length == header size (no extra payload), response expected.
func NewStackEnumerateRequest() []byte {
	h := Header{
		UID:      BroadcastUID,
		Length:   HeaderSize,
		Function: FunctionStackEnumerate,
		Options:  OptionResponseExpected,
	}
	return h.Marshal()
}

// StackEnumerateResponse is the decoded payload of a StackEnumerate reply:
// up to MaxUIDsPerResponse little-endian UIDs, terminated by the first
// zero entry (0 is reserved and never a real UID).
type StackEnumerateResponse struct {
	UIDs []uint32
}

// ParseStackEnumerateResponse decodes the UID list following the header
// in a StackEnumerate response packet.
func ParseStackEnumerateResponse(packet []byte) StackEnumerateResponse {
	body := packet
	if len(body) >= HeaderSize {
		body = body[HeaderSize:]
	}

	var resp StackEnumerateResponse
	for i := 0; i < MaxUIDsPerResponse; i++ {
		off := i * 4
		if off+4 > len(body) {
			break
		}
		uid := binary.LittleEndian.Uint32(body[off : off+4])
		if uid == 0 {
			break
		}
		resp.UIDs = append(resp.UIDs, uid)
	}
	return resp
}
