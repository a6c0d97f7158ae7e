package wire

import "encoding/binary"

// Header is the fixed 4-byte FSCP header that precedes every datagram
// (spec §4.1): version, type, and big-endian body length.
type Header struct {
	Version uint8
	Type    Type
	// BodyLength is the number of bytes following the header. A receiver
	// must drop a datagram where this disagrees with the actual UDP
	// payload size.
	BodyLength uint16
}

// Encode writes the 4-byte header to buf, which must be at least
// HeaderSize bytes long.
func (h Header) Encode(buf []byte) {
	buf[0] = h.Version
	buf[1] = uint8(h.Type)
	binary.BigEndian.PutUint16(buf[2:4], h.BodyLength)
}

// DecodeHeader parses the fixed header from the front of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrTooShort
	}
	h := Header{
		Version:    data[0],
		Type:       Type(data[1]),
		BodyLength: binary.BigEndian.Uint16(data[2:4]),
	}
	if h.Version != ProtocolVersion {
		return Header{}, ErrInvalidVersion
	}
	if int(h.BodyLength) != len(data)-HeaderSize {
		return Header{}, ErrLengthMismatch
	}
	return h, nil
}

// Parsed is the result of Parse: a message type plus a zero-copy view of
// its body (the slice aliases the input buffer).
type Parsed struct {
	Type Type
	Body []byte
}

// Parse validates the fixed header and returns the type and a borrowed
// view of the body. It never allocates and never panics; any malformed
// input produces an error (spec §4.1 "any parse failure ... drop and log;
// no parse ever panics").
func Parse(data []byte) (Parsed, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{Type: h.Type, Body: data[HeaderSize:]}, nil
}

// buildHeader allocates a buffer sized for the header plus bodyLen,
// writes the header, and returns the buffer positioned at the body start.
func buildHeader(t Type, bodyLen int) ([]byte, error) {
	if HeaderSize+bodyLen > MaxMTU {
		return nil, ErrTooLarge
	}
	buf := make([]byte, HeaderSize+bodyLen)
	Header{Version: ProtocolVersion, Type: t, BodyLength: uint16(bodyLen)}.Encode(buf)
	return buf, nil
}
