package wire

import "encoding/binary"

// WriteHelloRequest encodes a HELLO_REQUEST carrying a 32-bit unique number
// chosen by the initiator (spec §4.4.2, scenario S1).
func WriteHelloRequest(uniqueNumber uint32) ([]byte, error) {
	return writeHello(TypeHelloRequest, uniqueNumber)
}

// WriteHelloResponse encodes a HELLO_RESPONSE echoing the initiator's
// unique number.
func WriteHelloResponse(uniqueNumber uint32) ([]byte, error) {
	return writeHello(TypeHelloResponse, uniqueNumber)
}

func writeHello(t Type, uniqueNumber uint32) ([]byte, error) {
	buf, err := buildHeader(t, 4)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(buf[HeaderSize:], uniqueNumber)
	return buf, nil
}

// DecodeHello parses the body of a HELLO_REQUEST or HELLO_RESPONSE.
func DecodeHello(body []byte) (uint32, error) {
	if len(body) != 4 {
		return 0, ErrMalformedBody
	}
	return binary.BigEndian.Uint32(body), nil
}

// WritePresentation encodes a PRESENTATION message carrying the sender's
// DER-encoded signature certificate.
func WritePresentation(certDER []byte) ([]byte, error) {
	buf, err := buildHeader(TypePresentation, len(certDER))
	if err != nil {
		return nil, err
	}
	copy(buf[HeaderSize:], certDER)
	return buf, nil
}

// DecodePresentation returns a borrowed view of the certificate DER bytes.
func DecodePresentation(body []byte) []byte {
	return body
}

// SessionRequest is the parsed/pending body of a SESSION_REQUEST message
// (spec §4.4.2).
type SessionRequest struct {
	SessionNumber uint32
	HostID        [HostIdentifierSize]byte
	CipherSuites  []CipherSuite
	Curves        []EllipticCurve
	// Signature covers exactly UnsignedPayload(); it is RSA-PSS under the
	// sender's certificate key, or HMAC-SHA-256 under a pre-shared key.
	Signature []byte
}

// UnsignedPayload returns the exact byte sequence the signature (or HMAC)
// is computed over: everything in the message except the signature itself.
func (s SessionRequest) UnsignedPayload() []byte {
	size := 4 + HostIdentifierSize + 2 + len(s.CipherSuites) + 2 + len(s.Curves)
	buf := make([]byte, size)
	off := 0
	binary.BigEndian.PutUint32(buf[off:], s.SessionNumber)
	off += 4
	copy(buf[off:], s.HostID[:])
	off += HostIdentifierSize
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s.CipherSuites)))
	off += 2
	for _, cs := range s.CipherSuites {
		buf[off] = uint8(cs)
		off++
	}
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s.Curves)))
	off += 2
	for _, ec := range s.Curves {
		buf[off] = uint8(ec)
		off++
	}
	return buf
}

// WriteSessionRequest encodes a complete SESSION_REQUEST message.
func WriteSessionRequest(s SessionRequest) ([]byte, error) {
	unsigned := s.UnsignedPayload()
	bodyLen := len(unsigned) + 2 + len(s.Signature)
	buf, err := buildHeader(TypeSessionReq, bodyLen)
	if err != nil {
		return nil, err
	}
	off := HeaderSize
	off += copy(buf[off:], unsigned)
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s.Signature)))
	off += 2
	copy(buf[off:], s.Signature)
	return buf, nil
}

// DecodeSessionRequest parses a SESSION_REQUEST body.
func DecodeSessionRequest(body []byte) (SessionRequest, error) {
	var s SessionRequest
	if len(body) < 4+HostIdentifierSize+2 {
		return s, ErrMalformedBody
	}
	off := 0
	s.SessionNumber = binary.BigEndian.Uint32(body[off:])
	off += 4
	copy(s.HostID[:], body[off:off+HostIdentifierSize])
	off += HostIdentifierSize

	csLen := int(binary.BigEndian.Uint16(body[off:]))
	off += 2
	if len(body) < off+csLen+2 {
		return s, ErrMalformedBody
	}
	s.CipherSuites = make([]CipherSuite, csLen)
	for i := 0; i < csLen; i++ {
		s.CipherSuites[i] = CipherSuite(body[off])
		off++
	}

	ecLen := int(binary.BigEndian.Uint16(body[off:]))
	off += 2
	if len(body) < off+ecLen+2 {
		return s, ErrMalformedBody
	}
	s.Curves = make([]EllipticCurve, ecLen)
	for i := 0; i < ecLen; i++ {
		s.Curves[i] = EllipticCurve(body[off])
		off++
	}

	sigLen := int(binary.BigEndian.Uint16(body[off:]))
	off += 2
	if len(body) != off+sigLen {
		return s, ErrMalformedBody
	}
	s.Signature = append([]byte(nil), body[off:off+sigLen]...)
	return s, nil
}

// Session is the parsed/pending body of a SESSION message (spec §4.4.2).
type Session struct {
	SessionNumber  uint32
	HostID         [HostIdentifierSize]byte
	ChosenCipher   CipherSuite
	ChosenCurve    EllipticCurve
	EphemeralPubKey []byte
	Signature      []byte
}

// UnsignedPayload returns the exact byte sequence the signature (or HMAC)
// is computed over.
func (s Session) UnsignedPayload() []byte {
	size := 4 + HostIdentifierSize + 1 + 1 + 2 + 2 + len(s.EphemeralPubKey)
	buf := make([]byte, size)
	off := 0
	binary.BigEndian.PutUint32(buf[off:], s.SessionNumber)
	off += 4
	copy(buf[off:], s.HostID[:])
	off += HostIdentifierSize
	buf[off] = uint8(s.ChosenCipher)
	off++
	buf[off] = uint8(s.ChosenCurve)
	off++
	// Two reserved zero bytes, per spec §4.4.2.
	off += 2
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s.EphemeralPubKey)))
	off += 2
	copy(buf[off:], s.EphemeralPubKey)
	return buf
}

// WriteSession encodes a complete SESSION message.
func WriteSession(s Session) ([]byte, error) {
	unsigned := s.UnsignedPayload()
	bodyLen := len(unsigned) + 2 + len(s.Signature)
	buf, err := buildHeader(TypeSession, bodyLen)
	if err != nil {
		return nil, err
	}
	off := HeaderSize
	off += copy(buf[off:], unsigned)
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s.Signature)))
	off += 2
	copy(buf[off:], s.Signature)
	return buf, nil
}

// DecodeSession parses a SESSION body.
func DecodeSession(body []byte) (Session, error) {
	var s Session
	const fixed = 4 + HostIdentifierSize + 1 + 1 + 2 + 2
	if len(body) < fixed {
		return s, ErrMalformedBody
	}
	off := 0
	s.SessionNumber = binary.BigEndian.Uint32(body[off:])
	off += 4
	copy(s.HostID[:], body[off:off+HostIdentifierSize])
	off += HostIdentifierSize
	s.ChosenCipher = CipherSuite(body[off])
	off++
	s.ChosenCurve = EllipticCurve(body[off])
	off++
	off += 2 // reserved

	pkLen := int(binary.BigEndian.Uint16(body[off:]))
	off += 2
	if len(body) < off+pkLen+2 {
		return s, ErrMalformedBody
	}
	s.EphemeralPubKey = append([]byte(nil), body[off:off+pkLen]...)
	off += pkLen

	sigLen := int(binary.BigEndian.Uint16(body[off:]))
	off += 2
	if len(body) != off+sigLen {
		return s, ErrMalformedBody
	}
	s.Signature = append([]byte(nil), body[off:off+sigLen]...)
	return s, nil
}

// Data is a parsed/pending DATA message (spec §4.4.3).
type Data struct {
	Channel        uint8
	SessionNumber  uint32
	SequenceNumber uint32
	Tag            [AEADTagSize]byte
	Ciphertext     []byte
}

// WriteData encodes a complete DATA message. Ciphertext is the AEAD output
// excluding the tag; Tag is carried separately as the wire format requires.
func WriteData(d Data) ([]byte, error) {
	if d.Channel > 15 {
		return nil, ErrInvalidChannel
	}
	bodyLen := 4 + 4 + AEADTagSize + len(d.Ciphertext)
	buf, err := buildHeader(DataType(d.Channel), bodyLen)
	if err != nil {
		return nil, err
	}
	off := HeaderSize
	binary.BigEndian.PutUint32(buf[off:], d.SessionNumber)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], d.SequenceNumber)
	off += 4
	off += copy(buf[off:], d.Tag[:])
	copy(buf[off:], d.Ciphertext)
	return buf, nil
}

// DecodeData parses a DATA body for the given channel (extracted from the
// message type by the caller via Type.Channel()).
func DecodeData(channel uint8, body []byte) (Data, error) {
	var d Data
	if len(body) < 4+4+AEADTagSize {
		return d, ErrMalformedBody
	}
	d.Channel = channel
	off := 0
	d.SessionNumber = binary.BigEndian.Uint32(body[off:])
	off += 4
	d.SequenceNumber = binary.BigEndian.Uint32(body[off:])
	off += 4
	copy(d.Tag[:], body[off:off+AEADTagSize])
	off += AEADTagSize
	d.Ciphertext = append([]byte(nil), body[off:]...)
	return d, nil
}

// AAD builds the additional authenticated data for a DATA message's AEAD
// operation: the FSCP header plus the session number and sequence number
// fields (spec §4.3, §4.4.3). ciphertextLen is the length of the AEAD
// output excluding the tag, needed to reproduce the header's body-length
// field exactly as it will appear on the wire.
func AAD(channel uint8, sessionNumber, sequenceNumber uint32, ciphertextLen int) []byte {
	bodyLen := 4 + 4 + AEADTagSize + ciphertextLen
	buf := make([]byte, HeaderSize+4+4)
	Header{Version: ProtocolVersion, Type: DataType(channel), BodyLength: uint16(bodyLen)}.Encode(buf[:HeaderSize])
	binary.BigEndian.PutUint32(buf[HeaderSize:], sessionNumber)
	binary.BigEndian.PutUint32(buf[HeaderSize+4:], sequenceNumber)
	return buf
}
