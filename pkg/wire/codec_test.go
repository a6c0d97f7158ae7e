package wire

import "bytes"

import "testing"

func TestHelloRoundTrip(t *testing.T) {
	buf, err := WriteHelloResponse(0xcafebabe)
	if err != nil {
		t.Fatalf("WriteHelloResponse: %v", err)
	}
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Type != TypeHelloResponse {
		t.Fatalf("got %v, want TypeHelloResponse", p.Type)
	}
	n, err := DecodeHello(p.Body)
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if n != 0xcafebabe {
		t.Fatalf("got %#x, want %#x", n, 0xcafebabe)
	}
}

func TestPresentationRoundTrip(t *testing.T) {
	cert := []byte{0x30, 0x82, 0x01, 0x0a, 0x02, 0x01, 0x00}
	buf, err := WritePresentation(cert)
	if err != nil {
		t.Fatalf("WritePresentation: %v", err)
	}
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(DecodePresentation(p.Body), cert) {
		t.Fatalf("cert bytes mismatch")
	}
}

func TestSessionRequestRoundTrip(t *testing.T) {
	sr := SessionRequest{
		SessionNumber: 1,
		CipherSuites:  []CipherSuite{CipherSuiteAES128GCMSHA256, CipherSuiteAES256GCMSHA256},
		Curves:        []EllipticCurve{CurveSecp384r1, CurveSecp521r1},
		Signature:     bytes.Repeat([]byte{0x5a}, 256),
	}
	for i := range sr.HostID {
		sr.HostID[i] = byte(i)
	}

	buf, err := WriteSessionRequest(sr)
	if err != nil {
		t.Fatalf("WriteSessionRequest: %v", err)
	}
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Type != TypeSessionReq {
		t.Fatalf("got %v, want TypeSessionReq", p.Type)
	}
	got, err := DecodeSessionRequest(p.Body)
	if err != nil {
		t.Fatalf("DecodeSessionRequest: %v", err)
	}
	if got.SessionNumber != sr.SessionNumber || got.HostID != sr.HostID {
		t.Fatalf("header fields mismatch: %+v", got)
	}
	if len(got.CipherSuites) != 2 || got.CipherSuites[0] != CipherSuiteAES128GCMSHA256 {
		t.Fatalf("cipher suites mismatch: %+v", got.CipherSuites)
	}
	if len(got.Curves) != 2 || got.Curves[1] != CurveSecp521r1 {
		t.Fatalf("curves mismatch: %+v", got.Curves)
	}
	if !bytes.Equal(got.Signature, sr.Signature) {
		t.Fatalf("signature mismatch")
	}
	if !bytes.Equal(got.UnsignedPayload(), sr.UnsignedPayload()) {
		t.Fatalf("unsigned payload mismatch")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := Session{
		SessionNumber:   2,
		ChosenCipher:    CipherSuiteAES256GCMSHA256,
		ChosenCurve:     CurveSecp521r1,
		EphemeralPubKey: bytes.Repeat([]byte{0x11}, 133),
		Signature:       bytes.Repeat([]byte{0x22}, 256),
	}
	for i := range s.HostID {
		s.HostID[i] = byte(255 - i)
	}

	buf, err := WriteSession(s)
	if err != nil {
		t.Fatalf("WriteSession: %v", err)
	}
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := DecodeSession(p.Body)
	if err != nil {
		t.Fatalf("DecodeSession: %v", err)
	}
	if got.ChosenCipher != s.ChosenCipher || got.ChosenCurve != s.ChosenCurve {
		t.Fatalf("chosen params mismatch: %+v", got)
	}
	if !bytes.Equal(got.EphemeralPubKey, s.EphemeralPubKey) {
		t.Fatalf("ephemeral pubkey mismatch")
	}
	if !bytes.Equal(got.Signature, s.Signature) {
		t.Fatalf("signature mismatch")
	}
}

func TestDataRoundTrip(t *testing.T) {
	d := Data{
		Channel:        3,
		SessionNumber:  7,
		SequenceNumber: 42,
		Ciphertext:     []byte("hello over the wire"),
	}
	for i := range d.Tag {
		d.Tag[i] = byte(i)
	}

	buf, err := WriteData(d)
	if err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Type != DataType(3) || p.Type.Channel() != 3 {
		t.Fatalf("got type %v, channel %d", p.Type, p.Type.Channel())
	}
	got, err := DecodeData(p.Type.Channel(), p.Body)
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if got.SessionNumber != d.SessionNumber || got.SequenceNumber != d.SequenceNumber {
		t.Fatalf("numbers mismatch: %+v", got)
	}
	if got.Tag != d.Tag {
		t.Fatalf("tag mismatch")
	}
	if !bytes.Equal(got.Ciphertext, d.Ciphertext) {
		t.Fatalf("ciphertext mismatch")
	}
}

func TestDataRejectsChannelOutOfRange(t *testing.T) {
	if _, err := WriteData(Data{Channel: 16}); err != ErrInvalidChannel {
		t.Fatalf("got %v, want ErrInvalidChannel", err)
	}
}

func TestAADMatchesTransmittedHeader(t *testing.T) {
	ciphertext := []byte("some ciphertext")
	d := Data{Channel: ControlChannel, SessionNumber: 9, SequenceNumber: 100, Ciphertext: ciphertext}
	buf, err := WriteData(d)
	if err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	aad := AAD(d.Channel, d.SessionNumber, d.SequenceNumber, len(ciphertext))
	if !bytes.Equal(aad[:HeaderSize+4+4], buf[:HeaderSize+4+4]) {
		t.Fatalf("AAD does not match transmitted header+numbers")
	}
}
