package wire

// Type is the FSCP message type byte (spec §4.1).
type Type uint8

const (
	TypeHelloRequest  Type = 0x00
	TypeHelloResponse Type = 0x01
	TypePresentation  Type = 0x02
	TypeSessionReq    Type = 0x03
	TypeSession       Type = 0x04
)

// IsData reports whether t is one of the 16 DATA channel types (0x70..0x7F).
func (t Type) IsData() bool {
	return uint8(t)&0xF0 == DataChannelBase
}

// Channel extracts the channel number from a DATA type byte.
func (t Type) Channel() uint8 {
	return uint8(t) & 0x0F
}

// DataType builds the type byte for a DATA message on the given channel.
func DataType(channel uint8) Type {
	return Type(DataChannelBase | (channel & 0x0F))
}

func (t Type) String() string {
	switch {
	case t == TypeHelloRequest:
		return "HELLO_REQUEST"
	case t == TypeHelloResponse:
		return "HELLO_RESPONSE"
	case t == TypePresentation:
		return "PRESENTATION"
	case t == TypeSessionReq:
		return "SESSION_REQUEST"
	case t == TypeSession:
		return "SESSION"
	case t.IsData():
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// CipherSuite is the wire ID for an AEAD/key-size combination (spec §6).
type CipherSuite uint8

const (
	CipherSuiteAES128GCMSHA256 CipherSuite = 0x01
	CipherSuiteAES256GCMSHA256 CipherSuite = 0x02
)

// KeySize returns the AEAD key size in bytes for the cipher suite.
func (c CipherSuite) KeySize() int {
	switch c {
	case CipherSuiteAES128GCMSHA256:
		return 16
	case CipherSuiteAES256GCMSHA256:
		return 32
	default:
		return 0
	}
}

func (c CipherSuite) IsValid() bool {
	return c == CipherSuiteAES128GCMSHA256 || c == CipherSuiteAES256GCMSHA256
}

func (c CipherSuite) String() string {
	switch c {
	case CipherSuiteAES128GCMSHA256:
		return "ECDHE_RSA_AES128_GCM_SHA256"
	case CipherSuiteAES256GCMSHA256:
		return "ECDHE_RSA_AES256_GCM_SHA256"
	default:
		return "UNKNOWN"
	}
}

// EllipticCurve is the wire ID for the ECDHE group (spec §6).
type EllipticCurve uint8

const (
	CurveSect571k1 EllipticCurve = 0x01
	CurveSecp384r1 EllipticCurve = 0x02
	CurveSecp521r1 EllipticCurve = 0x03
)

func (e EllipticCurve) IsValid() bool {
	return e == CurveSect571k1 || e == CurveSecp384r1 || e == CurveSecp521r1
}

func (e EllipticCurve) String() string {
	switch e {
	case CurveSect571k1:
		return "sect571k1"
	case CurveSecp384r1:
		return "secp384r1"
	case CurveSecp521r1:
		return "secp521r1"
	default:
		return "UNKNOWN"
	}
}

// ContactFamily identifies the address family of a CONTACT candidate
// endpoint (spec §4.4.4).
type ContactFamily uint8

const (
	ContactFamilyIPv4 ContactFamily = 4
	ContactFamilyIPv6 ContactFamily = 6
)

func (f ContactFamily) AddrSize() int {
	switch f {
	case ContactFamilyIPv4:
		return 4
	case ContactFamilyIPv6:
		return 16
	default:
		return 0
	}
}

func (f ContactFamily) IsValid() bool {
	return f == ContactFamilyIPv4 || f == ContactFamilyIPv6
}

// ControlSubType is the opcode of a control sub-message carried inside a
// DATA datagram on the control channel (spec §4.4.4, §4.4.3).
type ControlSubType uint8

const (
	SubTypeContactRequest ControlSubType = 0xFD
	SubTypeContact        ControlSubType = 0xFE
	SubTypeKeepAlive      ControlSubType = 0xFF
)
