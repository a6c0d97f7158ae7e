package discovery

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TXT record keys. Grounded on the teacher's txt.go key/value encoding
// style, reduced to the two facts a bootstrapping FSCP node needs to
// decide whether a discovered instance is worth a CONTACT_REQUEST: the
// advertiser's certificate hash and the FSCP wire version it speaks.
const (
	txtKeyCertHash = "ch"
	txtKeyVersion  = "v"
)

// PeerTXT is the structured content of a "_freelan._udp" TXT record.
type PeerTXT struct {
	// CertHash is the SHA-256 of the advertiser's DER-encoded certificate,
	// the same identifier used for router.PeerID and the CONTACT
	// sub-protocol (spec §4.4.4, §6).
	CertHash [32]byte
	// Version is the FSCP wire version the advertiser speaks (spec §3's
	// header version field).
	Version uint8
}

// Encode renders t as the strings zeroconf.Register expects for its txt
// argument.
func (t PeerTXT) Encode() []string {
	return []string{
		fmt.Sprintf("%s=%s", txtKeyCertHash, hex.EncodeToString(t.CertHash[:])),
		fmt.Sprintf("%s=%d", txtKeyVersion, t.Version),
	}
}

// DecodePeerTXT parses the TXT strings reported by zeroconf.ServiceEntry.
func DecodePeerTXT(txt []string) (PeerTXT, error) {
	var out PeerTXT
	var haveHash bool
	for _, kv := range txt {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case txtKeyCertHash:
			raw, err := hex.DecodeString(v)
			if err != nil || len(raw) != 32 {
				return PeerTXT{}, ErrInvalidTXTRecord
			}
			copy(out.CertHash[:], raw)
			haveHash = true
		case txtKeyVersion:
			var ver uint8
			if _, err := fmt.Sscanf(v, "%d", &ver); err != nil {
				return PeerTXT{}, ErrInvalidTXTRecord
			}
			out.Version = ver
		}
	}
	if !haveHash {
		return PeerTXT{}, ErrInvalidTXTRecord
	}
	return out, nil
}
