package discovery

import (
	"testing"

	fcrypto "github.com/freelan-go/freelan/pkg/crypto"
)

func TestPeerTXTRoundTrip(t *testing.T) {
	hash := fcrypto.SHA256([]byte("a certificate, more or less"))
	want := PeerTXT{CertHash: hash, Version: 3}

	got, err := DecodePeerTXT(want.Encode())
	if err != nil {
		t.Fatalf("DecodePeerTXT: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodePeerTXTRejectsMissingHash(t *testing.T) {
	if _, err := DecodePeerTXT([]string{"v=3"}); err != ErrInvalidTXTRecord {
		t.Fatalf("got %v, want ErrInvalidTXTRecord", err)
	}
}

func TestDecodePeerTXTRejectsMalformedHash(t *testing.T) {
	if _, err := DecodePeerTXT([]string{"ch=not-hex", "v=3"}); err != ErrInvalidTXTRecord {
		t.Fatalf("got %v, want ErrInvalidTXTRecord", err)
	}
}
