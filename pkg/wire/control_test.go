package wire

import "bytes"

import "testing"

func TestKeepAliveRoundTrip(t *testing.T) {
	for _, padLen := range KeepAlivePaddingSizes {
		body, err := WriteKeepAlive(padLen)
		if err != nil {
			t.Fatalf("WriteKeepAlive(%d): %v", padLen, err)
		}
		sub, rest, err := DecodeControl(body)
		if err != nil {
			t.Fatalf("DecodeControl: %v", err)
		}
		if sub != SubTypeKeepAlive {
			t.Fatalf("got subtype %v, want SubTypeKeepAlive", sub)
		}
		if len(rest) != 1+padLen {
			t.Fatalf("got rest len %d, want %d", len(rest), 1+padLen)
		}
		if int(rest[0]) != padLen {
			t.Fatalf("got encoded padLen %d, want %d", rest[0], padLen)
		}
	}
}

func TestContactRequestRoundTrip(t *testing.T) {
	req := ContactRequest{Hashes: [][CertificateHashSize]byte{{}, {}}}
	for i := range req.Hashes[0] {
		req.Hashes[0][i] = byte(i)
	}
	for i := range req.Hashes[1] {
		req.Hashes[1][i] = byte(255 - i)
	}

	body := WriteContactRequest(req)
	sub, rest, err := DecodeControl(body)
	if err != nil {
		t.Fatalf("DecodeControl: %v", err)
	}
	if sub != SubTypeContactRequest {
		t.Fatalf("got subtype %v, want SubTypeContactRequest", sub)
	}
	got, err := DecodeContactRequest(rest)
	if err != nil {
		t.Fatalf("DecodeContactRequest: %v", err)
	}
	if len(got.Hashes) != 2 || got.Hashes[0] != req.Hashes[0] || got.Hashes[1] != req.Hashes[1] {
		t.Fatalf("hashes mismatch: %+v", got)
	}
}

func TestContactRoundTrip(t *testing.T) {
	c := Contact{
		Candidates: []ContactCandidate{
			{Family: ContactFamilyIPv4, Addr: []byte{192, 0, 2, 1}, Port: 4562},
			{Family: ContactFamilyIPv6, Addr: bytes.Repeat([]byte{0xab}, 16), Port: 4563},
		},
	}
	for i := range c.Candidates[0].Hash {
		c.Candidates[0].Hash[i] = byte(i)
	}
	for i := range c.Candidates[1].Hash {
		c.Candidates[1].Hash[i] = byte(2 * i)
	}

	body, err := WriteContact(c)
	if err != nil {
		t.Fatalf("WriteContact: %v", err)
	}
	sub, rest, err := DecodeControl(body)
	if err != nil {
		t.Fatalf("DecodeControl: %v", err)
	}
	if sub != SubTypeContact {
		t.Fatalf("got subtype %v, want SubTypeContact", sub)
	}
	got, err := DecodeContact(rest)
	if err != nil {
		t.Fatalf("DecodeContact: %v", err)
	}
	if len(got.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got.Candidates))
	}
	for i, cand := range got.Candidates {
		want := c.Candidates[i]
		if cand.Hash != want.Hash || cand.Family != want.Family || cand.Port != want.Port {
			t.Fatalf("candidate %d mismatch: %+v", i, cand)
		}
		if !bytes.Equal(cand.Addr, want.Addr) {
			t.Fatalf("candidate %d addr mismatch", i)
		}
	}
}

func TestContactRejectsBadFamily(t *testing.T) {
	c := Contact{Candidates: []ContactCandidate{{Family: ContactFamily(9), Addr: []byte{1, 2, 3, 4}}}}
	if _, err := WriteContact(c); err != ErrInvalidFamily {
		t.Fatalf("got %v, want ErrInvalidFamily", err)
	}
}

func TestDecodeContactTruncated(t *testing.T) {
	if _, err := DecodeContact([]byte{1}); err != ErrMalformedBody {
		t.Fatalf("got %v, want ErrMalformedBody", err)
	}
}
