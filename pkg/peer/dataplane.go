package peer

import (
	"context"
	"time"

	fcrypto "github.com/freelan-go/freelan/pkg/crypto"
	"github.com/freelan-go/freelan/pkg/wire"
)

// SendData encrypts plaintext under the current keySet and sends it on the
// given channel (0-14 for tunneled frames, wire.ControlChannel for
// internal control messages). It fails with ErrSessionNotEstablished
// before the first handshake completes.
func (s *Session) SendData(ctx context.Context, channel uint8, plaintext []byte, sender Sender) error {
	errCh := make(chan error, 1)
	s.Submit(func() {
		errCh <- s.sendData(ctx, channel, plaintext, sender)
	})
	return <-errCh
}

func (s *Session) sendData(ctx context.Context, channel uint8, plaintext []byte, sender Sender) error {
	if channel > wire.ControlChannel {
		return s.reportError(ErrInvalidChannel)
	}
	if !s.State().Established() || s.current == nil {
		return s.reportError(ErrSessionNotEstablished)
	}

	// Once our own SESSION for a rekey has been confirmed by the peer's
	// SESSION (handleSession populates next), new outbound traffic moves
	// to the new keys immediately; current is kept only so inbound DATA
	// still arriving under the old session_number keeps decrypting until
	// the peer makes the same switch (spec §4.4.5).
	ks := s.current
	if s.next != nil {
		ks = s.next
	}
	seq := ks.localSeq
	ks.localSeq++

	nonce := fcrypto.BuildNonce(ks.noncePrefixLocal, seq)
	aad := wire.AAD(channel, ks.localSessionNumber, seq, len(plaintext))
	sealed := ks.encrypt.Seal(nonce, plaintext, aad)

	var tag [wire.AEADTagSize]byte
	copy(tag[:], sealed[len(sealed)-wire.AEADTagSize:])
	msg, err := wire.WriteData(wire.Data{
		Channel:        channel,
		SessionNumber:  ks.localSessionNumber,
		SequenceNumber: seq,
		Tag:            tag,
		Ciphertext:     sealed[:len(sealed)-wire.AEADTagSize],
	})
	if err != nil {
		return s.reportError(err)
	}
	if err := sender.Send(ctx, msg); err != nil {
		return s.reportError(err)
	}
	s.lastSentAt = time.Now()
	s.maybeRekeyAt(ctx, s.lastSentAt, sender)
	return nil
}

// handleData decrypts an inbound DATA message, checks the replay window,
// promotes a pending rekey if this is the first message under the new
// session_number, and dispatches to the control sub-protocol or to
// Config.OnFrame (spec §4.4.3, §4.4.5).
func (s *Session) handleData(ctx context.Context, channel uint8, body []byte, sender Sender) error {
	d, err := wire.DecodeData(channel, body)
	if err != nil {
		return s.reportError(err)
	}
	ks, fresh := s.selectKeySetForDecrypt(d.SessionNumber)
	if ks == nil {
		return s.reportError(ErrUnknownSessionNumber)
	}

	nonce := fcrypto.BuildNonce(ks.noncePrefixRemote, d.SequenceNumber)
	aad := wire.AAD(channel, d.SessionNumber, d.SequenceNumber, len(d.Ciphertext))
	sealed := append(append([]byte(nil), d.Ciphertext...), d.Tag[:]...)
	plaintext, err := ks.decrypt.Open(nonce, sealed, aad)
	if err != nil {
		return s.reportError(ErrDecryptionFailed)
	}

	if !ks.remoteWindow.accept(d.SequenceNumber) {
		return s.reportError(ErrReplayDetected)
	}

	if fresh {
		s.promoteKeySet(ks)
	}

	if channel == wire.ControlChannel {
		return s.handleControl(ctx, plaintext, sender)
	}
	if s.cfg.OnFrame != nil {
		s.cfg.OnFrame(channel, plaintext)
	}
	return nil
}

// selectKeySetForDecrypt picks the keySet whose remoteSessionNumber
// matches the incoming DATA's session_number: the current one, or the
// staged "next" one while a rekey is awaiting its first DATA message.
// fresh reports whether this is the next keySet, in which case a
// successful decrypt promotes it.
func (s *Session) selectKeySetForDecrypt(sessionNumber uint32) (ks *keySet, fresh bool) {
	if s.current != nil && sessionNumber == s.current.remoteSessionNumber {
		return s.current, false
	}
	if s.next != nil && sessionNumber == s.next.remoteSessionNumber {
		return s.next, true
	}
	return nil, false
}

// promoteKeySet atomically replaces current with a newly-confirmed
// generation and discards the old one, per the rekey rule that both key
// sets are kept until DATA arrives under the newer session_number
// (spec §4.4.5).
func (s *Session) promoteKeySet(ks *keySet) {
	s.current = ks
	s.next = nil
	s.setState(StateEstablished)
}

func (s *Session) handleControl(ctx context.Context, plaintext []byte, sender Sender) error {
	subType, body, err := wire.DecodeControl(plaintext)
	if err != nil {
		return s.reportError(err)
	}
	switch subType {
	case wire.SubTypeKeepAlive:
		return nil
	case wire.SubTypeContactRequest:
		req, err := wire.DecodeContactRequest(body)
		if err != nil {
			return s.reportError(err)
		}
		return s.replyContact(ctx, req, sender)
	case wire.SubTypeContact:
		contact, err := wire.DecodeContact(body)
		if err != nil {
			return s.reportError(err)
		}
		if s.cfg.ContactHooks.OnContact != nil {
			s.cfg.ContactHooks.OnContact(contact.Candidates)
		}
		return nil
	default:
		return s.reportError(ErrUnknownControlSubType)
	}
}

func (s *Session) replyContact(ctx context.Context, req wire.ContactRequest, sender Sender) error {
	if s.cfg.ContactHooks.ResolveHashes == nil {
		return nil
	}
	candidates := s.cfg.ContactHooks.ResolveHashes(req.Hashes)
	if len(candidates) == 0 {
		return nil
	}
	body, err := wire.WriteContact(wire.Contact{Candidates: candidates})
	if err != nil {
		return s.reportError(err)
	}
	return s.sendData(ctx, wire.ControlChannel, body, sender)
}

// SendContactRequest asks this peer for introductions to the given
// certificate hashes (spec §4.4.4).
func (s *Session) SendContactRequest(ctx context.Context, hashes [][wire.CertificateHashSize]byte, sender Sender) error {
	errCh := make(chan error, 1)
	s.Submit(func() {
		body := wire.WriteContactRequest(wire.ContactRequest{Hashes: hashes})
		errCh <- s.sendData(ctx, wire.ControlChannel, body, sender)
	})
	return <-errCh
}

func (s *Session) sendKeepAlive(ctx context.Context, sender Sender) error {
	padLen := wire.KeepAlivePaddingSizes[int(s.keepAliveCounter)%len(wire.KeepAlivePaddingSizes)]
	s.keepAliveCounter++
	body, err := wire.WriteKeepAlive(padLen)
	if err != nil {
		return s.reportError(err)
	}
	return s.sendData(ctx, wire.ControlChannel, body, sender)
}

// Tick drives every time-based behavior of an established Session:
// session timeout, keep-alive, and rekey triggers (spec §4.4.3, §4.4.5,
// §4.4.6). Call it periodically (e.g. once a second) for every live
// Session. now is passed in rather than read internally so tests can
// drive it deterministically.
func (s *Session) Tick(ctx context.Context, now time.Time, sender Sender) {
	s.Submit(func() {
		if !s.State().Established() {
			return
		}
		if !s.lastReceivedAt.IsZero() && now.Sub(s.lastReceivedAt) > s.cfg.Params.SessionTimeout {
			s.setState(StateLost)
			return
		}
		if s.lastSentAt.IsZero() || now.Sub(s.lastSentAt) > s.cfg.Params.KeepAlivePeriod {
			if err := s.sendKeepAlive(ctx, sender); err != nil {
				s.reportError(err)
			}
		}
		s.maybeRekeyAt(ctx, now, sender)
	})
}

// maybeRekeyAt starts a rekey when the current keySet has sent enough
// messages or aged enough (spec §4.4.5). It only has an effect from
// StateEstablished: a rekey already in flight (StateRekeying) is left
// alone until it resolves or fails.
func (s *Session) maybeRekeyAt(ctx context.Context, now time.Time, sender Sender) {
	if s.state != StateEstablished || s.current == nil {
		return
	}
	age := now.Sub(s.current.establishedAt)
	if s.current.localSeq < s.cfg.Params.RekeyThreshold && age < s.cfg.Params.MaxSessionAge {
		return
	}
	if err := s.sendSessionRequest(ctx, sender, StateRekeying); err != nil {
		s.reportError(err)
	}
}
