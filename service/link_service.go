package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

const (
	// DefaultResponseTimeout bounds the wait for any single server
	// response during the handshake. The wallet signer wait is bounded
	// by the caller's context instead, since a human may take minutes.
	DefaultResponseTimeout = 2 * time.Minute

	// maxChallengeAttempts bounds how many times an expired challenge
	// is discarded and re-requested within one handshake.
	maxChallengeAttempts = 3
)

var (
	errResponseTimeout = errors.New("timed out waiting for server response")
	errServerError     = errors.New("server reported an error")
	errConnectionLost  = errors.New("connection lost mid-handshake")
)

// LinkService drives one wallet linking handshake: obtain a challenge,
// hand it to the wallet signer, submit the resulting proof and await
// the verification verdict. At most one handshake runs per instance;
// the in-flight challenge and proof never outlive it.
type LinkService struct {
	channel ports.Channel
	signer  ports.WalletSigner
	log     zerolog.Logger

	challengeTTL    time.Duration
	responseTimeout time.Duration

	mu       sync.Mutex
	inFlight bool

	messages chan core.ServerMessage
}

// NewLinkService creates a link service bound to an authenticated channel
func NewLinkService(channel ports.Channel, signer ports.WalletSigner, log zerolog.Logger) *LinkService {
	s := &LinkService{
		channel:         channel,
		signer:          signer,
		log:             log,
		challengeTTL:    core.DefaultChallengeTTL,
		responseTimeout: DefaultResponseTimeout,
		messages:        make(chan core.ServerMessage, 16),
	}

	channel.OnMessage(s.dispatch)

	return s
}

// dispatch funnels handshake-relevant server messages into the wait
// queue: typed responses, the connection-lost notification, and the
// generic error envelope. The channel itself handles authorization
// traffic, so the unauthorized envelope is not forwarded.
func (s *LinkService) dispatch(msg core.ServerMessage) {
	switch {
	case msg.Type == core.MessageTypeProof,
		msg.Type == core.MessageTypeErrorProof,
		msg.Type == core.MessageTypeVerify,
		msg.Type == core.MessageTypeConnectionLost:
	case msg.Type == "" && msg.Code != 0 && !msg.IsUnauthorized():
	default:
		return
	}

	select {
	case s.messages <- msg:
	default:
		s.log.Warn().Str("type", msg.Type).Msg("dropping message, no handshake waiting")
	}
}

// RequestLink runs the full linking handshake and returns its terminal
// result. A second call while one is in flight fails with
// core.ErrLinkInProgress; two wallets must never race for the same
// pending challenge slot. Cancelling ctx aborts the handshake,
// including the wallet signer wait.
func (s *LinkService) RequestLink(ctx context.Context) (core.LinkResult, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return core.LinkResult{}, core.ErrLinkInProgress
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if state := s.channel.State(); state != core.StateAuthenticated {
		return core.LinkResult{}, fmt.Errorf("channel is %s, challenge requires an authenticated session", state)
	}

	s.drainStale()

	for attempt := 0; attempt < maxChallengeAttempts; attempt++ {
		challenge, result, done, err := s.fetchChallenge(ctx)
		if errors.Is(err, errConnectionLost) {
			s.log.Warn().Msg("connection lost awaiting challenge, restarting handshake")
			continue
		}
		if err != nil || done {
			return result, err
		}

		if challenge.Expired(time.Now()) {
			// The payload arrived after its own freshness window:
			// discard it and ask for a fresh one.
			s.log.Debug().Msg("challenge expired on arrival, re-requesting")
			continue
		}

		account, proof, err := s.signer.RequestProof(ctx, challenge)
		if err != nil {
			if errors.Is(err, core.ErrSignerCancelled) || errors.Is(err, context.Canceled) {
				s.log.Info().Msg("wallet signer cancelled")
				return core.LinkResult{Status: core.StatusCancelled}, nil
			}
			return core.LinkResult{}, fmt.Errorf("wallet signer failed: %w", err)
		}

		if challenge.Expired(time.Now()) {
			// The signer took longer than the freshness window. The
			// proof is bound to a dead challenge and must never be
			// submitted.
			s.log.Debug().Msg("challenge expired while signing, discarding proof")
			continue
		}

		if s.connectionDropped() {
			// The challenge is bound to a connection that no longer
			// exists. The proof must not ride over to the next one.
			s.log.Warn().Msg("connection dropped while signing, discarding proof")
			continue
		}

		result, retry, err := s.submitProof(ctx, challenge, account, proof)
		if errors.Is(err, errConnectionLost) {
			s.log.Warn().Msg("connection lost awaiting verdict, restarting handshake")
			continue
		}
		if err != nil || !retry {
			return result, err
		}
	}

	return core.LinkResult{Status: core.StatusTimedOut}, nil
}

// fetchChallenge requests a challenge and waits for the payload. The
// challenge age clock starts when the request is sent, not when the
// payload arrives.
func (s *LinkService) fetchChallenge(ctx context.Context) (core.Challenge, core.LinkResult, bool, error) {
	requestedAt := time.Now()

	if err := s.channel.Send(core.NewGetProofMessage()); err != nil {
		return core.Challenge{}, core.LinkResult{}, false, fmt.Errorf("failed to request challenge: %w", err)
	}

	msg, err := s.await(ctx, core.MessageTypeProof, core.MessageTypeErrorProof)
	if errors.Is(err, errConnectionLost) {
		return core.Challenge{}, core.LinkResult{}, false, err
	}
	if errors.Is(err, errServerError) {
		s.log.Warn().Int("code", msg.Code).Str("error", msg.Error).Msg("server rejected the challenge request")
		return core.Challenge{}, core.LinkResult{Status: core.StatusRejected, Reason: rejectionReason(msg)}, true, nil
	}
	if err != nil {
		result, terr := s.terminalWaitResult(err)
		return core.Challenge{}, result, true, terr
	}

	if msg.Type == core.MessageTypeErrorProof {
		s.log.Warn().Str("message", msg.Message).Msg("backend cannot issue a challenge")
		return core.Challenge{}, core.LinkResult{Status: core.StatusRejected, Reason: msg.Message}, true, nil
	}

	challenge := core.Challenge{
		Payload:  msg.Payload,
		IssuedAt: requestedAt,
		TTL:      s.challengeTTL,
	}

	return challenge, core.LinkResult{}, false, nil
}

// submitProof sends the verify request and waits for the verdict. A
// transport failure is retried once with the same proof, but only
// while the challenge is still fresh; afterwards the caller must fetch
// a fresh challenge. An explicit rejection is terminal for this
// challenge and the proof is never resubmitted.
func (s *LinkService) submitProof(ctx context.Context, challenge core.Challenge, account core.TonAccount, proof core.WalletProof) (core.LinkResult, bool, error) {
	for submission := 0; submission < 2; submission++ {
		if err := s.channel.Send(core.NewVerifyMessage(account, proof)); err != nil {
			if challenge.Expired(time.Now()) {
				return core.LinkResult{}, true, nil
			}
			s.log.Warn().Err(err).Msg("proof submission failed, retrying once")
			continue
		}

		msg, err := s.await(ctx, core.MessageTypeVerify)
		if errors.Is(err, errConnectionLost) {
			return core.LinkResult{}, false, err
		}
		if errors.Is(err, errServerError) {
			s.log.Warn().Int("code", msg.Code).Str("error", msg.Error).Msg("server rejected the proof submission")
			return core.LinkResult{Status: core.StatusRejected, Reason: rejectionReason(msg)}, false, nil
		}
		if err != nil {
			result, terr := s.terminalWaitResult(err)
			return result, false, terr
		}

		if msg.Status == core.StatusOK {
			s.log.Info().Str("address", account.Address).Msg("wallet linked")
			return core.LinkResult{Status: core.StatusLinked, Address: account.Address}, false, nil
		}

		reason := rejectionReason(msg)
		s.log.Warn().Str("reason", reason).Msg("proof rejected")
		return core.LinkResult{Status: core.StatusRejected, Reason: reason}, false, nil
	}

	// Both submission attempts failed at the transport level; a fresh
	// challenge is required before trying again.
	return core.LinkResult{}, true, nil
}

// await blocks until a message of one of the given types arrives. A
// generic error envelope or the loss of the connection ends the wait
// immediately, returning the message with errServerError or
// errConnectionLost; the caller never sits out the timeout when the
// server already answered.
func (s *LinkService) await(ctx context.Context, types ...string) (core.ServerMessage, error) {
	timeout := time.NewTimer(s.responseTimeout)
	defer timeout.Stop()

	for {
		select {
		case msg := <-s.messages:
			if msg.Type == core.MessageTypeConnectionLost {
				return msg, errConnectionLost
			}
			if msg.Type == "" && msg.Code != 0 {
				return msg, errServerError
			}
			for _, t := range types {
				if msg.Type == t {
					return msg, nil
				}
			}
			// A response from a superseded step; ignore it.
		case <-ctx.Done():
			return core.ServerMessage{}, ctx.Err()
		case <-timeout.C:
			return core.ServerMessage{}, errResponseTimeout
		}
	}
}

// terminalWaitResult maps a wait failure to its terminal link result
func (s *LinkService) terminalWaitResult(err error) (core.LinkResult, error) {
	switch {
	case errors.Is(err, context.Canceled):
		return core.LinkResult{Status: core.StatusCancelled}, nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, errResponseTimeout):
		return core.LinkResult{Status: core.StatusTimedOut}, nil
	default:
		return core.LinkResult{}, err
	}
}

func (s *LinkService) drainStale() {
	for {
		select {
		case <-s.messages:
		default:
			return
		}
	}
}

// connectionDropped drains buffered messages and reports whether the
// connection was lost among them. Anything else buffered at this point
// belongs to a superseded step.
func (s *LinkService) connectionDropped() bool {
	dropped := false
	for {
		select {
		case msg := <-s.messages:
			if msg.Type == core.MessageTypeConnectionLost {
				dropped = true
			}
		default:
			return dropped
		}
	}
}

// rejectionReason extracts the most specific reason a server response
// carries for refusing a step.
func rejectionReason(msg core.ServerMessage) string {
	switch {
	case msg.Error != "":
		return msg.Error
	case msg.Message != "":
		return msg.Message
	default:
		return fmt.Sprintf("server error %d", msg.Code)
	}
}
