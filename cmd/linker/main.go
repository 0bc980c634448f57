// Command linker runs one wallet linking handshake against a backend,
// useful for exercising the flow outside of the Mini App.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheLegendOwner/manetka-miniapp/adapters/channel"
	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/service"
)

// promptSigner shells the challenge out to a human: it prints the
// payload and reads the signed proof fields from environment variables.
// A real deployment bridges to TON Connect instead.
type promptSigner struct {
	log zerolog.Logger
}

func (s promptSigner) RequestProof(ctx context.Context, c core.Challenge) (core.TonAccount, core.WalletProof, error) {
	s.log.Info().Str("payload", c.Payload).Msg("sign this payload with your wallet")

	address := os.Getenv("WALLET_ADDRESS")
	signature := os.Getenv("WALLET_SIGNATURE")
	if address == "" || signature == "" {
		return core.TonAccount{}, core.WalletProof{}, core.ErrSignerCancelled
	}

	account := core.TonAccount{
		Address:         address,
		Network:         os.Getenv("WALLET_NETWORK"),
		PublicKey:       os.Getenv("WALLET_PUBLIC_KEY"),
		WalletStateInit: os.Getenv("WALLET_STATE_INIT"),
	}
	proof := core.WalletProof{
		Timestamp: time.Now().Unix(),
		Domain:    os.Getenv("WALLET_PROOF_DOMAIN"),
		Signature: signature,
		Payload:   c.Payload,
	}

	return account, proof, nil
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	wsURL := os.Getenv("WS_URL")
	initData := os.Getenv("TELEGRAM_INIT_DATA")
	if wsURL == "" || initData == "" {
		log.Fatal().Msg("WS_URL and TELEGRAM_INIT_DATA must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ch := channel.New(channel.Config{
		URL:      wsURL,
		InitData: initData,
		Logger:   log,
	})
	defer ch.Close()

	linker := service.NewLinkService(ch, promptSigner{log: log}, log)

	if err := ch.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}

	// The channel authenticates asynchronously after the dial.
	for ch.State() != core.StateAuthenticated {
		select {
		case <-ctx.Done():
			log.Fatal().Msg("interrupted before authentication completed")
		case <-time.After(100 * time.Millisecond):
		}
	}

	result, err := linker.RequestLink(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("linking failed")
	}

	switch result.Status {
	case core.StatusLinked:
		log.Info().Str("address", result.Address).Msg("wallet linked")
	case core.StatusRejected:
		log.Error().Str("reason", result.Reason).Msg("proof rejected")
	default:
		log.Warn().Stringer("status", result.Status).Msg("linking did not complete")
	}
}
