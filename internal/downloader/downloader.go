// Package downloader implements bulk download of media and links from
// Telegram conversations over a gotd MTProto session.
package downloader

import (
	"context"
	"fmt"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-bulk-downloader/internal/config"
)

// Downloader owns the Telegram client for a single run. All operations must
// be called from inside the callback passed to Run.
type Downloader struct {
	cfg         *config.Config
	logger      *zerolog.Logger
	downloadDir string

	api     *tg.Client
	limiter *rate.Limiter

	// Swapped out in tests to avoid network calls.
	fetchFile    func(ctx context.Context, loc tg.InputFileLocationClass, dest string) error
	fetchDialogs func(ctx context.Context) ([]Dialog, error)
	fetchHistory func(ctx context.Context, peer tg.InputPeerClass, filter tg.MessagesFilterClass, limit int, minDate time.Time) ([]*tg.Message, error)
}

func New(cfg *config.Config, downloadDir string, logger *zerolog.Logger) *Downloader {
	rps := cfg.RateLimitRPS
	if rps < 1 {
		rps = 1
	}

	d := &Downloader{
		cfg:         cfg,
		logger:      logger,
		downloadDir: downloadDir,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
	d.fetchFile = d.downloadToFile
	d.fetchDialogs = d.Dialogs
	d.fetchHistory = d.fetchMessages

	return d
}

// Run connects, authenticates if no stored session exists, and invokes fn.
// The session is persisted to cfg.TGSessionPath by the client; disconnect is
// guaranteed when Run returns, on both success and error paths.
func (d *Downloader) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	client := telegram.NewClient(d.cfg.TGAPIID, d.cfg.TGAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: d.cfg.TGSessionPath,
		},
	})

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, d.authFlow()); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}

		d.logger.Info().Msg("successfully authenticated with Telegram")
		fmt.Println("Successfully authenticated with Telegram!")

		d.api = tg.NewClient(client)

		return fn(ctx)
	})
}
