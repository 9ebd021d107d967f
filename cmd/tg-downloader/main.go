package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-bulk-downloader/internal/config"
	"github.com/lueurxax/telegram-bulk-downloader/internal/downloader"
)

const defaultDownloadDir = "downloads"

func main() {
	list := flag.Bool("list", false, "List available groups/channels")
	download := flag.Bool("download", false, "Download media from a group/channel")
	entityID := flag.Int64("entity-id", 0, "ID of the group/channel to download from")
	mediaType := flag.String("media-type", "all", "Type of media to download (all, photos, documents, links, gifs)")
	limit := flag.Int("limit", 100, "Maximum number of messages to process (0 for unlimited)")
	days := flag.Int("days", 0, "Only download media from the last N days")
	contains := flag.String("contains", "", "Only download media from messages containing this text")
	downloadDir := flag.String("download-dir", defaultDownloadDir, "Directory to save downloaded files")

	flag.Parse()

	if !downloader.ValidMediaType(*mediaType) {
		fmt.Fprintf(os.Stderr, "Error: invalid media type %q (expected all, photos, documents, links or gifs).\n", *mediaType)
		os.Exit(1)
	}

	if !*list && !*download {
		flag.Usage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := downloader.New(cfg, *downloadDir, &logger)

	err = d.Run(ctx, func(ctx context.Context) error {
		if *list {
			_, err := d.ListDialogs(ctx)
			return err
		}

		if *entityID == 0 {
			fmt.Fprintln(os.Stderr, "Error: --entity-id is required for downloading.")

			_, err := d.ListDialogs(ctx)

			return err
		}

		job := downloader.Job{
			PeerID:      *entityID,
			MediaType:   downloader.MediaType(*mediaType),
			Limit:       *limit,
			Contains:    *contains,
			DownloadDir: *downloadDir,
		}

		if *days > 0 {
			job.MinDate = time.Now().AddDate(0, 0, -*days)
		}

		return d.DownloadMedia(ctx, job)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nOperation cancelled by user.")
			return
		}

		logger.Error().Err(err).Msg("run failed")
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	switch level {
	case "debug":
		return logger.Level(zerolog.DebugLevel)
	case "info":
		return logger.Level(zerolog.InfoLevel)
	case "warn":
		return logger.Level(zerolog.WarnLevel)
	case "error":
		return logger.Level(zerolog.ErrorLevel)
	default:
		return logger.Level(zerolog.InfoLevel)
	}
}
