package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-bulk-downloader/internal/linkextract"
)

// MediaType selects what a download job fetches from a conversation.
type MediaType string

const (
	MediaAll       MediaType = "all"
	MediaPhotos    MediaType = "photos"
	MediaDocuments MediaType = "documents"
	MediaLinks     MediaType = "links"
	MediaGifs      MediaType = "gifs"
)

const (
	messagePageSize = 100
	linksFileName   = "extracted_links.txt"
	dirPerm         = 0o755
)

// ValidMediaType reports whether s is an accepted --media-type value.
func ValidMediaType(s string) bool {
	switch MediaType(s) {
	case MediaAll, MediaPhotos, MediaDocuments, MediaLinks, MediaGifs:
		return true
	}

	return false
}

// Job describes one download run. Built once from command-line input and
// immutable afterwards.
type Job struct {
	PeerID      int64
	MediaType   MediaType
	Limit       int       // 0 = unlimited
	MinDate     time.Time // zero = no cutoff
	Contains    string
	DownloadDir string
}

// DownloadMedia downloads media or extracts links from a single conversation
// according to job. Messages failing individually are logged and skipped; the
// run only aborts on fetch errors or cancellation.
func (d *Downloader) DownloadMedia(ctx context.Context, job Job) error {
	dialogs, err := d.fetchDialogs(ctx)
	if err != nil {
		return err
	}

	dlg, err := findDialog(dialogs, job.PeerID)
	if err != nil {
		return err
	}

	dir := filepath.Join(job.DownloadDir, fmt.Sprintf("%s_%d", sanitizeName(dlg.Name), dlg.ID))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	fmt.Printf("\nDownloading %s from %s\n", job.MediaType, dlg.Name)
	fmt.Printf("Saving to: %s\n", dir)

	msgs, err := d.fetchHistory(ctx, dlg.Peer, searchFilter(job.MediaType), job.Limit, job.MinDate)
	if err != nil {
		return err
	}

	msgs = filterMessages(msgs, job.Contains, job.MinDate)

	if len(msgs) == 0 {
		fmt.Println("No matching messages found.")
		return nil
	}

	fmt.Printf("Found %d messages to process.\n", len(msgs))

	run := &jobRun{
		mediaType: job.MediaType,
		dir:       dir,
		fetch:     d.fetchFile,
	}

	if wantsLinks(job.MediaType) {
		links, err := os.Create(filepath.Join(dir, linksFileName))
		if err != nil {
			return fmt.Errorf("create links file: %w", err)
		}
		defer links.Close()

		run.links = links
	}

	for i, msg := range msgs {
		d.logger.Debug().Int("index", i+1).Int("total", len(msgs)).Int("msg_id", msg.ID).Msg("processing message")

		if err := run.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logMessageError(d.logger, msg.ID, err)
		}
	}

	fmt.Printf("\nDownloaded/extracted %d items from %s.\n", run.downloaded, dlg.Name)

	if run.skipped > 0 {
		fmt.Printf("Skipped %d already existing files.\n", run.skipped)
	}

	return nil
}

// fetchMessages pages newest-first through the conversation history, using
// messages.search when a server-side filter applies and messages.getHistory
// otherwise. Paging stops at the scan limit, at the end of history, or at the
// first message older than minDate.
func (d *Downloader) fetchMessages(ctx context.Context, peer tg.InputPeerClass, filter tg.MessagesFilterClass, limit int, minDate time.Time) ([]*tg.Message, error) {
	var out []*tg.Message

	offsetID := 0

	for {
		batch := nextBatchSize(limit, len(out))

		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var (
			res tg.MessagesMessagesClass
			err error
		)

		if filter != nil {
			res, err = d.api.MessagesSearch(ctx, &tg.MessagesSearchRequest{
				Peer:     peer,
				Filter:   filter,
				OffsetID: offsetID,
				Limit:    batch,
			})
		} else {
			res, err = d.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
				Peer:     peer,
				OffsetID: offsetID,
				Limit:    batch,
			})
		}

		if err != nil {
			return nil, fmt.Errorf("fetch messages: %w", err)
		}

		page := messagesFrom(res)
		if len(page) == 0 {
			return out, nil
		}

		for _, mc := range page {
			offsetID = messageID(mc)

			msg, ok := mc.(*tg.Message)
			if !ok {
				continue
			}

			if !minDate.IsZero() && messageTime(msg).Before(minDate) {
				// History is newest-first: everything after this point
				// is older than the cutoff.
				return out, nil
			}

			out = append(out, msg)

			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}

		if len(page) < batch {
			return out, nil
		}
	}
}

// nextBatchSize bounds one history page by the remaining scan budget.
// A zero limit means unlimited scanning.
func nextBatchSize(limit, have int) int {
	if limit > 0 && limit-have < messagePageSize {
		return limit - have
	}

	return messagePageSize
}

// jobRun carries the mutable state of one download job.
type jobRun struct {
	mediaType MediaType
	dir       string
	links     *os.File
	fetch     func(ctx context.Context, loc tg.InputFileLocationClass, dest string) error

	downloaded int
	skipped    int
}

// process handles a single message: file media, webpage links, then free-text
// URLs. Counts every downloaded file and every extracted link.
func (r *jobRun) process(ctx context.Context, msg *tg.Message) error {
	if msg.Media != nil {
		switch media := msg.Media.(type) {
		case *tg.MessageMediaPhoto, *tg.MessageMediaDocument:
			if wantsFiles(r.mediaType) {
				if err := r.downloadFile(ctx, msg.Media); err != nil {
					return err
				}
			}
		case *tg.MessageMediaWebPage:
			if r.links != nil {
				if page, ok := media.Webpage.(*tg.WebPage); ok && page.URL != "" {
					if err := r.writeLink(page.URL); err != nil {
						return err
					}
				}
			}
		}
	}

	if msg.Message != "" && r.links != nil {
		for _, u := range linkextract.ExtractURLs(msg.Message) {
			if err := r.writeLink(u); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *jobRun) downloadFile(ctx context.Context, media tg.MessageMediaClass) error {
	name, ok := mediaFileName(media)
	if !ok {
		return nil
	}

	dest := filepath.Join(r.dir, name)

	if _, err := os.Stat(dest); err == nil {
		fmt.Printf("Skipping existing file: %s\n", name)
		r.skipped++

		return nil
	}

	loc, ok := fileLocation(media)
	if !ok {
		return nil
	}

	if err := r.fetch(ctx, loc, dest); err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}

	r.downloaded++

	return nil
}

func (r *jobRun) writeLink(url string) error {
	if _, err := fmt.Fprintln(r.links, url); err != nil {
		return fmt.Errorf("write link: %w", err)
	}

	r.downloaded++

	return nil
}

// downloadToFile streams a remote file to dest, removing the partial file on
// failure. Transfers are paced by the limiter like every other API call.
func (d *Downloader) downloadToFile(ctx context.Context, loc tg.InputFileLocationClass, dest string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := downloader.NewDownloader().Download(d.api, loc).Stream(ctx, f); err != nil {
		f.Close()
		os.Remove(dest)

		return err
	}

	return f.Close()
}

// searchFilter maps a media type to its server-side history filter. Links
// are extracted client-side from unfiltered history, so both "links" and
// "all" fetch without a filter.
func searchFilter(mt MediaType) tg.MessagesFilterClass {
	switch mt {
	case MediaPhotos:
		return &tg.InputMessagesFilterPhotos{}
	case MediaDocuments:
		return &tg.InputMessagesFilterDocument{}
	case MediaGifs:
		return &tg.InputMessagesFilterGif{}
	default:
		return nil
	}
}

func wantsFiles(mt MediaType) bool {
	switch mt {
	case MediaAll, MediaPhotos, MediaDocuments, MediaGifs:
		return true
	}

	return false
}

func wantsLinks(mt MediaType) bool {
	return mt == MediaAll || mt == MediaLinks
}

// filterMessages applies the client-side filters: the contains filter keeps
// only messages whose text includes the substring case-insensitively
// (textless messages drop out), and the date cutoff excludes anything older
// than minDate.
func filterMessages(msgs []*tg.Message, contains string, minDate time.Time) []*tg.Message {
	if contains == "" && minDate.IsZero() {
		return msgs
	}

	needle := strings.ToLower(contains)

	var out []*tg.Message

	for _, msg := range msgs {
		if contains != "" && (msg.Message == "" || !strings.Contains(strings.ToLower(msg.Message), needle)) {
			continue
		}

		if !minDate.IsZero() && messageTime(msg).Before(minDate) {
			continue
		}

		out = append(out, msg)
	}

	return out
}

// mediaFileName derives the destination file name for photo or document
// media. Documents use their filename attribute when present; photos and
// nameless documents get deterministic names keyed by remote id, so repeat
// runs dedup against prior downloads.
func mediaFileName(media tg.MessageMediaClass) (string, bool) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return "", false
		}

		return fmt.Sprintf("photo_%d.jpg", photo.ID), true
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return "", false
		}

		for _, attr := range doc.Attributes {
			if fn, ok := attr.(*tg.DocumentAttributeFilename); ok && fn.FileName != "" {
				return sanitizeName(fn.FileName), true
			}
		}

		return fmt.Sprintf("doc_%d%s", doc.ID, extFromMime(doc.MimeType)), true
	}

	return "", false
}

// fileLocation builds the download location for photo or document media.
// Photos download their largest available size.
func fileLocation(media tg.MessageMediaClass) (tg.InputFileLocationClass, bool) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil, false
		}

		thumb := largestPhotoSize(photo.Sizes)
		if thumb == "" {
			return nil, false
		}

		return &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     thumb,
		}, true
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return nil, false
		}

		return &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}, true
	}

	return nil, false
}

func largestPhotoSize(sizes []tg.PhotoSizeClass) string {
	var (
		thumb   string
		maxArea int
	)

	for _, size := range sizes {
		switch s := size.(type) {
		case *tg.PhotoSize:
			if s.W*s.H > maxArea {
				maxArea = s.W * s.H
				thumb = s.Type
			}
		case *tg.PhotoSizeProgressive:
			if s.W*s.H > maxArea {
				maxArea = s.W * s.H
				thumb = s.Type
			}
		}
	}

	return thumb
}

func extFromMime(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "application/pdf":
		return ".pdf"
	case "application/zip":
		return ".zip"
	default:
		return ".bin"
	}
}

// sanitizeName makes a string safe to use as a single path element.
func sanitizeName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}

		return r
	}, name)

	sanitized = strings.Trim(sanitized, " .")
	if sanitized == "" {
		return "unnamed"
	}

	return sanitized
}

func messagesFrom(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := res.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	}

	return nil
}

func messageID(mc tg.MessageClass) int {
	switch m := mc.(type) {
	case *tg.Message:
		return m.ID
	case *tg.MessageService:
		return m.ID
	case *tg.MessageEmpty:
		return m.ID
	}

	return 0
}

func messageTime(msg *tg.Message) time.Time {
	return time.Unix(int64(msg.Date), 0)
}

// logMessageError reports a per-message failure without aborting the run.
// FLOOD_WAIT errors get the server-mandated delay in the log line.
func logMessageError(logger *zerolog.Logger, msgID int, err error) {
	if floodErr, ok := tgerr.As(err); ok && floodErr.Type == "FLOOD_WAIT" {
		logger.Warn().Int("msg_id", msgID).Int("wait_seconds", floodErr.Argument).Msg("flood wait while processing message")
		return
	}

	logger.Warn().Err(err).Int("msg_id", msgID).Msg("failed to process message")
}
