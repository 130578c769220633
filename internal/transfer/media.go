package transfer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-telegram/bot/models"
)

// ErrNoMedia is returned for messages without a downloadable attachment.
var ErrNoMedia = errors.New("message carries no media")

// FileMeta describes the attachment of a message.
type FileMeta struct {
	Kind     string
	FileID   string
	FileName string
	FileSize int64
}

// ExtractFileMeta picks the attachment out of msg, naming unnamed files after
// the message id.
func ExtractFileMeta(msg *models.Message) (FileMeta, error) {
	if msg == nil {
		return FileMeta{}, ErrNoMedia
	}

	named := func(kind, id, name string, size int64, fallback string) FileMeta {
		if strings.TrimSpace(name) == "" {
			name = fallback
		}
		return FileMeta{Kind: kind, FileID: id, FileName: name, FileSize: size}
	}

	switch {
	case msg.Document != nil:
		d := msg.Document
		return named("document", d.FileID, d.FileName, int64(d.FileSize), fmt.Sprintf("document_%d", msg.ID)), nil
	case msg.Video != nil:
		v := msg.Video
		return named("video", v.FileID, v.FileName, int64(v.FileSize), fmt.Sprintf("video_%d.mp4", msg.ID)), nil
	case msg.Audio != nil:
		a := msg.Audio
		return named("audio", a.FileID, a.FileName, int64(a.FileSize), fmt.Sprintf("audio_%d.mp3", msg.ID)), nil
	case len(msg.Photo) > 0:
		p := largestPhoto(msg.Photo)
		return FileMeta{
			Kind:     "photo",
			FileID:   p.FileID,
			FileName: fmt.Sprintf("photo_%d.jpg", msg.ID),
			FileSize: int64(p.FileSize),
		}, nil
	case msg.Voice != nil:
		return FileMeta{
			Kind:     "voice",
			FileID:   msg.Voice.FileID,
			FileName: fmt.Sprintf("voice_%d.ogg", msg.ID),
			FileSize: int64(msg.Voice.FileSize),
		}, nil
	case msg.Animation != nil:
		a := msg.Animation
		return named("animation", a.FileID, a.FileName, int64(a.FileSize), fmt.Sprintf("animation_%d.mp4", msg.ID)), nil
	case msg.VideoNote != nil:
		return FileMeta{
			Kind:     "video_note",
			FileID:   msg.VideoNote.FileID,
			FileName: fmt.Sprintf("video_note_%d.mp4", msg.ID),
			FileSize: int64(msg.VideoNote.FileSize),
		}, nil
	default:
		return FileMeta{}, ErrNoMedia
	}
}

// largestPhoto returns the biggest rendition; Telegram usually sorts them
// ascending but that is not guaranteed.
func largestPhoto(sizes []models.PhotoSize) models.PhotoSize {
	best := sizes[len(sizes)-1]
	for _, s := range sizes {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}

// SanitizeFileName keeps letters, digits, dots, underscores and spaces.
// Names that end up empty or made only of dots become "file".
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '.' || r == '_' || r == ' ' {
			b.WriteRune(r)
		}
	}

	safe := strings.TrimSpace(b.String())
	if strings.Trim(safe, ".") == "" {
		return "file"
	}
	return safe
}
