package reader

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

// Bot API upload limit.
const maxMediaBytes = 50 * 1024 * 1024

// FetchMedia downloads the media of the original message. It returns nil when the
// message has no media that the Bot API can carry.
func (c *Client) FetchMedia(ctx context.Context, m domain.CandidateMessage) (*domain.MediaFile, error) {
	msg, err := c.message(ctx, m)
	if err != nil {
		return nil, err
	}

	loc, file, ok := mediaLocation(msg.Media)
	if !ok {
		return nil, nil
	}

	buf := new(bytes.Buffer)
	if _, err := downloader.NewDownloader().Download(c.raw, loc).Stream(ctx, buf); err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}

	file.Data = buf.Bytes()

	return file, nil
}

// message loads the original message through the user session.
func (c *Client) message(ctx context.Context, m domain.CandidateMessage) (*tg.Message, error) {
	idx, err := c.peers(ctx)
	if err != nil {
		return nil, err
	}

	peer, ok := idx.chat(domain.BareChannelID(m.ChannelID))
	if !ok {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrChannelNotFound, m.ChannelID)
	}

	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: int(m.ID)}}

	var res tg.MessagesMessagesClass

	if ch, isChannel := peer.Input.(*tg.InputPeerChannel); isChannel {
		res, err = c.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = c.api.MessagesGetMessages(ctx, ids)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", m.Key(), err)
	}

	for _, raw := range historyMessages(res) {
		if msg, ok := raw.(*tg.Message); ok && msg.ID == int(m.ID) {
			return msg, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", apperrors.ErrMessageNotFound, m.Key())
}

// mediaLocation describes where to download media and how to deliver it.
func mediaLocation(media tg.MessageMediaClass) (tg.InputFileLocationClass, *domain.MediaFile, bool) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil, nil, false
		}

		thumb, ok := largestPhotoSize(photo.Sizes)
		if !ok {
			return nil, nil, false
		}

		loc := &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     thumb,
		}

		return loc, &domain.MediaFile{
			Type:     domain.MediaPhoto,
			FileName: fmt.Sprintf("photo_%d.jpg", photo.ID),
			MimeType: "image/jpeg",
		}, true

	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok || doc.Size > maxMediaBytes {
			return nil, nil, false
		}

		loc := &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}

		return loc, describeDocument(doc), true

	default:
		return nil, nil, false
	}
}

func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, bool) {
	var (
		thumb string
		best  int
	)

	for _, size := range sizes {
		switch s := size.(type) {
		case *tg.PhotoSize:
			if s.W*s.H > best {
				best, thumb = s.W*s.H, s.Type
			}
		case *tg.PhotoSizeProgressive:
			if s.W*s.H > best {
				best, thumb = s.W*s.H, s.Type
			}
		}
	}

	return thumb, thumb != ""
}

func describeDocument(doc *tg.Document) *domain.MediaFile {
	file := &domain.MediaFile{
		Type:     domain.MediaDocument,
		MimeType: doc.MimeType,
	}

	var animated, video, audio bool

	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeFilename:
			file.FileName = a.FileName
		case *tg.DocumentAttributeAnimated:
			animated = true
		case *tg.DocumentAttributeVideo:
			video = true
		case *tg.DocumentAttributeAudio:
			audio = true
		}
	}

	switch {
	case animated || doc.MimeType == "image/gif":
		file.Type = domain.MediaAnimation
	case video || strings.HasPrefix(doc.MimeType, "video/"):
		file.Type = domain.MediaVideo
	case audio || strings.HasPrefix(doc.MimeType, "audio/"):
		file.Type = domain.MediaAudio
	}

	if file.FileName == "" {
		file.FileName = fmt.Sprintf("file_%d%s", doc.ID, extension(doc.MimeType))
	}

	return file
}

func extension(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}

	return exts[0]
}
