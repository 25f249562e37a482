package domain

// MediaType selects the Bot API method used to deliver a media file.
type MediaType string

// Media types.
const (
	MediaPhoto     MediaType = "photo"
	MediaDocument  MediaType = "document"
	MediaVideo     MediaType = "video"
	MediaAudio     MediaType = "audio"
	MediaAnimation MediaType = "animation"
)

// MediaFile is the downloaded media of a channel message.
type MediaFile struct {
	Type     MediaType
	FileName string
	MimeType string
	Data     []byte
}
