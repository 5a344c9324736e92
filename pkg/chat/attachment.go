package chat

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Attachment is a file staged by the user for the next outgoing message.
// It lives in the draft buffer until the message is sent, at which point
// its bytes move into a file part of the new user turn.
type Attachment struct {
	Path      string
	MediaType string
	Data      []byte
}

// LoadAttachment reads a local file and resolves its media type, by
// extension first and content sniffing as a fallback.
func LoadAttachment(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment %s: %w", path, err)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	// Strip parameters like "; charset=utf-8" so the stored type is stable.
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	return Attachment{
		Path:      path,
		MediaType: mediaType,
		Data:      data,
	}, nil
}

// Name returns the base name of the attached file.
func (a Attachment) Name() string {
	return filepath.Base(a.Path)
}

// IsImage reports whether the attachment carries an image media type.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MediaType, "image/")
}
