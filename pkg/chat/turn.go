// Package chat defines the immutable conversation data model: turns,
// content parts, and staged file attachments.
package chat

import (
	"bytes"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// Part is one content element of a turn: either inline text or an
// embedded file. Exactly one of Text / File is set.
type Part struct {
	Text string   `json:"text,omitempty"`
	File *FileRef `json:"file,omitempty"`
}

// FileRef is a file embedded in a turn. The bytes live inside the turn;
// there is no reference back to the original path on disk.
type FileRef struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"data,omitempty"`
}

// Turn is a single message in a conversation. Turns are immutable once
// appended to a session; a session's history is append-only.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTextTurn creates a turn with a single inline text part.
func NewTextTurn(role Role, text string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Parts:     []Part{{Text: text}},
		CreatedAt: time.Now().UTC(),
	}
}

// NewUserTurn builds a user turn from message text plus staged
// attachments. Attachments are consumed: their bytes move into file parts
// of the new turn and the originals should be discarded by the caller.
func NewUserTurn(text string, attachments []Attachment) Turn {
	parts := make([]Part, 0, len(attachments)+1)
	if text != "" {
		parts = append(parts, Part{Text: text})
	}
	for _, a := range attachments {
		parts = append(parts, Part{File: &FileRef{
			Name:      a.Name(),
			MediaType: a.MediaType,
			Data:      a.Data,
		}})
	}
	return Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Parts:     parts,
		CreatedAt: time.Now().UTC(),
	}
}

// Text returns the concatenated inline text of the turn, ignoring file
// parts.
func (t Turn) Text() string {
	var b strings.Builder
	for _, p := range t.Parts {
		if p.File == nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// FileNames returns the names of all file parts, in order.
func (t Turn) FileNames() []string {
	var names []string
	for _, p := range t.Parts {
		if p.File != nil {
			names = append(names, p.File.Name)
		}
	}
	return names
}

// Equal reports whether two turns carry the same identity and content.
func (t Turn) Equal(o Turn) bool {
	if t.ID != o.ID || t.Role != o.Role || !t.CreatedAt.Equal(o.CreatedAt) {
		return false
	}
	if len(t.Parts) != len(o.Parts) {
		return false
	}
	for i := range t.Parts {
		if !t.Parts[i].equal(o.Parts[i]) {
			return false
		}
	}
	return true
}

func (p Part) equal(o Part) bool {
	if p.Text != o.Text {
		return false
	}
	if (p.File == nil) != (o.File == nil) {
		return false
	}
	if p.File == nil {
		return true
	}
	return p.File.Name == o.File.Name &&
		p.File.MediaType == o.File.MediaType &&
		bytes.Equal(p.File.Data, o.File.Data)
}
