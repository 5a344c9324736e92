package session

import (
	"time"

	"github.com/kaiwadev/kaiwa/pkg/chat"
)

// sessionRecord is the on-disk form of a Session. It must round-trip
// exactly through save/load.
type sessionRecord struct {
	Name              string       `json:"name"`
	Turns             []turnRecord `json:"turns"`
	SystemInstruction string       `json:"system_instruction,omitempty"`
	Summary           string       `json:"summary,omitempty"`
	Cursor            int          `json:"cursor"`
	Thinking          bool         `json:"thinking,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

type turnRecord struct {
	ID        string       `json:"id"`
	Role      chat.Role    `json:"role"`
	Parts     []partRecord `json:"parts"`
	CreatedAt time.Time    `json:"created_at"`
}

type partRecord struct {
	Text string `json:"text,omitempty"`
	File *fileRecord `json:"file,omitempty"`
}

type fileRecord struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"data,omitempty"`
}

func toRecord(s *Session) sessionRecord {
	turns := make([]turnRecord, len(s.Turns))
	for i, t := range s.Turns {
		parts := make([]partRecord, len(t.Parts))
		for j, p := range t.Parts {
			parts[j] = partRecord{Text: p.Text}
			if p.File != nil {
				parts[j].File = &fileRecord{
					Name:      p.File.Name,
					MediaType: p.File.MediaType,
					Data:      p.File.Data,
				}
			}
		}
		turns[i] = turnRecord{
			ID:        t.ID,
			Role:      t.Role,
			Parts:     parts,
			CreatedAt: t.CreatedAt,
		}
	}
	return sessionRecord{
		Name:              s.Name,
		Turns:             turns,
		SystemInstruction: s.SystemInstruction,
		Summary:           s.Summary,
		Cursor:            s.Cursor,
		Thinking:          s.Thinking,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func fromRecord(r sessionRecord) *Session {
	turns := make([]chat.Turn, len(r.Turns))
	for i, t := range r.Turns {
		parts := make([]chat.Part, len(t.Parts))
		for j, p := range t.Parts {
			parts[j] = chat.Part{Text: p.Text}
			if p.File != nil {
				parts[j].File = &chat.FileRef{
					Name:      p.File.Name,
					MediaType: p.File.MediaType,
					Data:      p.File.Data,
				}
			}
		}
		turns[i] = chat.Turn{
			ID:        t.ID,
			Role:      t.Role,
			Parts:     parts,
			CreatedAt: t.CreatedAt,
		}
	}
	return &Session{
		Name:              r.Name,
		Turns:             turns,
		SystemInstruction: r.SystemInstruction,
		Summary:           r.Summary,
		Cursor:            r.Cursor,
		Thinking:          r.Thinking,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
