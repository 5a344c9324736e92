package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaiwadev/kaiwa/pkg/chat"
	"github.com/kaiwadev/kaiwa/pkg/session"
)

// ErrNoActiveSession is returned when a message is sent while no session
// is selected.
var ErrNoActiveSession = errors.New("no active session: create or switch to one first")

// ErrNoContent is returned when a send carries neither text nor
// attachments.
var ErrNoContent = errors.New("nothing to send: empty message and no attachments")

// Manager orchestrates session lifecycle and message flow. It holds the
// active session as explicit instance state so multiple managers can
// coexist. Operations are sequential; the manager is not safe for
// concurrent use against one session.
type Manager struct {
	store     session.Store
	backend   Backend
	folder    *Folder
	estimator *session.Estimator

	active *session.Session
	staged []chat.Attachment
}

// NewManager wires a manager from its collaborators.
func NewManager(store session.Store, backend Backend, folder *Folder, estimator *session.Estimator) *Manager {
	if estimator == nil {
		estimator = session.NewEstimator()
	}
	if folder == nil {
		folder = NewFolder(backend, estimator, DefaultFoldConfig())
	}
	return &Manager{
		store:     store,
		backend:   backend,
		folder:    folder,
		estimator: estimator,
	}
}

// Active returns the active session, or nil.
func (m *Manager) Active() *session.Session { return m.active }

// Sessions lists all persisted session names.
func (m *Manager) Sessions() ([]string, error) { return m.store.List() }

// NewSession creates and persists an empty session and makes it active.
// Fails with session.ErrAlreadyExists if the name is taken; the existing
// session is untouched.
func (m *Manager) NewSession(name string) (*session.Session, error) {
	if _, err := m.store.Load(name); err == nil {
		return nil, fmt.Errorf("%w: %s", session.ErrAlreadyExists, name)
	} else if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}

	s, err := session.New(name)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(s); err != nil {
		return nil, err
	}
	m.active = s
	logger.InfoWithIcon("✨", "Session created", "session", name)
	return s, nil
}

// SwitchSession loads a persisted session and makes it active. A
// session.ErrNotFound from the store propagates unchanged.
func (m *Manager) SwitchSession(name string) (*session.Session, error) {
	s, err := m.store.Load(name)
	if err != nil {
		return nil, err
	}
	m.active = s
	logger.Debug("Session activated", "session", name, "turns", len(s.Turns))
	return s, nil
}

// DeleteSession removes the persisted record. If it was the active
// session, the active handle is cleared and a new session must be
// selected before sending again.
func (m *Manager) DeleteSession(name string) error {
	if err := m.store.Delete(name); err != nil {
		return err
	}
	if m.active != nil && m.active.Name == name {
		m.active = nil
	}
	return nil
}

// Attach stages a file for the next outgoing message.
func (m *Manager) Attach(path string) (chat.Attachment, error) {
	a, err := chat.LoadAttachment(path)
	if err != nil {
		return chat.Attachment{}, err
	}
	m.staged = append(m.staged, a)
	logger.Debug("Attachment staged", "path", path, "media_type", a.MediaType, "bytes", len(a.Data))
	return a, nil
}

// Staged returns the attachments waiting for the next message.
func (m *Manager) Staged() []chat.Attachment { return m.staged }

// ClearStaged drops all staged attachments without sending them.
func (m *Manager) ClearStaged() { m.staged = nil }

// ContextTokens estimates the token cost of the context that would be
// sent with the next message.
func (m *Manager) ContextTokens() int {
	if m.active == nil {
		return 0
	}
	return m.estimator.Estimate(m.active.ContextTurns(), m.active.Summary)
}

// SendMessage appends a user turn built from text plus the staged
// attachments, invokes the backend with the folded context, appends the
// model turn, and persists. The user turn is persisted before the
// backend call so no user input is ever lost to a backend failure. After
// a successful exchange the fold trigger runs; a fold failure is only a
// warning.
func (m *Manager) SendMessage(ctx context.Context, text string) (chat.Turn, Usage, error) {
	if m.active == nil {
		return chat.Turn{}, Usage{}, ErrNoActiveSession
	}
	if text == "" && len(m.staged) == 0 {
		return chat.Turn{}, Usage{}, ErrNoContent
	}
	s := m.active

	userTurn := chat.NewUserTurn(text, m.staged)
	m.staged = nil
	s.Append(userTurn)
	if err := m.store.Save(s); err != nil {
		return chat.Turn{}, Usage{}, err
	}

	modelTurn, usage, err := m.backend.Invoke(ctx, Request{
		SystemInstruction: s.SystemInstruction,
		Summary:           s.Summary,
		Turns:             s.ContextTurns(),
		Thinking:          s.Thinking,
	})
	if err != nil {
		// The user turn stays appended and persisted; the caller
		// decides whether to retry the send.
		return chat.Turn{}, usage, &BackendError{Op: "invoke", Err: err}
	}

	s.Append(modelTurn)
	if err := m.store.Save(s); err != nil {
		return modelTurn, usage, err
	}

	folded, err := m.folder.FoldIfNeeded(ctx, s)
	if err != nil {
		logger.WarnWithIcon("⚠️", "Summarization failed, continuing with full context",
			"session", s.Name, "error", err)
	}
	if folded {
		if err := m.store.Save(s); err != nil {
			return modelTurn, usage, err
		}
	}

	return modelTurn, usage, nil
}

// Summarize forces a summarization pass over the active session
// regardless of the token trigger, keeping the configured recent tail
// verbatim. Used by the explicit /summarize command.
func (m *Manager) Summarize(ctx context.Context) (bool, error) {
	if m.active == nil {
		return false, ErrNoActiveSession
	}
	s := m.active

	unfolded := len(s.Turns) - s.Cursor
	if unfolded <= m.folder.config.KeepRecentTurns {
		return false, nil
	}
	foldPoint := m.folder.foldPoint(s)
	if foldPoint <= s.Cursor {
		return false, nil
	}

	summary, err := m.backend.Summarize(ctx, s.Summary, s.Turns[s.Cursor:foldPoint])
	if err != nil {
		return false, &BackendError{Op: "summarize", Err: err}
	}
	if err := s.Fold(summary, foldPoint); err != nil {
		return false, err
	}
	if err := m.store.Save(s); err != nil {
		return true, err
	}
	return true, nil
}

// SetSystemInstruction updates and persists the active session's system
// instruction.
func (m *Manager) SetSystemInstruction(instruction string) error {
	if m.active == nil {
		return ErrNoActiveSession
	}
	m.active.SystemInstruction = instruction
	return m.store.Save(m.active)
}

// SetThinking toggles and persists the active session's thinking flag.
func (m *Manager) SetThinking(enabled bool) error {
	if m.active == nil {
		return ErrNoActiveSession
	}
	m.active.Thinking = enabled
	return m.store.Save(m.active)
}
