package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SessionVersion is the current on-disk session format. Loading bumps on
// unknown fields but fails closed on an unknown version.
const SessionVersion = 1

// Session ties a transcript to a stable identity so it can be saved and
// resumed across process restarts.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	manager *Manager
}

// sessionFile is the versioned JSON document written to disk. Fields
// added in later minor versions must be optional so old files still load.
type sessionFile struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// NewSession creates a fresh session around an empty transcript.
func NewSession(tokenBudget int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		manager:   NewManager(tokenBudget),
	}
}

// Manager returns the transcript manager owned by this session.
func (s *Session) Manager() *Manager { return s.manager }

// Save writes the session to path as versioned JSON. The write goes
// through a temp file and rename so a crash never leaves a torn file.
func (s *Session) Save(path string) error {
	s.UpdatedAt = time.Now().UTC()
	doc := sessionFile{
		Version:   SessionVersion,
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Messages:  s.manager.messages,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename session file: %w", err)
	}
	return nil
}

// LoadSession reads a session file written by Save. Unknown JSON fields
// are ignored; an unknown version is rejected rather than guessed at.
func LoadSession(path string, tokenBudget int) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var doc sessionFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if doc.Version != SessionVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSessionVersion, doc.Version)
	}

	mgr := NewManager(tokenBudget)
	for _, msg := range doc.Messages {
		mgr.messages = append(mgr.messages, msg)
		mgr.estimate += estimateTokens(msg)
		if msg.IsToolCall() {
			mgr.pendingCall = len(mgr.messages) - 1
		}
		if msg.IsToolResult() {
			mgr.pendingCall = -1
		}
	}

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &Session{
		ID:        id,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		manager:   mgr,
	}, nil
}
