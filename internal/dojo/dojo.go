// Package dojo runs role-play practice calls against a simulated customer
// persona. Each practice session owns its own conversation history — there
// is no process-wide chat state, so any number of consultants can practice
// concurrently.
package dojo

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/salescopilot/amsgen/internal/dashscope"
)

// ErrSessionNotFound is returned for unknown or ended session ids.
var ErrSessionNotFound = errors.New("dojo session not found")

const (
	dojoTemperature = 0.9
	openingLine     = "喂？"
)

const systemPrompt = `你扮演陈先生，一位45岁的宝马5系车主。
你对新款奥迪E5持怀疑态度，认为没有四环标就不是奥迪。
保持对话口语化，略带挑剔但有礼貌，回复简短（50字以内）。`

// Session is one live role-play conversation. All turns go through Send,
// which serializes access to the history.
type Session struct {
	ID uuid.UUID

	mu      sync.Mutex
	llm     *dashscope.Client
	model   string
	history []dashscope.Message
}

// Send delivers the consultant's line and returns the persona's reply,
// appending both to the session history.
func (s *Session) Send(ctx context.Context, userMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]dashscope.Message, 0, len(s.history)+2)
	messages = append(messages, dashscope.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, s.history...)
	messages = append(messages, dashscope.Message{Role: "user", Content: userMessage})

	reply, err := s.llm.Chat(ctx, s.model, messages, dojoTemperature)
	if err != nil {
		return "", err
	}

	s.history = append(s.history,
		dashscope.Message{Role: "user", Content: userMessage},
		dashscope.Message{Role: "assistant", Content: reply},
	)
	return reply, nil
}

// Manager tracks live sessions by id.
type Manager struct {
	llm   *dashscope.Client
	model string

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewManager(llm *dashscope.Client, model string) *Manager {
	return &Manager{
		llm:      llm,
		model:    model,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Start creates a session and plays the opening turn, returning the
// session id and the persona's first line.
func (m *Manager) Start(ctx context.Context) (uuid.UUID, string, error) {
	s := &Session{
		ID:    uuid.New(),
		llm:   m.llm,
		model: m.model,
	}

	reply, err := s.Send(ctx, openingLine)
	if err != nil {
		return uuid.Nil, "", err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s.ID, reply, nil
}

// Send routes a message to the given session.
func (m *Manager) Send(ctx context.Context, id uuid.UUID, userMessage string) (string, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return "", ErrSessionNotFound
	}
	return s.Send(ctx, userMessage)
}

// End removes a session. Ending an unknown session is not an error.
func (m *Manager) End(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
