// Package session keeps server-side conversation history keyed by session ID.
// Sessions expire after an idle TTL and can be ended explicitly by the user.
package session

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/logger"
)

const (
	// DefaultTTL is how long an idle session is kept.
	DefaultTTL = 30 * time.Minute

	// DefaultEndPhrase ends a session when sent as a message.
	DefaultEndPhrase = "im finished"

	// EndedMessage is the reply sent when a session is ended.
	EndedMessage = "Session ended. Thank you!"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is a snapshot of one conversation.
type Session struct {
	ID        string                 `json:"session_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	History   []llm.ConversationTurn `json:"history"`
}

func (s *Session) clone() *Session {
	c := *s
	c.History = append([]llm.ConversationTurn(nil), s.History...)
	return &c
}

// Config configures a Store.
type Config struct {
	// TTL is the idle expiry. Defaults to DefaultTTL.
	TTL time.Duration

	// CleanupInterval is how often expired sessions are purged. Defaults to TTL/3.
	CleanupInterval time.Duration

	// EndPhrase defaults to DefaultEndPhrase.
	EndPhrase string
}

// Store holds sessions in memory.
type Store struct {
	// mu serializes read-modify-write of session history.
	mu        sync.Mutex
	cache     *cache.Cache
	endPhrase string
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore creates an empty store.
func NewStore(c Config, log *slog.Logger) *Store {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = c.TTL / 3
	}
	if strings.TrimSpace(c.EndPhrase) == "" {
		c.EndPhrase = DefaultEndPhrase
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Store{
		cache:     cache.New(c.TTL, c.CleanupInterval),
		endPhrase: normalize(c.EndPhrase),
		logger:    log,
		now:       time.Now,
	}
	s.cache.OnEvicted(func(id string, _ any) {
		s.logger.Debug("session evicted", "session_id", id)
	})
	return s
}

// Start creates a new session.
func (s *Store) Start() *Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		History:   []llm.ConversationTurn{},
	}

	s.mu.Lock()
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
	s.mu.Unlock()

	s.logger.Debug("session started", "session_id", sess.ID)
	return sess.clone()
}

// Get returns a snapshot of the session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	return sess.clone(), nil
}

// Append adds turns to the session's history and refreshes its expiry.
func (s *Store) Append(id string, turns ...llm.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(id)
	if !ok {
		return ErrNotFound
	}
	sess.History = append(sess.History, turns...)
	sess.UpdatedAt = s.now()
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return nil
}

// Close ends the session.
func (s *Store) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(id); !ok {
		return ErrNotFound
	}
	s.cache.Delete(id)
	s.logger.Debug("session closed", "session_id", id)
	return nil
}

// Len returns the number of live sessions, including expired ones not yet purged.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// IsEndPhrase reports whether text asks to end the session. The comparison
// ignores case and surrounding whitespace.
func (s *Store) IsEndPhrase(text string) bool {
	return normalize(text) == s.endPhrase
}

func (s *Store) lookup(id string) (*Session, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
