package services

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/line-rescue/line-rescue-api/config"
	"github.com/line-rescue/line-rescue-api/models"
)

// Session represents the locally persisted record of who is using the client
type Session struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
}

// SessionError represents a session validation or state error
type SessionError struct {
	Code    string
	Message string
}

func (e *SessionError) Error() string {
	return e.Message
}

// SessionService holds the current user identity. Verification is a local
// mock standing in for an external identity provider: no credentials are
// checked anywhere in this layer.
type SessionService struct {
	path    string
	mu      sync.RWMutex
	current *Session
}

var sessionServiceInstance *SessionService

// NewSessionService creates a session service backed by the given file and
// restores any previously persisted session from it
func NewSessionService(path string) *SessionService {
	svc := &SessionService{path: path}
	svc.restore()
	return svc
}

// InitSessionService initializes the global session service instance
func InitSessionService(cfg *config.Config) *SessionService {
	sessionServiceInstance = NewSessionService(cfg.SessionFile)
	return sessionServiceInstance
}

// GetSessionService returns the initialized session service instance
func GetSessionService() *SessionService {
	return sessionServiceInstance
}

// SetSessionService sets the session service instance (primarily for testing)
func SetSessionService(svc *SessionService) {
	sessionServiceInstance = svc
}

// restore loads a previously persisted session. A corrupt persisted record
// is discarded and treated as "no session", never fatal.
func (s *SessionService) restore() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil || session.Token == "" {
		log.Printf("Discarding corrupt persisted session at %s", s.path)
		if err := os.Remove(s.path); err != nil {
			log.Printf("warning: failed to remove corrupt session file: %v", err)
		}
		return
	}

	s.current = &session
}

// persist writes the current session to disk so it survives a restart
func (s *SessionService) persist(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Login validates the presence of both fields and a minimal email shape,
// then constructs a user identity with the name derived from the email's
// local part. No real credential check is performed.
func (s *SessionService) Login(email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, &SessionError{
			Code:    "VALIDATION_ERROR",
			Message: "Please enter both email and password",
		}
	}
	if !strings.Contains(email, "@") {
		return nil, &SessionError{
			Code:    "INVALID_EMAIL",
			Message: "Please enter a valid email address",
		}
	}

	user := models.User{
		ID:    uuid.NewString(),
		Name:  strings.SplitN(email, "@", 2)[0],
		Email: email,
		Role:  models.RoleLineman,
	}

	return s.establish(user)
}

// Register validates the presence of all three fields, a minimal email
// shape and a minimum password length, then establishes a session exactly
// as Login does
func (s *SessionService) Register(name, email, password string) (*Session, error) {
	if name == "" || email == "" || password == "" {
		return nil, &SessionError{
			Code:    "VALIDATION_ERROR",
			Message: "Please fill in all fields",
		}
	}
	if !strings.Contains(email, "@") {
		return nil, &SessionError{
			Code:    "INVALID_EMAIL",
			Message: "Please enter a valid email address",
		}
	}
	if len(password) < 6 {
		return nil, &SessionError{
			Code:    "PASSWORD_TOO_SHORT",
			Message: "Password should be at least 6 characters",
		}
	}

	user := models.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  models.RoleLineman,
	}

	return s.establish(user)
}

// establish stores the session as current and persists it
func (s *SessionService) establish(user models.User) (*Session, error) {
	session := &Session{
		Token:     uuid.NewString(),
		User:      user,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(session); err != nil {
		log.Printf("Failed to persist session: %v", err)
		return nil, &SessionError{
			Code:    "SESSION_PERSIST_ERROR",
			Message: "Login failed. Please try again.",
		}
	}

	s.current = session
	return session, nil
}

// Logout clears the current session and its persisted copy. Calling it
// when already unauthenticated is a no-op success.
func (s *SessionService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to remove persisted session: %v", err)
	}
}

// Current returns the active session, or nil when unauthenticated
func (s *SessionService) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// IsAuthenticated reports whether a session is active
func (s *SessionService) IsAuthenticated() bool {
	return s.Current() != nil
}

// Validate returns the session matching the given bearer token, or an
// error when no such session is active
func (s *SessionService) Validate(token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || token == "" || s.current.Token != token {
		return nil, &SessionError{
			Code:    "UNAUTHORIZED",
			Message: "No active session for this token",
		}
	}
	return s.current, nil
}
