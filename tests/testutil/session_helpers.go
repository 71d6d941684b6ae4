package testutil

import (
	"path/filepath"
	"testing"

	"github.com/line-rescue/line-rescue-api/services"
)

// NewTestSessionService creates a session service backed by a throwaway file
// and installs it as the global instance
func NewTestSessionService(t *testing.T) *services.SessionService {
	t.Helper()

	svc := services.NewSessionService(filepath.Join(t.TempDir(), "session.json"))
	services.SetSessionService(svc)
	return svc
}

// LoginTestLineman establishes a session for a test lineman and returns it
func LoginTestLineman(t *testing.T, svc *services.SessionService) *services.Session {
	t.Helper()

	session, err := svc.Login("jordan@powergrid.example", "secret")
	if err != nil {
		t.Fatalf("Failed to establish test session: %v", err)
	}
	return session
}
