package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nhle/taskboard/internal/docstore"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *docstore.SQLiteStore {
	t.Helper()

	s, err := docstore.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestServer serves a fresh in-memory document store over HTTP and
// returns both. The server is shut down when the test completes.
func NewTestServer(t *testing.T, authToken string) (*httptest.Server, *docstore.SQLiteStore) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	s := NewTestStore(t)
	srv := httptest.NewServer(docstore.NewHandler(s, authToken).Router())
	t.Cleanup(srv.Close)

	return srv, s
}
