package video

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/snapvid/snapvid/internal/auth"
	"github.com/snapvid/snapvid/internal/database"
	"github.com/snapvid/snapvid/internal/ratelimit"
	"github.com/snapvid/snapvid/internal/stream"
)

type mockStorage struct {
	uploadURL   string
	uploadErr   error
	deleteErr   error
	deletedKeys []string
}

func (m *mockStorage) GenerateUploadURL(_ context.Context, key string, _ string, _ time.Duration) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if m.uploadURL != "" {
		return m.uploadURL, nil
	}
	return "https://storage.example.com/" + key, nil
}

func (m *mockStorage) CDNURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (m *mockStorage) DeleteObject(_ context.Context, key string) error {
	m.deletedKeys = append(m.deletedKeys, key)
	return m.deleteErr
}

type mockStream struct {
	createID   string
	createErr  error
	updateErr  error
	updatedIDs []string
	video      stream.Video
	getErr     error
	deleteErr  error
	deletedIDs []string
}

func (m *mockStream) CreateVideo(_ context.Context, _ string) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	return m.createID, nil
}

func (m *mockStream) UpdateVideo(_ context.Context, videoID, _, _ string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedIDs = append(m.updatedIDs, videoID)
	return nil
}

func (m *mockStream) GetVideo(_ context.Context, _ string) (stream.Video, error) {
	if m.getErr != nil {
		return stream.Video{}, m.getErr
	}
	return m.video, nil
}

func (m *mockStream) DeleteVideo(_ context.Context, videoID string) error {
	m.deletedIDs = append(m.deletedIDs, videoID)
	return m.deleteErr
}

func (m *mockStream) UploadURL(videoID string) string {
	return "https://video.example.com/library/7/videos/" + videoID
}

func (m *mockStream) AccessKey() string { return "stream-access-key" }

type mockTranscripts struct {
	text string
	ok   bool
	err  error
}

func (m *mockTranscripts) Fetch(_ context.Context, _ string) (string, bool, error) {
	return m.text, m.ok, m.err
}

type mockLimiter struct {
	err          error
	fingerprints []string
}

func (m *mockLimiter) Allow(_ context.Context, fingerprint string) error {
	m.fingerprints = append(m.fingerprints, fingerprint)
	return m.err
}

const testSessionSecret = "test-secret-for-video-tests"
const testUserID = "user-42"
const testEmbedBase = "https://iframe.example.com/embed/7"
const testVideoUUID = "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"

type handlerMocks struct {
	storage     *mockStorage
	stream      *mockStream
	transcripts *mockTranscripts
	limiter     *mockLimiter
}

func newTestHandler(db database.DBTX) (*Handler, *handlerMocks) {
	mocks := &handlerMocks{
		storage:     &mockStorage{},
		stream:      &mockStream{},
		transcripts: &mockTranscripts{},
		limiter:     &mockLimiter{},
	}
	h := NewHandler(db, mocks.storage, mocks.stream, mocks.transcripts, mocks.limiter, testEmbedBase)
	return h, mocks
}

// newRouter mounts the handler the same way the server does, so URL params
// and middleware behave as in production.
func newRouter(h *Handler) *chi.Mux {
	verifier := auth.NewVerifier(testSessionSecret)
	r := chi.NewRouter()
	r.Route("/api/videos", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(verifier.Optional)
			r.Get("/", h.List)
			r.Get("/{id}", h.GetByID)
		})

		r.Get("/{id}/transcript", h.Transcript)
		r.Post("/{id}/views", h.IncrementViews)
		r.Post("/{id}/likes", h.IncrementLikes)

		r.Group(func(r chi.Router) {
			r.Use(verifier.Middleware)
			r.Post("/upload-url", h.UploadURL)
			r.Post("/thumbnail-upload-url", h.ThumbnailUploadURL)
			r.Post("/", h.Save)
			r.Get("/{id}/status", h.Status)
			r.Patch("/{id}/visibility", h.UpdateVisibility)
			r.Delete("/{id}", h.Delete)
		})
	})
	r.With(verifier.Optional).Get("/api/users/{id}/videos", h.ListByUser)
	return r
}

func authenticatedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	token, err := auth.GenerateSessionToken(testSessionSecret, testUserID)
	if err != nil {
		t.Fatalf("failed to generate session token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func parseErrorResponse(t *testing.T, body []byte) string {
	t.Helper()
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	return errResp.Error
}

var _ ratelimit.Gate = (*mockLimiter)(nil)
