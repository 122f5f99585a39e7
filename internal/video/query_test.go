package video

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var entryCols = []string{
	"id", "video_id", "title", "description", "thumbnail_url", "video_url",
	"visibility", "views", "likes", "duration", "user_id", "created_at", "updated_at",
	"u_id", "u_name", "u_image",
}

func strPtr(s string) *string { return &s }

func sampleEntryRows(withUploader bool) *pgxmock.Rows {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rows := pgxmock.NewRows(entryCols)
	if withUploader {
		rows.AddRow(testVideoUUID, "vid-1", "Sprint demo", "Dashboard walkthrough",
			"https://cdn.example.com/thumbnails/1700-abc-thumbnail", testEmbedBase+"/vid-1",
			"public", int64(5), int64(2), nil, testUserID, created, created,
			strPtr(testUserID), strPtr("Jamie"), strPtr("https://cdn.example.com/avatars/jamie.png"))
	} else {
		rows.AddRow(testVideoUUID, "vid-1", "Sprint demo", "Dashboard walkthrough",
			"https://cdn.example.com/thumbnails/1700-abc-thumbnail", testEmbedBase+"/vid-1",
			"public", int64(5), int64(2), nil, testUserID, created, created,
			nil, nil, nil)
	}
	return rows
}

// --- List ---

func TestList_AnonymousSeesPublicOnly(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	// Anonymous requests carry an empty user id, so the ownership half of the
	// visibility predicate can never match.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM videos v WHERE \(v.visibility = 'public' OR v.user_id = \$1\)`).
		WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery("SELECT v.id").
		WithArgs("", 8, 0).
		WillReturnRows(sampleEntryRows(true))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Videos) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp.Videos))
	}
	if resp.Videos[0].User.Name != "Jamie" {
		t.Errorf("uploader name = %q, want Jamie", resp.Videos[0].User.Name)
	}
	if resp.Pagination.TotalPage != 2 {
		t.Errorf("totalPage = %d, want 2 for 10 videos at size 8", resp.Pagination.TotalPage)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestList_AuthenticatedIncludesOwnVideos(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT v.id").
		WithArgs(testUserID, 8, 0).
		WillReturnRows(pgxmock.NewRows(entryCols))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/api/videos/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("visibility predicate not keyed by session user: %v", err)
	}
}

func TestList_SearchEscapesLikeWildcards(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("", `%50\%\_done%`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT v.id").
		WithArgs("", `%50\%\_done%`, 8, 0).
		WillReturnRows(pgxmock.NewRows(entryCols))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/?query=50%25_done", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestList_SortFilterChangesOrdering(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("ORDER BY v.views DESC").
		WillReturnRows(pgxmock.NewRows(entryCols))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/?filter=most_viewed", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("sort filter not applied: %v", err)
	}
}

func TestList_RejectsOverlongSearchQuery(t *testing.T) {
	h, _ := newTestHandler(newPool(t))

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/?query="+string(long), nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for overlong search query, got %d", rec.Code)
	}
}

func TestList_CountFailure(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(errors.New("connection reset"))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

// --- ListByUser ---

func TestListByUser_OtherViewerSeesPublicOnly(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT id, name, email, image FROM users").
		WithArgs("uploader-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "image"}).
			AddRow("uploader-1", "Jamie", "jamie@example.com", nil))
	mock.ExpectQuery(`v.user_id = \$1 AND v.visibility = 'public'`).
		WithArgs("uploader-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT v.id").
		WithArgs("uploader-1", 8, 0).
		WillReturnRows(sampleEntryRows(true))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/uploader-1/videos", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.User.Name != "Jamie" || resp.User.Email != "jamie@example.com" {
		t.Errorf("unexpected profile user: %+v", resp.User)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("profile predicate missing public gate: %v", err)
	}
}

func TestListByUser_OwnerSeesPrivateVideos(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT id, name, email, image FROM users").
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "image"}).
			AddRow(testUserID, "Me", "me@example.com", nil))
	// Owner scope: no visibility clause, the predicate ends at the user id.
	mock.ExpectQuery(`FROM videos v WHERE v.user_id = \$1$`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT v.id").
		WithArgs(testUserID, 8, 0).
		WillReturnRows(pgxmock.NewRows(entryCols))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/api/users/"+testUserID+"/videos", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("owner must see private videos: %v", err)
	}
}

func TestListByUser_UnknownUser(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT id, name, email, image FROM users").
		WithArgs("ghost").
		WillReturnError(errors.New("no rows"))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/ghost/videos", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if msg := parseErrorResponse(t, rec.Body.Bytes()); msg != "user not found" {
		t.Errorf("error = %q", msg)
	}
}

// --- GetByID ---

func TestGetByID_Success(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT v.id").
		WithArgs(testVideoUUID).
		WillReturnRows(sampleEntryRows(true))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/"+testVideoUUID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp detailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Video.VideoID != "vid-1" {
		t.Errorf("videoId = %q, want vid-1", resp.Video.VideoID)
	}
	if resp.Video.VideoURL != testEmbedBase+"/vid-1" {
		t.Errorf("videoUrl = %q", resp.Video.VideoURL)
	}
	if resp.User.Name != "Jamie" {
		t.Errorf("uploader = %q, want Jamie", resp.User.Name)
	}
}

func TestGetByID_MissingUploaderPresentsAsGuest(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT v.id").
		WithArgs(testVideoUUID).
		WillReturnRows(sampleEntryRows(false))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/"+testVideoUUID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp detailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.User.Name != "Guest" {
		t.Errorf("uploader = %q, want Guest", resp.User.Name)
	}
	if resp.User.ID != "" {
		t.Errorf("uploader id = %q, want empty", resp.User.ID)
	}
}

func TestGetByID_InvalidIDReturns404(t *testing.T) {
	h, _ := newTestHandler(newPool(t))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/not-a-uuid", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for malformed id, got %d", rec.Code)
	}
}

func TestGetByID_NoRowsReturns404(t *testing.T) {
	mock := newPool(t)
	h, _ := newTestHandler(mock)

	mock.ExpectQuery("SELECT v.id").
		WithArgs(testVideoUUID).
		WillReturnRows(pgxmock.NewRows(entryCols))

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/"+testVideoUUID, nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// --- predicate builder ---

func TestPredicateIndexesArgsSequentially(t *testing.T) {
	p := libraryPredicate("u1", "demo")

	want := `(v.visibility = 'public' OR v.user_id = $1) AND v.title ILIKE $2`
	if got := p.where(); got != want {
		t.Errorf("where = %q, want %q", got, want)
	}
	if len(p.args) != 2 {
		t.Fatalf("args = %d, want 2", len(p.args))
	}
	if p.args[1] != "%demo%" {
		t.Errorf("search arg = %v, want %%demo%%", p.args[1])
	}
}

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"plain":    "plain",
		"50%":      `50\%`,
		"a_b":      `a\_b`,
		`back\txt`: `back\\txt`,
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
