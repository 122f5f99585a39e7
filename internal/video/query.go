package video

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/snapvid/snapvid/internal/auth"
	"github.com/snapvid/snapvid/internal/httputil"
	"github.com/snapvid/snapvid/internal/validate"
)

type videoItem struct {
	ID           string `json:"id"`
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	VideoURL     string `json:"videoUrl"`
	Visibility   string `json:"visibility"`
	Views        int64  `json:"views"`
	Likes        int64  `json:"likes"`
	Duration     *int   `json:"duration"`
	UserID       string `json:"userId"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type uploaderItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

type listEntry struct {
	Video videoItem    `json:"video"`
	User  uploaderItem `json:"user"`
}

type listResponse struct {
	Videos     []listEntry `json:"videos"`
	Pagination Pagination  `json:"pagination"`
}

type profileUser struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}

type profileResponse struct {
	User       profileUser `json:"user"`
	Videos     []listEntry `json:"videos"`
	Pagination Pagination  `json:"pagination"`
}

type detailResponse struct {
	User  uploaderItem `json:"user"`
	Video videoItem    `json:"video"`
}

// videosWithUploader is the shared projection for every list/detail read:
// videos left-joined with the owning user, so a deleted uploader degrades to
// a "Guest" presentation instead of dropping the row.
const videosWithUploader = `SELECT v.id, v.video_id, v.title, v.description, v.thumbnail_url, v.video_url,
	    v.visibility, v.views, v.likes, v.duration, v.user_id, v.created_at, v.updated_at,
	    u.id, u.name, u.image
	 FROM videos v
	 LEFT JOIN users u ON u.id = v.user_id`

// predicate accumulates WHERE clauses with positional parameters.
type predicate struct {
	clauses []string
	args    []any
}

// add appends a clause; %d verbs in format are replaced with the positional
// indexes of the supplied args.
func (p *predicate) add(format string, args ...any) {
	idx := make([]any, len(args))
	for i := range args {
		idx[i] = len(p.args) + i + 1
	}
	p.clauses = append(p.clauses, fmt.Sprintf(format, idx...))
	p.args = append(p.args, args...)
}

func (p *predicate) where() string {
	return strings.Join(p.clauses, " AND ")
}

func escapeLike(query string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
}

// libraryPredicate gates the shared library: public videos plus the current
// user's own, optionally narrowed by a title substring match.
func libraryPredicate(currentUserID, searchQuery string) *predicate {
	p := &predicate{}
	p.add(`(v.visibility = 'public' OR v.user_id = $%d)`, currentUserID)
	if searchQuery != "" {
		p.add(`v.title ILIKE $%d`, "%"+escapeLike(searchQuery)+"%")
	}
	return p
}

// profilePredicate scopes to one uploader; private videos stay visible only
// to the profile owner.
func profilePredicate(targetUserID string, isOwner bool, searchQuery string) *predicate {
	p := &predicate{}
	p.add(`v.user_id = $%d`, targetUserID)
	if !isOwner {
		p.clauses = append(p.clauses, `v.visibility = 'public'`)
	}
	if searchQuery != "" {
		p.add(`v.title ILIKE $%d`, "%"+escapeLike(searchQuery)+"%")
	}
	return p
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	currentUserID := auth.UserIDFromContext(r.Context())

	searchQuery := strings.TrimSpace(r.URL.Query().Get("query"))
	if msg := validate.SearchQuery(searchQuery); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	page, size := pageParams(r)
	p := libraryPredicate(currentUserID, searchQuery)

	var totalVideos int
	err := h.db.QueryRow(r.Context(),
		`SELECT COUNT(*) FROM videos v WHERE `+p.where(), p.args...,
	).Scan(&totalVideos)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to count videos")
		return
	}

	entries, err := h.queryEntries(r, p, r.URL.Query().Get("filter"), page, size)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Videos:     entries,
		Pagination: paginate(totalVideos, page, size),
	})
}

func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	targetUserID := chi.URLParam(r, "id")
	currentUserID := auth.UserIDFromContext(r.Context())

	searchQuery := strings.TrimSpace(r.URL.Query().Get("query"))
	if msg := validate.SearchQuery(searchQuery); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var user profileUser
	err := h.db.QueryRow(r.Context(),
		`SELECT id, name, email, image FROM users WHERE id = $1`, targetUserID,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Image)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	page, size := pageParams(r)
	p := profilePredicate(targetUserID, targetUserID == currentUserID, searchQuery)

	var totalVideos int
	err = h.db.QueryRow(r.Context(),
		`SELECT COUNT(*) FROM videos v WHERE `+p.where(), p.args...,
	).Scan(&totalVideos)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to count videos")
		return
	}

	entries, err := h.queryEntries(r, p, r.URL.Query().Get("filter"), page, size)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profileResponse{
		User:       user,
		Videos:     entries,
		Pagination: paginate(totalVideos, page, size),
	})
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	rows, err := h.db.Query(r.Context(), videosWithUploader+` WHERE v.id = $1`, id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load video")
		return
	}
	defer rows.Close()

	if !rows.Next() {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	entry, err := scanEntry(rows)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to scan video")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, detailResponse{User: entry.User, Video: entry.Video})
}

func (h *Handler) queryEntries(r *http.Request, p *predicate, sortFilter string, page, size int) ([]listEntry, error) {
	limitIdx := len(p.args) + 1
	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		videosWithUploader, p.where(), orderByClause(sortFilter), limitIdx, limitIdx+1)
	args := append(p.args, size, pageOffset(page, size))

	rows, err := h.db.Query(r.Context(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	entries := []listEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (listEntry, error) {
	var item videoItem
	var createdAt, updatedAt time.Time
	var uploaderID, uploaderName *string
	var uploaderImage *string

	err := row.Scan(&item.ID, &item.VideoID, &item.Title, &item.Description, &item.ThumbnailURL,
		&item.VideoURL, &item.Visibility, &item.Views, &item.Likes, &item.Duration, &item.UserID,
		&createdAt, &updatedAt, &uploaderID, &uploaderName, &uploaderImage)
	if err != nil {
		return listEntry{}, err
	}

	item.CreatedAt = createdAt.Format(time.RFC3339)
	item.UpdatedAt = updatedAt.Format(time.RFC3339)

	// Missing uploader rows present as "Guest".
	user := uploaderItem{Name: "Guest"}
	if uploaderID != nil {
		user.ID = *uploaderID
		user.Image = uploaderImage
		if uploaderName != nil {
			user.Name = *uploaderName
		}
	}

	return listEntry{Video: item, User: user}, nil
}
