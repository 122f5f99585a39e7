package video

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/snapvid/snapvid/internal/auth"
	"github.com/snapvid/snapvid/internal/httputil"
	"github.com/snapvid/snapvid/internal/ratelimit"
	"github.com/snapvid/snapvid/internal/stream"
	"github.com/snapvid/snapvid/internal/validate"
)

const placeholderTitle = "Temporary Title"

type uploadURLResponse struct {
	VideoID   string `json:"videoId"`
	UploadURL string `json:"uploadUrl"`
	AccessKey string `json:"accessKey"`
}

type thumbnailURLRequest struct {
	VideoID     string `json:"videoId"`
	ContentType string `json:"contentType"`
}

type thumbnailURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	CDNURL    string `json:"cdnUrl"`
}

type saveRequest struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Visibility   string `json:"visibility"`
	Duration     *int   `json:"duration"`
}

type saveResponse struct {
	VideoID string `json:"videoId"`
}

type visibilityRequest struct {
	Visibility string `json:"visibility"`
}

type statusResponse struct {
	IsProcessed      bool `json:"isProcessed"`
	EncodingProgress int  `json:"encodingProgress"`
	Status           int  `json:"status"`
}

type transcriptResponse struct {
	Transcript string `json:"transcript"`
	Available  bool   `json:"available"`
}

// UploadURL creates a placeholder container at the streaming provider and
// hands the client a direct upload URL plus the provider access credential.
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	videoID, err := h.stream.CreateVideo(r.Context(), placeholderTitle)
	if err != nil {
		slog.Error("video: failed to create placeholder", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "upload URL unavailable")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, uploadURLResponse{
		VideoID:   videoID,
		UploadURL: h.stream.UploadURL(videoID),
		AccessKey: h.stream.AccessKey(),
	})
}

// ThumbnailUploadURL derives a deterministic storage key and presigns a
// direct PUT. No remote call is involved; the CDN URL is returned for the
// client to persist with the video metadata.
func (h *Handler) ThumbnailUploadURL(w http.ResponseWriter, r *http.Request) {
	var req thumbnailURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := uuid.Parse(req.VideoID); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video id")
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !strings.HasPrefix(contentType, "image/") {
		httputil.WriteError(w, http.StatusBadRequest, "thumbnail must be an image")
		return
	}

	key := thumbnailKey(req.VideoID, time.Now())
	uploadURL, err := h.storage.GenerateUploadURL(r.Context(), key, contentType, 30*time.Minute)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate thumbnail upload URL")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, thumbnailURLResponse{
		UploadURL: uploadURL,
		CDNURL:    h.storage.CDNURL(key),
	})
}

// Save finalizes an upload: it pushes the real title and description to the
// provider, then inserts the local row. A provider failure aborts before the
// insert; the reverse failure mode leaves a remote asset without a local row,
// which the consistency model accepts.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := uuid.Parse(req.VideoID); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video id")
		return
	}
	if req.Title == "" {
		httputil.WriteError(w, http.StatusBadRequest, "title is required")
		return
	}
	if msg := validate.Title(req.Title); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.Description(req.Description); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = "public"
	}
	if visibility != "public" && visibility != "private" {
		httputil.WriteError(w, http.StatusBadRequest, "visibility must be public or private")
		return
	}

	if err := h.limiter.Allow(r.Context(), userID); err != nil {
		if errors.Is(err, ratelimit.ErrLimited) {
			httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "rate limit check failed")
		return
	}

	if err := h.stream.UpdateVideo(r.Context(), req.VideoID, req.Title, req.Description); err != nil {
		slog.Error("video: failed to push metadata to provider", "video_id", req.VideoID, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "failed to update video metadata")
		return
	}

	_, err := h.db.Exec(r.Context(),
		`INSERT INTO videos (video_id, title, description, thumbnail_url, video_url, visibility, duration, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.VideoID, req.Title, req.Description, req.ThumbnailURL, h.playbackURL(req.VideoID),
		visibility, req.Duration, userID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			httputil.WriteError(w, http.StatusConflict, "video already saved")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save video")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, saveResponse{VideoID: req.VideoID})
}

// UpdateVisibility is a rate-limited, owner-scoped single-row update. The
// limiter fingerprint is the acting user id, same as every other gated
// action.
func (h *Handler) UpdateVisibility(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID := chi.URLParam(r, "id")

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Visibility != "public" && req.Visibility != "private" {
		httputil.WriteError(w, http.StatusBadRequest, "visibility must be public or private")
		return
	}

	if err := h.limiter.Allow(r.Context(), userID); err != nil {
		if errors.Is(err, ratelimit.ErrLimited) {
			httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "rate limit check failed")
		return
	}

	tag, err := h.db.Exec(r.Context(),
		`UPDATE videos SET visibility = $1, updated_at = now() WHERE video_id = $2 AND user_id = $3`,
		req.Visibility, videoID, userID,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to update visibility")
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IncrementViews bumps the public counter with a single atomic expression and
// records a best-effort analytics row off the request path.
func (h *Handler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	var views int64
	err := h.db.QueryRow(r.Context(),
		`UPDATE videos SET views = views + 1, updated_at = now() WHERE video_id = $1 RETURNING views`,
		videoID,
	).Scan(&views)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	h.recordView(r, videoID)

	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"views": views})
}

func (h *Handler) IncrementLikes(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	var likes int64
	err := h.db.QueryRow(r.Context(),
		`UPDATE videos SET likes = likes + 1, updated_at = now() WHERE video_id = $1 RETURNING likes`,
		videoID,
	).Scan(&likes)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"likes": likes})
}

// Status polls the provider; processing state is never persisted locally.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	info, err := h.stream.GetVideo(r.Context(), videoID)
	if err != nil {
		slog.Error("video: failed to poll processing status", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "failed to fetch processing status")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		IsProcessed:      info.Status == stream.StatusFinished,
		EncodingProgress: info.EncodeProgress,
		Status:           info.Status,
	})
}

// Transcript returns the auto-caption text when one exists. A missing
// transcript is a normal outcome, not a failure.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	text, ok, err := h.transcripts.Fetch(r.Context(), videoID)
	if err != nil {
		slog.Error("video: transcript fetch failed", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "failed to fetch transcript")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, transcriptResponse{Transcript: text, Available: ok})
}

// Delete removes the remote video, the remote thumbnail, and the local row,
// in that order. The steps are independent: a failed remote delete is logged
// and the remaining steps still run, so the local row never outlives a
// successful request. Orphaned remote assets are cleaned up out of band.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID := chi.URLParam(r, "id")

	if err := h.limiter.Allow(r.Context(), userID); err != nil {
		if errors.Is(err, ratelimit.ErrLimited) {
			httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "rate limit check failed")
		return
	}

	var thumbnailURL string
	err := h.db.QueryRow(r.Context(),
		`SELECT thumbnail_url FROM videos WHERE video_id = $1 AND user_id = $2`,
		videoID, userID,
	).Scan(&thumbnailURL)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	if err := h.stream.DeleteVideo(r.Context(), videoID); err != nil {
		slog.Error("video: remote delete failed, continuing", "video_id", videoID, "error", err)
	}

	if key, ok := thumbnailKeyFromURL(thumbnailURL); ok {
		if err := h.storage.DeleteObject(r.Context(), key); err != nil {
			slog.Error("video: thumbnail delete failed, continuing", "video_id", videoID, "key", key, "error", err)
		}
	}

	tag, err := h.db.Exec(r.Context(),
		`DELETE FROM videos WHERE video_id = $1 AND user_id = $2`,
		videoID, userID,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete video")
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// thumbnailKeyFromURL recovers the storage key from a stored CDN URL.
func thumbnailKeyFromURL(thumbnailURL string) (string, bool) {
	_, rest, found := strings.Cut(thumbnailURL, "thumbnails/")
	if !found || rest == "" {
		return "", false
	}
	return "thumbnails/" + rest, true
}

func (h *Handler) recordView(r *http.Request, videoID string) {
	ip := clientIP(r)
	ua := r.UserAgent()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		hash := viewerHash(ip, ua)
		browser := parseBrowser(ua)
		device := parseDevice(ua)
		var country, city string
		if h.geoResolver != nil {
			country, city = h.geoResolver.Lookup(ip)
		}

		if _, err := h.db.Exec(ctx,
			`INSERT INTO video_views (video_id, viewer_hash, browser, device, country, city)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			videoID, hash, browser, device, country, city,
		); err != nil {
			slog.Error("video: failed to record view", "video_id", videoID, "error", err)
		}
	}()
}
