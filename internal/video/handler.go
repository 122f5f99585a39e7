package video

import (
	"context"
	"fmt"
	"time"

	"github.com/snapvid/snapvid/internal/database"
	"github.com/snapvid/snapvid/internal/ratelimit"
	"github.com/snapvid/snapvid/internal/stream"
)

// ObjectStorage covers the thumbnail flow: presigned direct uploads, CDN
// read URLs, and deletion on video removal.
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string, expiry time.Duration) (string, error)
	CDNURL(key string) string
	DeleteObject(ctx context.Context, key string) error
}

// StreamService is the streaming provider: placeholder creation, metadata
// pushes, processing status, deletion, and the direct-upload endpoint.
type StreamService interface {
	CreateVideo(ctx context.Context, title string) (string, error)
	UpdateVideo(ctx context.Context, videoID, title, description string) error
	GetVideo(ctx context.Context, videoID string) (stream.Video, error)
	DeleteVideo(ctx context.Context, videoID string) error
	UploadURL(videoID string) string
	AccessKey() string
}

// TranscriptSource fetches auto-captions; ok=false means none exists.
type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) (string, bool, error)
}

type GeoResolver interface {
	Lookup(ip string) (country, city string)
}

type Handler struct {
	db           database.DBTX
	storage      ObjectStorage
	stream       StreamService
	transcripts  TranscriptSource
	limiter      ratelimit.Gate
	geoResolver  GeoResolver
	embedBaseURL string
}

// NewHandler wires the video action layer. embedBaseURL is the playback
// embed prefix including the library segment; the provider video id is
// appended to form a video's playback URL.
func NewHandler(db database.DBTX, storage ObjectStorage, streamSvc StreamService, transcripts TranscriptSource, limiter ratelimit.Gate, embedBaseURL string) *Handler {
	return &Handler{
		db:           db,
		storage:      storage,
		stream:       streamSvc,
		transcripts:  transcripts,
		limiter:      limiter,
		embedBaseURL: embedBaseURL,
	}
}

func (h *Handler) SetGeoResolver(r GeoResolver) {
	h.geoResolver = r
}

func (h *Handler) playbackURL(videoID string) string {
	return fmt.Sprintf("%s/%s", h.embedBaseURL, videoID)
}

func thumbnailKey(videoID string, now time.Time) string {
	return fmt.Sprintf("thumbnails/%d-%s-thumbnail", now.UnixMilli(), videoID)
}
