package eventbus

import "time"

// Topic names.
const (
	EventResourceCreated = "resource:created"
	EventResourceDeleted = "resource:deleted"
	EventManifestStored  = "geotiff:manifest-stored"
	EventGeoTIFFReady    = "geotiff:ready"
	EventURLRefreshed    = "presign:url-refreshed"
)

// ResourceEvent accompanies resource lifecycle topics.
type ResourceEvent struct {
	ResourceID string `json:"resource_id"`
	BookingID  string `json:"booking_id"`
	ObjectKey  string `json:"object_key"`
	IsImage    bool   `json:"is_image"`
}

// ManifestEvent accompanies chunked-upload manifest topics.
type ManifestEvent struct {
	SessionID string `json:"session_id"`
	BookingID string `json:"booking_id"`
	FileName  string `json:"file_name"`
}

// RefreshEvent accompanies URL refresh topics.
type RefreshEvent struct {
	Count       int           `json:"count"`
	Elapsed     time.Duration `json:"elapsed"`
	FromCache   int           `json:"from_cache,omitempty"`
	FailedCount int           `json:"failed_count,omitempty"`
}
