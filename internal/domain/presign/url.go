package presign

import (
	"net/url"
	"strconv"
	"time"
)

const (
	// RefreshThreshold is how close to expiry a link may get before it is
	// considered stale. Console sessions hold listings open for a while,
	// so links are renewed well before they die.
	RefreshThreshold = 10 * time.Minute

	// CacheValidity bounds how long a freshly issued link may be replayed
	// from cache before a new one is fetched.
	CacheValidity = 5 * time.Minute

	// RefreshBatchSize caps concurrent reissue calls in RefreshMany.
	RefreshBatchSize = 5

	amzDateLayout = "20060102T150405Z"
)

const (
	paramAlgorithm = "X-Amz-Algorithm"
	paramSignature = "X-Amz-Signature"
	paramDate      = "X-Amz-Date"
	paramExpires   = "X-Amz-Expires"
)

var signedMarkers = []string{paramAlgorithm, paramSignature, paramDate, paramExpires}

// IsSignedURL reports whether the URL carries all four query markers of a
// signed link. Plain URLs and partially signed junk both come back false.
func IsSignedURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	query := parsed.Query()
	for _, marker := range signedMarkers {
		if !query.Has(marker) {
			return false
		}
	}
	return true
}

// Expiry computes the moment a signed URL stops working, from its issue
// timestamp plus lifetime. The second return is false when either parameter
// is missing or unparsable.
func Expiry(raw string) (time.Time, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return time.Time{}, false
	}
	query := parsed.Query()

	issued, err := time.Parse(amzDateLayout, query.Get(paramDate))
	if err != nil {
		return time.Time{}, false
	}
	seconds, err := strconv.ParseInt(query.Get(paramExpires), 10, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}, false
	}
	return issued.Add(time.Duration(seconds) * time.Second), true
}

// NeedsRefresh decides whether a stored URL should be renewed before being
// handed to a client. Unsigned URLs never refresh; signed URLs whose expiry
// cannot be determined always do.
func NeedsRefresh(raw string, now time.Time) bool {
	return needsRefreshWithin(raw, now, RefreshThreshold)
}

func needsRefreshWithin(raw string, now time.Time, threshold time.Duration) bool {
	if !IsSignedURL(raw) {
		return false
	}
	expiry, ok := Expiry(raw)
	if !ok {
		return true
	}
	return expiry.Sub(now) < threshold
}
