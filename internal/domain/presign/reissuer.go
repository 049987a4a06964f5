package presign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pilotforce-server-go/internal/platform/errors"
)

// HTTPReissuer renews signed URLs through a remote presign endpoint. It posts
// the stale URL and expects the service envelope back with a fresh link.
type HTTPReissuer struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPReissuer(endpoint, token string) (*HTTPReissuer, error) {
	if endpoint == "" {
		return nil, errors.New(errors.KindPresign, "reissuer.new", "presign endpoint required")
	}
	return &HTTPReissuer{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type presignRequest struct {
	URL string `json:"url"`
}

type presignResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		PresignedURL string `json:"presignedUrl"`
	} `json:"data"`
}

func (r *HTTPReissuer) Reissue(ctx context.Context, rawURL string) (string, error) {
	const op = "reissuer.reissue"

	body, err := json.Marshal(presignRequest{URL: rawURL})
	if err != nil {
		return "", errors.Wrap(errors.KindPresign, op, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(errors.KindPresign, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.KindPresign, op, "presign request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.New(errors.KindPresign, op,
			fmt.Sprintf("presign endpoint returned status %d", resp.StatusCode))
	}

	var parsed presignResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(errors.KindPresign, op, "decode response", err)
	}
	if !parsed.Success || parsed.Data.PresignedURL == "" {
		return "", errors.New(errors.KindPresign, op, "presign endpoint returned no url")
	}
	return parsed.Data.PresignedURL, nil
}
