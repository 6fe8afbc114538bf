package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

type FetchResponse struct {
	Data   []byte
	Header http.Header
}

// Fetcher retrieves the payload of a tile URL.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*FetchResponse, error)
}

// Decoder turns a tile payload into an image.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
}

type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	logger     logger.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher(timeout time.Duration, userAgent string, l logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		logger:    l,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (*FetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// tile usage policies require an identifying user agent
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile data: %w", err)
	}

	f.logger.Debug("fetched tile", "url", uri, "size", len(data))

	return &FetchResponse{Data: data, Header: resp.Header}, nil
}

// ImageDecoder decodes PNG, JPEG, GIF and WebP payloads.
type ImageDecoder struct{}

var _ Decoder = ImageDecoder{}

func (ImageDecoder) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile: %w", err)
	}
	return img, nil
}
