package medicineparser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harithra-blueberry/aiprescription/logging"
)

// maxDownloadSize caps a remote catalog file.
const maxDownloadSize = 64 << 20

func newDownloadClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Minute,
	}
}

// download fetches a remote catalog file into memory.
func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDownload, url, err)
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDownload, url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrDownload, url, response.Status)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxDownloadSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrDownload, url, maxDownloadSize)
	}

	logging.Debug(fmt.Sprintf("%s downloaded without errors", url), "bytes", len(body))
	return body, nil
}
