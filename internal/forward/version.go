package forward

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhzsx/creepMiner/internal/platform/retry"
)

// VersionUnknown is the sentinel returned when the remote version endpoint
// cannot be reached. Network failure is never a hard error here.
const VersionUnknown = "unknown"

const versionFetchTimeout = 10 * time.Second

// FetchOnlineVersion queries the remote version endpoint and returns the
// published version string, or VersionUnknown on any failure.
func FetchOnlineVersion(ctx context.Context, versionURL string) string {
	client := &http.Client{Timeout: versionFetchTimeout}

	policy := retry.Policy{
		Attempts: 2,
		Backoff:  500 * time.Millisecond,
	}

	version, err := retry.Do(ctx, policy, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
		if err != nil {
			return "", err
		}

		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("version endpoint returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
		if err != nil {
			return "", err
		}

		version := strings.TrimSpace(string(body))
		if version == "" {
			return "", fmt.Errorf("version endpoint returned empty body")
		}
		return version, nil
	})
	if err != nil {
		return VersionUnknown
	}
	return version
}
