package forward

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zhzsx/creepMiner/internal/errors"
	"github.com/zhzsx/creepMiner/internal/platform/retry"
	"github.com/zhzsx/creepMiner/internal/platform/version"
)

// Submission is one nonce submission, forwarded upstream unmodified.
type Submission struct {
	AccountID string
	Nonce     string
	Deadline  string
}

// SubmitResult is the upstream's answer, relayed verbatim to the caller.
type SubmitResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// SubmitNonce forwards the submission triple to the pool exactly as given
// and returns the upstream response unchanged. Only transport-level failures
// are translated; upstream rejections pass through as-is. Transient failures
// are retried up to maxRetry attempts.
func (f *Forwarder) SubmitNonce(ctx context.Context, sub Submission, maxRetry int) (SubmitResult, error) {
	pool, ok := f.upstreams[HostPool]
	if !ok {
		return SubmitResult{}, errors.UpstreamError("no pool upstream configured", nil)
	}

	target := *pool
	target.Path = "/burst"
	query := url.Values{}
	query.Set("requestType", "submitNonce")
	query.Set("accountId", sub.AccountID)
	query.Set("nonce", sub.Nonce)
	query.Set("deadline", sub.Deadline)
	target.RawQuery = query.Encode()

	policy := retry.Policy{
		Attempts: maxRetry,
		Backoff:  250 * time.Millisecond,
	}

	// Every transport error is worth retrying; an HTTP response of any
	// status is a final answer from the pool.
	result, err := retry.Do(ctx, policy, func() (SubmitResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), nil)
		if err != nil {
			return SubmitResult{}, err
		}
		req.Header.Set("X-Miner", version.UserAgent())

		resp, err := f.client.Do(req)
		if err != nil {
			return SubmitResult{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return SubmitResult{}, err
		}

		return SubmitResult{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}, nil
	})
	if err != nil {
		return SubmitResult{}, errors.UpstreamError(
			fmt.Sprintf("nonce submission failed after %d attempts", maxRetry), err)
	}
	return result, nil
}
