// Package forward relays requests to the configured upstream services: the
// pool, the wallet and the mining-info endpoint.
package forward

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zhzsx/creepMiner/internal/errors"
	"github.com/zhzsx/creepMiner/internal/metrics"
	"github.com/zhzsx/creepMiner/internal/miner"
	"github.com/zhzsx/creepMiner/internal/platform/version"
)

// HostType selects the upstream a request is relayed to.
type HostType string

const (
	HostPool       HostType = "pool"
	HostWallet     HostType = "wallet"
	HostMiningInfo HostType = "miningInfo"
)

const upstreamTimeout = 30 * time.Second

// hop-by-hop and server-identity headers are not relayed either way.
var skippedHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Host":              true,
	"Server":            true,
}

// Forwarder relays requests to upstreams and submits nonces to the pool.
type Forwarder struct {
	client    *http.Client
	upstreams map[HostType]*url.URL
}

// Upstreams names the configured upstream base URLs; empty entries leave the
// corresponding host type unconfigured.
type Upstreams struct {
	Pool       string
	Wallet     string
	MiningInfo string
}

// New parses the upstream URLs and builds a forwarder.
func New(upstreams Upstreams) (*Forwarder, error) {
	f := &Forwarder{
		client:    &http.Client{Timeout: upstreamTimeout},
		upstreams: make(map[HostType]*url.URL),
	}

	for hostType, raw := range map[HostType]string{
		HostPool:       upstreams.Pool,
		HostWallet:     upstreams.Wallet,
		HostMiningInfo: upstreams.MiningInfo,
	} {
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s URL: %w", hostType, err)
		}
		f.upstreams[hostType] = parsed
	}

	return f, nil
}

// Upstream returns the base URL for a host type, if configured.
func (f *Forwarder) Upstream(hostType HostType) (*url.URL, bool) {
	u, ok := f.upstreams[hostType]
	return u, ok
}

// FetchMiningInfo polls getMiningInfo from the mining-info upstream, falling
// back to the pool when none is configured separately.
func (f *Forwarder) FetchMiningInfo(ctx context.Context) (miner.MiningInfo, error) {
	upstream, ok := f.upstreams[HostMiningInfo]
	if !ok {
		upstream, ok = f.upstreams[HostPool]
	}
	if !ok {
		return miner.MiningInfo{}, errors.UpstreamError("no mining-info upstream configured", nil)
	}

	target := *upstream
	target.Path = "/burst"
	target.RawQuery = "requestType=getMiningInfo"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return miner.MiningInfo{}, err
	}
	req.Header.Set("X-Miner", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return miner.MiningInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return miner.MiningInfo{}, fmt.Errorf("mining-info upstream returned status %d", resp.StatusCode)
	}

	var info miner.MiningInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return miner.MiningInfo{}, fmt.Errorf("malformed mining info: %w", err)
	}
	return info, nil
}

// Forward relays the request to the upstream selected by hostType and copies
// status, relevant headers and body back unchanged. Transport failures are
// reported as upstream errors; the caller translates them.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, hostType HostType) error {
	upstream, ok := f.upstreams[hostType]
	if !ok {
		return errors.UpstreamError(fmt.Sprintf("no %s upstream configured", hostType), nil)
	}

	target := *upstream
	target.Path = r.URL.Path
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return errors.InternalError("failed to build upstream request", err)
	}
	copyHeaders(req.Header, r.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ForwardedRequestsTotal.WithLabelValues(string(hostType), "error").Inc()
		return errors.UpstreamError(fmt.Sprintf("%s upstream unreachable", hostType), err)
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.WarnContext(r.Context(), "Failed to relay upstream body", "hostType", hostType, "error", err)
	}

	metrics.ForwardedRequestsTotal.WithLabelValues(string(hostType), strconv.Itoa(resp.StatusCode)).Inc()
	return nil
}

func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		if skippedHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, value := range values {
			dst.Add(name, value)
		}
	}
}
