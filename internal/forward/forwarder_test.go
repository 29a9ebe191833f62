package forward

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zhzsx/creepMiner/internal/errors"
)

func TestForward_CopiesStatusHeadersAndBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/burst", r.URL.Path)
		assert.Equal(t, "requestType=getMiningInfo", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(201)
		_, _ = w.Write([]byte(`{"height":1}`))
	}))
	defer upstream.Close()

	f, err := New(Upstreams{Wallet: upstream.URL})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/burst?requestType=getMiningInfo", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, f.Forward(rec, req, HostWallet))
	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"height":1}`, rec.Body.String())
}

func TestForward_UnconfiguredUpstream(t *testing.T) {
	f, err := New(Upstreams{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	err = f.Forward(rec, req, HostPool)
	require.Error(t, err)

	structured := apperrors.AsStructuredError(err)
	assert.Equal(t, apperrors.TypeUpstream, structured.Type)
}

func TestForward_UnreachableUpstream(t *testing.T) {
	// A closed server: connection refused.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	f, err := New(Upstreams{Pool: upstream.URL})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	err = f.Forward(rec, req, HostPool)
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeUpstream, apperrors.AsStructuredError(err).Type)
}

func TestSubmitNonce_ForwardsTripleVerbatim(t *testing.T) {
	var gotQuery map[string]string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"requestType": q.Get("requestType"),
			"accountId":   q.Get("accountId"),
			"nonce":       q.Get("nonce"),
			"deadline":    q.Get("deadline"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","deadline":789}`))
	}))
	defer upstream.Close()

	f, err := New(Upstreams{Pool: upstream.URL})
	require.NoError(t, err)

	sub := Submission{AccountID: "123", Nonce: "456", Deadline: "789"}
	result, err := f.SubmitNonce(context.Background(), sub, 3)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"requestType": "submitNonce",
		"accountId":   "123",
		"nonce":       "456",
		"deadline":    "789",
	}, gotQuery)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, `{"result":"success","deadline":789}`, string(result.Body))
}

func TestSubmitNonce_UpstreamRejectionPassesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"error":"deadline too high"}`))
	}))
	defer upstream.Close()

	f, err := New(Upstreams{Pool: upstream.URL})
	require.NoError(t, err)

	result, err := f.SubmitNonce(context.Background(), Submission{AccountID: "1", Nonce: "2", Deadline: "3"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 400, result.StatusCode)
	assert.Equal(t, `{"error":"deadline too high"}`, string(result.Body))
}

func TestSubmitNonce_RetriesTransportFailures(t *testing.T) {
	attempts := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			// Drop the connection without a response.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		_, _ = w.Write([]byte(`{"result":"success"}`))
	}))
	defer upstream.Close()

	f, err := New(Upstreams{Pool: upstream.URL})
	require.NoError(t, err)

	result, err := f.SubmitNonce(context.Background(), Submission{AccountID: "1", Nonce: "2", Deadline: "3"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, 2, attempts)
}

func TestFetchMiningInfo(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/burst", r.URL.Path)
		require.Equal(t, "getMiningInfo", r.URL.Query().Get("requestType"))
		_, _ = io.WriteString(w, `{"height":42,"baseTarget":70000,"generationSignature":"ab","targetDeadline":86400}`)
	}))
	defer upstream.Close()

	f, err := New(Upstreams{MiningInfo: upstream.URL})
	require.NoError(t, err)

	info, err := f.FetchMiningInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), info.Height)
	assert.Equal(t, uint64(70000), info.BaseTarget)
	assert.Equal(t, "ab", info.GenerationSignature)
}

func TestFetchMiningInfo_FallsBackToPool(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"height":7}`)
	}))
	defer upstream.Close()

	f, err := New(Upstreams{Pool: upstream.URL})
	require.NoError(t, err)

	info, err := f.FetchMiningInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), info.Height)
}

func TestFetchMiningInfo_ErrorPaths(t *testing.T) {
	f, err := New(Upstreams{})
	require.NoError(t, err)
	_, err = f.FetchMiningInfo(context.Background())
	require.Error(t, err)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer bad.Close()

	f, err = New(Upstreams{Pool: bad.URL})
	require.NoError(t, err)
	_, err = f.FetchMiningInfo(context.Background())
	require.Error(t, err)
}

func TestFetchOnlineVersion(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "1.7.19\n")
	}))
	defer upstream.Close()

	version := FetchOnlineVersion(context.Background(), upstream.URL)
	assert.Equal(t, "1.7.19", version)
}

func TestFetchOnlineVersion_UnknownOnFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	version := FetchOnlineVersion(context.Background(), upstream.URL)
	assert.Equal(t, VersionUnknown, version)
}

func TestFetchOnlineVersion_UnknownOnBadStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer upstream.Close()

	version := FetchOnlineVersion(context.Background(), upstream.URL)
	assert.Equal(t, VersionUnknown, version)
}
