package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/zhzsx/creepMiner/internal/errors"
	"github.com/zhzsx/creepMiner/internal/forward"
	"github.com/zhzsx/creepMiner/internal/metrics"
)

// walletRequestTypes are the read-only chain queries the web UI issues; they
// belong to the wallet, not the pool.
var walletRequestTypes = map[string]bool{
	"getAccount":                     true,
	"getRewardRecipient":             true,
	"getAccountsWithRewardRecipient": true,
	"getBlock":                       true,
	"getBlockchainStatus":            true,
	"getConstants":                   true,
}

// handleBurst speaks the pool wire protocol: submitNonce and getMiningInfo
// are answered here, chain queries go to the wallet, everything else is
// relayed to the pool unchanged.
func (s *Server) handleBurst(c echo.Context) error {
	requestType := c.QueryParam("requestType")
	switch {
	case requestType == "submitNonce":
		return s.handleSubmitNonce(c)
	case requestType == "getMiningInfo":
		return s.handleMiningInfo(c)
	case requestType == "":
		return apperrors.ValidationError("missing requestType parameter")
	case walletRequestTypes[requestType]:
		// The pool answers chain queries too when no wallet is configured.
		if _, ok := s.forwarder.Upstream(forward.HostWallet); ok {
			return s.forwardTo(c, forward.HostWallet)
		}
		return s.forwardTo(c, forward.HostPool)
	default:
		return s.forwardTo(c, forward.HostPool)
	}
}

func (s *Server) handleSubmitNonce(c echo.Context) error {
	sub := forward.Submission{
		AccountID: c.QueryParam("accountId"),
		Nonce:     c.QueryParam("nonce"),
		Deadline:  c.QueryParam("deadline"),
	}
	if sub.AccountID == "" || sub.Nonce == "" {
		metrics.ActionsTotal.WithLabelValues("submitNonce", "bad_request").Inc()
		return apperrors.ValidationError("submitNonce requires accountId and nonce")
	}

	result, err := s.forwarder.SubmitNonce(c.Request().Context(), sub, s.settings.SubmissionMaxRetry())
	if err != nil {
		metrics.ActionsTotal.WithLabelValues("submitNonce", "upstream_error").Inc()
		return err
	}

	metrics.ActionsTotal.WithLabelValues("submitNonce", "ok").Inc()

	// Relay the upstream answer verbatim, status included.
	contentType := result.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(result.StatusCode, contentType, result.Body)
}

// handleMiningInfo serves the cached mining info; it is never recomputed or
// re-fetched on the request path.
func (s *Server) handleMiningInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, s.miner.MiningInfo())
}

func (s *Server) forwardTo(c echo.Context, hostType forward.HostType) error {
	return s.forwarder.Forward(c.Response(), c.Request(), hostType)
}
