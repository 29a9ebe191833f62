// Package webserver implements the HTTP control plane using the Echo framework.
//
// Routes: auth (login/logout), dashboard pages (templated), control actions
// (rescan/check/settings/plotdirs/shutdown/restart), the pool protocol
// surface (/burst), the WebSocket push channel (/ws) and static assets.
// Handlers split by concern: handlers_auth.go, handlers_pages.go,
// handlers_actions.go, handlers_burst.go, handlers_ws.go.
package webserver
