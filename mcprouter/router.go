package mcprouter

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ashfox/gateway/mcpsession"
	"github.com/ashfox/gateway/proxyrouter"
	"github.com/ashfox/gateway/schema"
	"github.com/ashfox/gateway/toolservice"
)

// MaxBodyBytes bounds an incoming MCP POST body (spec §5 "MCP body: max 5,000,000
// bytes; larger → 413").
const MaxBodyBytes = 5_000_000

// MaxHeaderBytes bounds the request's header block (spec §5 "Header block: max 16 KiB").
const MaxHeaderBytes = 16 * 1024

// SessionIDHeader and ProtocolVersionHeader are the MCP transport headers (spec §4.5/§6).
const (
	SessionIDHeader       = "Mcp-Session-Id"
	ProtocolVersionHeader = "Mcp-Protocol-Version"
)

// SupportedProtocolVersions is the negotiable protocol set (spec §4.5). The first entry
// is the server default offered when a client omits protocolVersion.
var SupportedProtocolVersions = []string{"2025-06-18", "2025-03-26"}

// Recorder is the narrow trace-log seam (C12): mcprouter reports each completed tool
// call, but owns no knowledge of how (or whether) it is persisted.
type Recorder interface {
	RecordToolCall(tool string, payload map[string]interface{}, ok bool, data interface{}, toolErr *toolservice.ToolError)
}

// MetricsRecorder is the narrow Prometheus seam (C11-adjacent): mcprouter reports each
// tool call's outcome and latency without owning the metric vectors themselves.
type MetricsRecorder interface {
	RecordToolCall(tool string, ok bool, duration time.Duration)
}

// Router implements the MCP Router (C7): the JSON-RPC/SSE protocol state machine in
// front of one Tool Service/Proxy Router pair.
type Router struct {
	svc   *toolservice.Service
	proxy *proxyrouter.Router

	sessions *mcpsession.Store
	schemas  map[string]schema.Schema

	defaultProtocolVersion string
	supportedProtocols     map[string]bool

	metrics  MetricsRecorder
	tracelog Recorder
	logger   *logrus.Entry

	sseKeepalive time.Duration
}

// New builds a Router over svc/proxy, backed by sessions for MCP session lifecycle. The
// router logs through a private logrus instance until WithLogger attaches the caller's
// entry; it never reaches for a package-level logger.
func New(svc *toolservice.Service, proxy *proxyrouter.Router, sessions *mcpsession.Store, sseKeepalive time.Duration) *Router {
	supported := make(map[string]bool, len(SupportedProtocolVersions))
	for _, v := range SupportedProtocolVersions {
		supported[v] = true
	}
	return &Router{
		svc:                    svc,
		proxy:                  proxy,
		sessions:               sessions,
		schemas:                schema.Registry(),
		defaultProtocolVersion: SupportedProtocolVersions[0],
		supportedProtocols:     supported,
		sseKeepalive:           sseKeepalive,
		logger:                 logrus.NewEntry(logrus.New()),
	}
}

// WithMetrics attaches a MetricsRecorder; returns rt for chaining at wiring time.
func (rt *Router) WithMetrics(m MetricsRecorder) *Router {
	rt.metrics = m
	return rt
}

// WithTraceLog attaches a Recorder; returns rt for chaining at wiring time.
func (rt *Router) WithTraceLog(r Recorder) *Router {
	rt.tracelog = r
	return rt
}

// WithLogger attaches the *logrus.Entry the router logs tool-call outcomes through,
// built once at startup by cli and passed explicitly rather than read from a global.
func (rt *Router) WithLogger(logger *logrus.Entry) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) now() time.Time                            { return time.Now() }
func (rt *Router) since(start time.Time) time.Duration        { return time.Since(start) }
func (rt *Router) supportsProtocol(version string) bool       { return rt.supportedProtocols[version] }
func (rt *Router) observeToolCall(tool string, ok bool, d time.Duration) {
	rt.logger.WithFields(logrus.Fields{
		"tool": tool, "ok": ok, "durationMs": d.Milliseconds(),
	}).Info("tool call")
	if rt.metrics != nil {
		rt.metrics.RecordToolCall(tool, ok, d)
	}
}

// RegisterRoutes wires the MCP endpoint's four verbs onto e at path.
func (rt *Router) RegisterRoutes(e *echo.Echo, path string) {
	e.POST(path, rt.handlePost)
	e.GET(path, rt.handleGet)
	e.DELETE(path, rt.handleDelete)
	e.OPTIONS(path, rt.handleOptions)
}

func (rt *Router) handleOptions(c echo.Context) error {
	h := c.Response().Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "content-type, last-event-id, authorization, mcp-protocol-version, mcp-session-id")
	h.Set("Access-Control-Max-Age", "86400")
	return c.NoContent(http.StatusNoContent)
}

func (rt *Router) handlePost(c echo.Context) error {
	c.Response().Header().Set("Access-Control-Allow-Origin", "*")

	if len(c.Request().Header) > 0 {
		size := 0
		for k, vs := range c.Request().Header {
			size += len(k)
			for _, v := range vs {
				size += len(v)
			}
		}
		if size > MaxHeaderBytes {
			return c.NoContent(http.StatusRequestHeaderFieldsTooLarge)
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxBodyBytes+1))
	if err != nil {
		return c.JSON(http.StatusOK, errorResponse(nil, CodeParseError, "failed to read request body", nil))
	}
	if len(body) > MaxBodyBytes {
		return c.NoContent(http.StatusRequestEntityTooLarge)
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusOK, errorResponse(nil, CodeParseError, "malformed JSON-RPC request", nil))
	}

	session, resp, handled := rt.resolveSession(c, req)
	if handled {
		return c.JSON(http.StatusOK, resp)
	}

	if session != nil {
		session.Touch()
	}

	resp, shouldRespond := rt.dispatch(session, req)
	// initialize always answers even when id-less: that case is itself the
	// initialize_requires_id error, which notification suppression must not swallow.
	if !shouldRespond || (req.isNotification() && req.Method != "initialize") {
		return c.NoContent(http.StatusAccepted)
	}
	if req.Method == "initialize" {
		if result, ok := resp.Result.(map[string]interface{}); ok {
			if id, ok := result["sessionId"].(string); ok {
				c.Response().Header().Set(SessionIDHeader, id)
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// resolveSession implements spec §4.5's session-resolution rules ahead of dispatch.
// handled=true means the caller should write resp immediately without calling dispatch.
func (rt *Router) resolveSession(c echo.Context, req request) (*mcpsession.Session, response, bool) {
	if req.Method == "initialize" {
		return nil, response{}, false
	}

	sessionID := c.Request().Header.Get(SessionIDHeader)
	if sessionID == "" {
		if implicitSessionMethods[req.Method] {
			session := rt.sessions.Create(rt.defaultProtocolVersion)
			session.Initialized = true
			return session, response{}, false
		}
		return nil, errorResponse(req.ID, CodeInitializationOrSession, "session_id_required", nil), true
	}

	session := rt.sessions.Get(sessionID)
	if session == nil {
		return nil, errorResponse(req.ID, CodeInitializationOrSession, "session_id_required", nil), true
	}

	if version := c.Request().Header.Get(ProtocolVersionHeader); version != "" && version != session.Protocol {
		return nil, errorResponse(req.ID, CodeInvalidRequest, "protocol_version_mismatch", map[string]interface{}{
			"expected": session.Protocol, "actual": version,
		}), true
	}

	if !session.Initialized && req.Method != "notifications/initialized" {
		return nil, errorResponse(req.ID, CodeInitializationOrSession, "server_not_initialized", nil), true
	}

	c.Response().Header().Set(SessionIDHeader, session.ID)
	return session, response{}, false
}

func (rt *Router) handleDelete(c echo.Context) error {
	sessionID := c.Request().Header.Get(SessionIDHeader)
	if sessionID == "" {
		return c.NoContent(http.StatusBadRequest)
	}
	rt.sessions.CloseSession(sessionID)
	return c.NoContent(http.StatusNoContent)
}

// handleGet opens an SSE stream on the session named by Mcp-Session-Id (spec §4.6).
func (rt *Router) handleGet(c echo.Context) error {
	if c.Request().Header.Get("Accept") != "text/event-stream" {
		return c.NoContent(http.StatusBadRequest)
	}

	sessionID := c.Request().Header.Get(SessionIDHeader)
	session := rt.sessions.Get(sessionID)
	if session == nil {
		return c.JSON(http.StatusOK, errorResponse(nil, CodeInitializationOrSession, "session_id_required", nil))
	}

	conn, err := rt.sessions.AttachSSE(session)
	if err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{"code": "too_many_requests"})
	}
	defer rt.sessions.DetachSSE(session, conn)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)

	w := bufio.NewWriter(resp)
	if _, err := w.WriteString(": stream open\n\n"); err != nil {
		return nil
	}
	w.Flush()
	resp.Flush()

	keepalive := rt.sseKeepalive
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Closed:
			return nil
		case ev := <-conn.Events:
			if _, err := w.WriteString(ev.Encode()); err != nil {
				return nil
			}
			w.Flush()
			resp.Flush()
		case <-ticker.C:
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
			resp.Flush()
		}
	}
}
