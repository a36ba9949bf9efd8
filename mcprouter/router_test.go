package mcprouter

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfox/gateway/mcpsession"
	"github.com/ashfox/gateway/proxyrouter"
	"github.com/ashfox/gateway/schema"
	"github.com/ashfox/gateway/toolservice"
)

func newTestRouter() (*echo.Echo, *Router) {
	svc := toolservice.New(nil, toolservice.Policy{}, schema.Registry())
	proxy := proxyrouter.New(svc)
	sessions := mcpsession.New(30*time.Minute, nil)
	rt := New(svc, proxy, sessions, 15*time.Second)

	e := echo.New()
	rt.RegisterRoutes(e, "/mcp")
	return e, rt
}

func post(e *echo.Echo, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestInitializeAllocatesSessionAndDefaultsProtocol(t *testing.T) {
	e, _ := newTestRouter()
	rec := post(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"protocolVersion":"2025-06-18"`)
	assert.Contains(t, rec.Body.String(), `"sessionId"`)
}

func TestMethodBeforeSessionRequiresSessionID(t *testing.T) {
	e, _ := newTestRouter()
	rec := post(e, `{"jsonrpc":"2.0","id":2,"method":"get_project_state"}`, nil)

	assert.Contains(t, rec.Body.String(), `"session_id_required"`)
}

func TestToolsListIsImplicitSession(t *testing.T) {
	e, _ := newTestRouter()
	rec := post(e, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`, nil)

	assert.Contains(t, rec.Body.String(), `"tools"`)
	assert.Contains(t, rec.Body.String(), `"add_bone"`)
}

func TestToolsCallRoundTripsThroughCreateAndAddBone(t *testing.T) {
	e, _ := newTestRouter()

	initRec := post(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, nil)
	require.Equal(t, http.StatusOK, initRec.Code)
	sessionID := initRec.Header().Get(SessionIDHeader)
	require.NotEmpty(t, sessionID)

	notifyRec := post(e, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, map[string]string{SessionIDHeader: sessionID})
	assert.Equal(t, http.StatusAccepted, notifyRec.Code)

	createBody := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_project","arguments":{"id":"p1","name":"demo"}}}`
	createRec := post(e, createBody, map[string]string{SessionIDHeader: sessionID})
	assert.Contains(t, createRec.Body.String(), `"ok":true`)

	boneBody := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"add_bone","arguments":{"name":"root"}}}`
	boneRec := post(e, boneBody, map[string]string{SessionIDHeader: sessionID})
	assert.Contains(t, boneRec.Body.String(), `"ok":true`)
	assert.Contains(t, boneRec.Body.String(), `"root"`)
}

func TestToolsCallMissingNameIsInvalidParams(t *testing.T) {
	e, _ := newTestRouter()
	initRec := post(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, nil)
	sessionID := initRec.Header().Get(SessionIDHeader)
	post(e, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, map[string]string{SessionIDHeader: sessionID})

	rec := post(e, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"arguments":{}}}`, map[string]string{SessionIDHeader: sessionID})
	assert.Contains(t, rec.Body.String(), `"code":-32602`)
}

func TestMalformedJSONIsParseError(t *testing.T) {
	e, _ := newTestRouter()
	rec := post(e, `{not json`, nil)
	assert.Contains(t, rec.Body.String(), `"code":-32700`)
}

func TestUnknownMethodIsMethodNotFound(t *testing.T) {
	e, _ := newTestRouter()
	initRec := post(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, nil)
	sessionID := initRec.Header().Get(SessionIDHeader)
	post(e, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, map[string]string{SessionIDHeader: sessionID})

	rec := post(e, `{"jsonrpc":"2.0","id":2,"method":"bogus/method"}`, map[string]string{SessionIDHeader: sessionID})
	assert.Contains(t, rec.Body.String(), `"code":-32601`)
}

func TestOversizedBodyReturns413(t *testing.T) {
	e, _ := newTestRouter()
	huge := bytes.Repeat([]byte("a"), MaxBodyBytes+1)
	body := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"` + string(huge) + `"}}`
	rec := post(e, body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestOptionsSetsCORSHeaders(t *testing.T) {
	e, _ := newTestRouter()
	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestDeleteWithoutSessionIsBadRequest(t *testing.T) {
	e, _ := newTestRouter()
	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
