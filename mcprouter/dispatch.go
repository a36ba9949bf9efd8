package mcprouter

import (
	"encoding/json"

	"github.com/ashfox/gateway/mcpsession"
)

// implicitSessionMethods may run against a freshly-created, already-initialized session
// when no Mcp-Session-Id is supplied (spec §4.5: "a whitelist of 'implicit-session'
// methods that may create an ephemeral initialized session on first POST"). Decided here
// since spec.md leaves the whitelist's membership unspecified: read-only, idempotent
// methods that a stateless health-check or tool-discovery client might call without ever
// negotiating a session.
var implicitSessionMethods = map[string]bool{
	"ping":       true,
	"tools/list": true,
}

// dispatch runs one decoded JSON-RPC request against session (resolved by the caller)
// and returns the response to write, or ok=false for notifications that get no response.
func (rt *Router) dispatch(session *mcpsession.Session, req request) (response, bool) {
	switch req.Method {
	case "initialize":
		return rt.handleInitialize(req), true

	case "notifications/initialized":
		if session != nil {
			session.Initialized = true
		}
		return response{}, false

	case "ping":
		return resultResponse(req.ID, map[string]interface{}{}), true

	case "tools/list":
		return resultResponse(req.ID, map[string]interface{}{"tools": rt.toolDescriptors()}), true

	case "tools/call":
		return rt.handleToolsCall(session, req), true

	case "resources/list":
		return resultResponse(req.ID, map[string]interface{}{"resources": []interface{}{}}), true

	case "resources/templates/list":
		return resultResponse(req.ID, map[string]interface{}{"resourceTemplates": []interface{}{}}), true

	case "resources/read":
		return errorResponse(req.ID, CodeInvalidParams, "no resources are registered", nil), true

	default:
		return errorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method, nil), true
	}
}

func (rt *Router) handleInitialize(req request) response {
	if req.isNotification() {
		return errorResponse(req.ID, CodeInvalidRequest, "initialize_requires_id", nil)
	}

	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeParseError, "malformed initialize params", nil)
		}
	}

	protocol := rt.defaultProtocolVersion
	if params.ProtocolVersion != "" && rt.supportsProtocol(params.ProtocolVersion) {
		protocol = params.ProtocolVersion
	}

	session := rt.sessions.Create(protocol)

	return resultResponse(req.ID, map[string]interface{}{
		"protocolVersion": protocol,
		"sessionId":       session.ID,
		"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
	})
}

func (rt *Router) handleToolsCall(session *mcpsession.Session, req request) response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "malformed tools/call params", nil)
	}
	if params.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "missing tool name", nil)
	}
	if params.Arguments == nil {
		params.Arguments = map[string]interface{}{}
	}

	if sch, ok := rt.schemas[params.Name]; ok {
		if res := sch.Validate(params.Arguments); !res.OK {
			return errorResponse(req.ID, CodeInvalidParams, res.Message, map[string]interface{}{
				"path": res.Path, "reason": res.Reason,
			})
		}
	}

	start := rt.now()
	result, known := callTool(rt.svc, rt.proxy, params.Name, params.Arguments)
	duration := rt.since(start)

	if !known {
		return errorResponse(req.ID, CodeInvalidParams, "unknown tool: "+params.Name, map[string]interface{}{
			"reason": "unknown_tool", "tool": params.Name,
		})
	}

	rt.observeToolCall(params.Name, result.OK, duration)
	if rt.tracelog != nil {
		rt.tracelog.RecordToolCall(params.Name, params.Arguments, result.OK, result.Data, result.Error)
	}

	return resultResponse(req.ID, envelope(result))
}

// envelope wraps a toolResult in the spec §6 content/structuredContent shape.
func envelope(r toolResult) map[string]interface{} {
	var structured interface{}
	if r.OK {
		body := map[string]interface{}{"ok": true, "data": r.Data}
		if r.Revision != "" {
			body["revision"] = r.Revision
		}
		if r.State != nil {
			body["state"] = r.State
		}
		if r.Diff != nil {
			body["diff"] = r.Diff
		}
		structured = body
	} else {
		structured = map[string]interface{}{"ok": false, "error": r.Error}
	}

	text, _ := json.Marshal(structured)
	out := map[string]interface{}{
		"content":           []map[string]interface{}{{"type": "text", "text": string(text)}},
		"structuredContent": structured,
	}
	if !r.OK {
		out["isError"] = true
	}
	return out
}
