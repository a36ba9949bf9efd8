// Package tracelog implements the Trace Log (C12): an append-only, newline-delimited
// JSON recorder of every tool call, written once per process to ASHFOX_TRACE_LOG_PATH
// (spec §6/§7). The first line is a header record; every subsequent line is a step
// record, each carrying a strictly increasing sequence number.
package tracelog

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ashfox/gateway/toolservice"
)

const schemaVersion = 1

// Header is the trace log's first record.
type Header struct {
	Kind          string   `json:"kind"`
	SchemaVersion int      `json:"schemaVersion"`
	CreatedAt     string   `json:"createdAt"`
	PluginVersion string   `json:"pluginVersion,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}

// StepResponse mirrors the tool call result envelope's structuredContent (spec §6).
type StepResponse struct {
	OK    bool                   `json:"ok"`
	Data  interface{}            `json:"data,omitempty"`
	Error *toolservice.ToolError `json:"error,omitempty"`
}

// Step is one recorded tool call.
type Step struct {
	Kind     string                 `json:"kind"`
	Seq      int64                  `json:"seq"`
	TS       string                 `json:"ts"`
	Route    string                 `json:"route"`
	Op       string                 `json:"op"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Response StepResponse           `json:"response"`
}

// Writer appends header/step records to an underlying io.Writer, guarding the shared
// sequence counter and writer with one mutex: concurrent tool calls may record out of
// handler order, but seq is always contiguous and strictly increasing (spec §8).
type Writer struct {
	mu   sync.Mutex
	out  io.Writer
	closer io.Closer
	seq  int64
	now  func() time.Time
}

// Open creates (or truncates) path and writes the header record, returning a Writer
// ready to accept RecordToolCall calls. Callers should defer Close.
func Open(path, pluginVersion string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	w := New(f)
	w.closer = f
	if err := w.writeHeader(pluginVersion); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// New wraps an already-open writer, for tests that don't need a real file. The caller
// is responsible for writing a header record (via writeHeader, unexported, or by
// constructing one directly) before any RecordToolCall.
func New(out io.Writer) *Writer {
	return &Writer{out: out, now: time.Now}
}

func (w *Writer) writeHeader(pluginVersion string) error {
	return w.encode(Header{
		Kind:          "header",
		SchemaVersion: schemaVersion,
		CreatedAt:     w.now().UTC().Format(time.RFC3339Nano),
		PluginVersion: pluginVersion,
	})
}

// RecordToolCall implements mcprouter.Recorder: it appends one step record for a
// completed tools/call dispatch.
func (w *Writer) RecordToolCall(tool string, payload map[string]interface{}, ok bool, data interface{}, toolErr *toolservice.ToolError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++

	step := Step{
		Kind:    "step",
		Seq:     w.seq,
		TS:      w.now().UTC().Format(time.RFC3339Nano),
		Route:   "tool",
		Op:      tool,
		Payload: payload,
		Response: StepResponse{
			OK:    ok,
			Data:  data,
			Error: toolErr,
		},
	}
	line, err := json.Marshal(step)
	if err != nil {
		return
	}
	_, _ = w.out.Write(append(line, '\n'))
}

func (w *Writer) encode(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = w.out.Write(line)
	return err
}

// Close releases the underlying file, if Open created one.
func (w *Writer) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
