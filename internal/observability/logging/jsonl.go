package logging

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/aerocheck/aerocheck/internal/observability"
	"github.com/aerocheck/aerocheck/internal/version"
)

const SchemaVersion = "1.0"

type jsonlLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

type logEntry struct {
	Timestamp        string         `json:"ts"`
	Level            string         `json:"level"`
	Event            string         `json:"event,omitempty"`
	Component        string         `json:"component"`
	OpID             string         `json:"op_id"`
	SchemaVersion    string         `json:"schema_version"`
	AerocheckVersion string         `json:"aerocheck_version,omitempty"`
	EngineVersion    string         `json:"engine_version,omitempty"`
	GoVersion        string         `json:"go_version,omitempty"`
	Message          string         `json:"msg,omitempty"`
	Fields           map[string]any `json:"fields,omitempty"`
}

func newEntry(level, component string) logEntry {
	return logEntry{
		Timestamp:        time.Now().UTC().Format(time.RFC3339Nano),
		Level:            level,
		Component:        component,
		SchemaVersion:    SchemaVersion,
		AerocheckVersion: version.BuildVersion(),
		EngineVersion:    version.EngineVersion,
		GoVersion:        runtime.Version(),
	}
}

func (j *jsonlLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < j.minLevel {
		return
	}
	entry := newEntry(level, component)
	entry.Message = msg
	entry.Fields = collect(fields)
	j.write(entry)
}

// Event is logged at info with the op id from ctx
func (j *jsonlLogger) Event(ctx context.Context, event string, fields map[string]any) {
	if levelPriority(LevelInfo) < j.minLevel {
		return
	}
	entry := newEntry(LevelInfo, "cli")
	entry.Event = EventPrefix + event
	entry.OpID = observability.OpID(ctx)
	entry.Fields = fields
	j.write(entry)
}

func (j *jsonlLogger) write(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.writer.Write(data)
}

func (j *jsonlLogger) Debug(component, msg string, fields ...any) {
	j.log(LevelDebug, component, msg, fields...)
}

func (j *jsonlLogger) Info(component, msg string, fields ...any) {
	j.log(LevelInfo, component, msg, fields...)
}

func (j *jsonlLogger) Warn(component, msg string, fields ...any) {
	j.log(LevelWarn, component, msg, fields...)
}

func (j *jsonlLogger) Error(component, msg string, fields ...any) {
	j.log(LevelError, component, msg, fields...)
}

func (j *jsonlLogger) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
