package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/metrics"
)

// writeTimeout bounds each write on a long-lived stream.
const writeTimeout = 30 * time.Second

// eventWriter encodes server-sent events onto one connection. Frames carry
// the scene tick as the event id so a reconnecting EventSource reports the
// last tick it rendered in Last-Event-ID.
type eventWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ip     string
	logger *slog.Logger
	buf    bytes.Buffer

	events  int64
	written int64
}

func newEventWriter(w http.ResponseWriter, ip string, logger *slog.Logger) *eventWriter {
	return &eventWriter{w: w, rc: http.NewResponseController(w), ip: ip, logger: logger}
}

// retry advises the client's reconnect delay.
func (ew *eventWriter) retry(d time.Duration) error {
	ew.buf.Reset()
	ew.buf.WriteString("retry: ")
	ew.buf.WriteString(strconv.FormatInt(d.Milliseconds(), 10))
	ew.buf.WriteString("\n\n")
	return ew.flush(false)
}

// event writes v as JSON in a single "data:" field, preceded by "id:" when
// id is non-empty.
func (ew *eventWriter) event(id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		metrics.IncStreamErrors("marshal_error")
		return fmt.Errorf("json marshal: %w", err)
	}

	ew.buf.Reset()
	if id != "" {
		ew.buf.WriteString("id: ")
		ew.buf.WriteString(id)
		ew.buf.WriteByte('\n')
	}
	ew.buf.WriteString("data: ")
	ew.buf.Write(data)
	ew.buf.WriteString("\n\n")
	return ew.flush(true)
}

// comment writes the empty SSE comment used as a keepalive.
func (ew *eventWriter) comment() error {
	ew.buf.Reset()
	ew.buf.WriteString(":\n\n")
	return ew.flush(false)
}

func (ew *eventWriter) flush(isEvent bool) error {
	if err := ew.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		ew.logger.Debug("could not set write deadline", "remote_ip", ew.ip, "error", err)
	}

	n, err := ew.w.Write(ew.buf.Bytes())
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := ew.rc.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	ew.written += int64(n)
	metrics.AddStreamBytes(int64(n))
	if isEvent {
		ew.events++
		metrics.IncStreamMessages()
	}
	return nil
}
