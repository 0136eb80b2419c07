// Package audit records one log entry per mediated request: who asked, what
// for, and how it ended. The entry travels in the request context so
// handlers and middleware can annotate it, and it is always written exactly
// once when the request finishes, panics included.
//
// The capability token itself is never recorded, only whether one was
// presented.
package audit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is the level audit entries are logged at. Audit entries are
// operational record, not diagnostics, so they sit above Info.
const Level = zerolog.WarnLevel

type contextKey struct{}

// Entry is the audit record for a single request.
type Entry struct {
	Method         string `json:"method,omitempty"`
	Path           string `json:"path,omitempty"`
	Query          string `json:"query,omitempty"`
	SourceIP       string `json:"sourceIP,omitempty"`
	UserAgent      string `json:"userAgent,omitempty"`
	TokenPresented bool   `json:"tokenPresented"`
	Authorized     bool   `json:"authorized"`
	Status         int    `json:"status,omitempty"`
	Error          string `json:"error,omitempty"`

	start time.Time
}

// Context returns a context carrying an audit entry, creating one if the
// context doesn't already hold one.
func Context(ctx context.Context) (context.Context, *Entry) {
	if entry, ok := ctx.Value(contextKey{}).(*Entry); ok {
		return ctx, entry
	}

	entry := &Entry{}
	return context.WithValue(ctx, contextKey{}, entry), entry
}

// Log returns the audit entry held by the context, or a throwaway entry if
// there is none. Annotations to a throwaway entry are lost, which is the
// correct behaviour outside the middleware.
func Log(ctx context.Context) *Entry {
	if entry, ok := ctx.Value(contextKey{}).(*Entry); ok {
		return entry
	}
	return &Entry{}
}

// Begin populates the entry from the incoming request.
func (e *Entry) Begin(r *http.Request) {
	e.start = time.Now()
	e.Method = r.Method
	e.Path = r.URL.Path
	e.Query = r.URL.RawQuery
	e.UserAgent = r.UserAgent()

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		e.SourceIP = host
	} else {
		e.SourceIP = r.RemoteAddr
	}

	if e.Status == 0 {
		e.Status = http.StatusOK
	}
}

// End returns a function that writes the audit entry. Deferring the result
// guarantees the entry is written even when the handler panics; the panic
// is recorded and re-raised.
func (e *Entry) End(ctx context.Context) func() {
	return func() {
		if r := recover(); r != nil {
			if e.Error == "" {
				e.Error = fmt.Sprintf("panic: %v", r)
			} else {
				e.Error = fmt.Sprintf("%s; panic: %v", e.Error, r)
			}
			e.write(ctx)
			panic(r)
		}

		e.write(ctx)
	}
}

func (e *Entry) write(ctx context.Context) {
	log.Ctx(ctx).WithLevel(Level).
		EmbedObject(e).
		Dur("duration", time.Since(e.start)).
		Msg("audit")
}

// MarshalZerologObject renders the entry as structured fields.
func (e *Entry) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("method", e.Method).
		Str("path", e.Path).
		Bool("tokenPresented", e.TokenPresented).
		Bool("authorized", e.Authorized).
		Int("status", e.Status)

	if e.Query != "" {
		ev.Str("query", e.Query)
	}
	if e.SourceIP != "" {
		ev.Str("sourceIP", e.SourceIP)
	}
	if e.UserAgent != "" {
		ev.Str("userAgent", e.UserAgent)
	}
	if e.Error != "" {
		ev.Str("error", e.Error)
	}
}

// statusRecorder captures the status written by the handler chain.
type statusRecorder struct {
	http.ResponseWriter
	entry *Entry
}

func (w *statusRecorder) WriteHeader(status int) {
	w.entry.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware wires the audit entry into the request context and writes it
// when the request completes.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, entry := Context(r.Context())

			entry.Begin(r)
			defer entry.End(ctx)()

			wrapped := &statusRecorder{ResponseWriter: w, entry: entry}
			next.ServeHTTP(wrapped, r.WithContext(ctx))
		})
	}
}
