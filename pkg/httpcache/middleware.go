package httpcache

import (
	"net/http"

	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// Phase mutates a response before its status line is written.
type Phase func(r *http.Request, resp *storefront.Response)

// Middleware runs the early phase, the late phase and the session guard
// once per request, right before the handler's header is committed.
func (p *Policy) Middleware(next http.Handler) http.Handler {
	return Handle(next, p.OnResponse, p.OnFinalize, SessionGuard(p.cfg.Names.NoAutoCacheControlHeader))
}

// Handle wraps next so phases run in order before the header is written.
// Handlers that never write still get a 200 with the phases applied.
func Handle(next http.Handler, phases ...Phase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, r: r, phases: phases}
		next.ServeHTTP(rw, r)
		if !rw.wroteHeader {
			rw.WriteHeader(http.StatusOK)
		}
	})
}

// SessionGuard forces responses that set cookies to private unless the
// given header opts out. The header itself is internal and always removed.
func SessionGuard(header string) Phase {
	return func(r *http.Request, resp *storefront.Response) {
		if resp.Header.Get(header) != "" {
			resp.Header.Del(header)
			return
		}
		if len(resp.Header.Values("Set-Cookie")) == 0 {
			return
		}
		resp.Header.Set("Cache-Control", "private, no-cache")
	}
}

type responseWriter struct {
	http.ResponseWriter
	r           *http.Request
	phases      []Phase
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	resp := storefront.NewResponse(statusCode, w.ResponseWriter.Header())
	for _, phase := range w.phases {
		phase(w.r, resp)
	}
	w.ResponseWriter.WriteHeader(resp.StatusCode)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
