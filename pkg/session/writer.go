package session

import (
	"bufio"
	"io"
	"net"
	"net/http"
)

// responseWriter emits the session cookie right before the headers go out.
type responseWriter struct {
	http.ResponseWriter
	st          *requestState
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter, st *requestState) *responseWriter {
	return &responseWriter{ResponseWriter: w, st: st}
}

func (w *responseWriter) WriteHeader(code int) {
	// 1xx responses other than 101 leave the final headers open.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.headersOut()
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.headersOut()
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) ReadFrom(src io.Reader) (int64, error) {
	w.headersOut()
	if rf, ok := w.ResponseWriter.(io.ReaderFrom); ok {
		return rf.ReadFrom(src)
	}
	return io.Copy(w.ResponseWriter, src)
}

func (w *responseWriter) Flush() {
	w.headersOut()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.headersOut()
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *responseWriter) headersOut() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.st.emitCookie(w.ResponseWriter)
}

// finish runs once the handler returned: headers that were never written
// still get the cookie decision, then the store operation commits.
func (w *responseWriter) finish() {
	w.headersOut()
	_ = w.st.finalize(w.st.r.Context())
}
