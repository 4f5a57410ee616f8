package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"helmetwatch/internal/logger"

	"github.com/gorilla/mux"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// RequestLogger logs every request with its status and duration. Server
// errors go to the error log, client errors to the warning log.
func RequestLogger(logger *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			elapsed := time.Since(start)
			switch {
			case recorder.status >= 500:
				logger.Error("%s %s -> %d (%v)", r.Method, r.URL.Path, recorder.status, elapsed)
			case recorder.status >= 400:
				logger.Warning("%s %s -> %d (%v)", r.Method, r.URL.Path, recorder.status, elapsed)
			default:
				logger.Info("%s %s -> %d (%v)", r.Method, r.URL.Path, recorder.status, elapsed)
			}
		})
	}
}
