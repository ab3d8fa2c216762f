// Package logger wraps a http.ResponseWriter so the request-log middleware
// can read the status code it ships to Kafka.
package logger

import "net/http"

type ResponseLogger struct {
	w      http.ResponseWriter
	status int
}

// New wraps w. The status defaults to 200, which is what the handler ends up
// sending when it never calls WriteHeader explicitly.
func New(w http.ResponseWriter) *ResponseLogger {
	return &ResponseLogger{w, http.StatusOK}
}

func (l *ResponseLogger) WriteHeader(code int) {
	l.status = code
	l.w.WriteHeader(code)
}

func (l *ResponseLogger) Write(b []byte) (int, error) {
	return l.w.Write(b)
}

func (l *ResponseLogger) Header() http.Header {
	return l.w.Header()
}

func (l *ResponseLogger) Status() int {
	return l.status
}
