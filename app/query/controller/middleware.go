package controller

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/urfave/negroni"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// NewRequestID tags every request with an id, reusing a caller supplied one.
func NewRequestID(logger *zap.Logger) negroni.Handler {
	return negroni.HandlerFunc(func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		logger.Debug("request", zap.String("request_id", id), zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
