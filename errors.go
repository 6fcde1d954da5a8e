package main

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// httpError carries the status a failed handler should answer with.
type httpError struct {
	status int
	err    error
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%d %s: %v", e.status, http.StatusText(e.status), e.err)
}

func (e *httpError) Unwrap() error { return e.err }

func notFound(err error) error {
	return &httpError{status: http.StatusNotFound, err: err}
}

// handlerFunc is an http.HandlerFunc that reports failure instead of
// writing an error response itself.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (a *app) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			a.handleError(w, r, err)
		}
	}
}

func (a *app) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var he *httpError
	if errors.As(err, &he) {
		status = he.status
	} else if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
	}

	page := "500.html"
	switch {
	case status == http.StatusNotFound:
		page = "404.html"
	case status < http.StatusInternalServerError:
		page = "400.html"
		a.log.Warn("bad request",
			zap.String("request_id", requestID(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	default:
		a.log.Error("request failed",
			zap.String("request_id", requestID(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	if rerr := a.renderPage(w, status, page, map[string]interface{}{"title": http.StatusText(status)}); rerr != nil {
		a.log.Error("render error page", zap.String("page", page), zap.Error(rerr))
		http.Error(w, http.StatusText(status), status)
	}
}
