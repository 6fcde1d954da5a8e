package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// requestState is what the pre-request hook learns about the caller. It
// travels in the request context and is read back with stateFrom.
type requestState struct {
	user    *User
	locale  string
	printer *message.Printer
	search  *searchForm
}

// T translates a catalog key for the caller's locale.
func (st *requestState) T(key string, args ...interface{}) string {
	return st.printer.Sprintf(key, args...)
}

type contextKey int

const (
	stateKey contextKey = iota
	requestIDKey
)

func stateFrom(r *http.Request) *requestState {
	if st, ok := r.Context().Value(stateKey).(*requestState); ok {
		return st
	}
	return &requestState{locale: "en", printer: message.NewPrinter(language.English)}
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests tags each request with an id and logs it once it is served.
func (a *app) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		a.log.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (a *app) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				a.log.Error("panic recovered",
					zap.String("request_id", requestID(r)),
					zap.Any("panic", v),
					zap.ByteString("stack", debug.Stack()))
				a.handleError(w, r, errors.New("panic in handler"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// beforeRequest runs ahead of every handler. A signed-in caller has
// last_seen stamped and saved right away and gets a search form; everyone
// gets a locale.
func (a *app) beforeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &requestState{}
		st.locale, st.printer = a.locales.resolve(r.Header.Get("Accept-Language"))

		if id, ok := a.sessionUserID(r); ok {
			u, err := a.store.userByID(r.Context(), id)
			switch {
			case errors.Is(err, ErrNotFound):
				// account is gone; treat the caller as anonymous
			case err != nil:
				a.handleError(w, r, err)
				return
			default:
				if err := a.store.touchLastSeen(r.Context(), u, time.Now().UTC()); err != nil {
					a.handleError(w, r, err)
					return
				}
				st.user = u
				st.search = parseSearchForm(r)
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey, st)))
	})
}

// loginRequired sends anonymous callers to the login page with a way back.
func (a *app) loginRequired(fn handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if stateFrom(r).user == nil {
			a.addFlash(w, r, stateFrom(r).T("Please log in to access this page."))
			http.Redirect(w, r, "/auth/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return nil
		}
		return fn(w, r)
	}
}
