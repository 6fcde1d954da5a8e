package main

import (
	"bytes"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"golang.org/x/crypto/bcrypt"
)

const sessionName = "session"

// --- Session helpers ---

func newSessionStore(secret string) *sessions.CookieStore {
	s := sessions.NewCookieStore([]byte(secret))
	s.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return s
}

// session never fails: an undecodable cookie yields a fresh session.
func (a *app) session(r *http.Request) *sessions.Session {
	session, _ := a.sessions.Get(r, sessionName)
	return session
}

func (a *app) sessionUserID(r *http.Request) (uint, bool) {
	id, ok := a.session(r).Values["user_id"].(uint)
	return id, ok
}

func (a *app) logIn(w http.ResponseWriter, r *http.Request, u *User) error {
	session := a.session(r)
	session.Values["user_id"] = u.ID
	return session.Save(r, w)
}

func (a *app) logOut(w http.ResponseWriter, r *http.Request) error {
	session := a.session(r)
	delete(session.Values, "user_id")
	return session.Save(r, w)
}

func (a *app) addFlash(w http.ResponseWriter, r *http.Request, message string) {
	session := a.session(r)
	session.AddFlash(message)
	session.Save(r, w)
}

// --- Anti-forgery helpers ---

// csrfToken returns the session's token, minting one on first use. The
// caller saves the session.
func csrfToken(session *sessions.Session) string {
	if token, ok := session.Values["csrf_token"].(string); ok && token != "" {
		return token
	}
	token := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
	session.Values["csrf_token"] = token
	return token
}

func (a *app) validCSRF(r *http.Request) bool {
	want, ok := a.session(r).Values["csrf_token"].(string)
	if !ok || want == "" {
		return false
	}
	got := r.PostFormValue("csrf_token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// --- Password helpers ---

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// --- Template helpers ---

func gravatar(email string, size int) string {
	h := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon&s=%d", h, size)
}

func userView(u *User) map[string]interface{} {
	if u == nil {
		return nil
	}
	lastSeen := ""
	if u.LastSeen != nil {
		lastSeen = humanize.Time(*u.LastSeen)
	}
	return map[string]interface{}{
		"id":        u.ID,
		"username":  u.Username,
		"url":       userPath(u.Username),
		"about_me":  u.AboutMe,
		"last_seen": lastSeen,
		"avatar":    gravatar(u.Email, 128),
	}
}

// postViews prepares posts for _post.html. Posts in a language other than
// the reader's get a translate link.
func postViews(posts []Post, locale string) []map[string]interface{} {
	views := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		views = append(views, map[string]interface{}{
			"id":        p.ID,
			"body":      p.Body,
			"language":  p.Language,
			"timestamp": p.Timestamp.UTC().Format(time.RFC3339),
			"since":     humanize.Time(p.Timestamp),
			"translate": p.Language != "" && p.Language != locale,
			"author": map[string]interface{}{
				"username": p.Author.Username,
				"url":      userPath(p.Author.Username),
				"avatar":   gravatar(p.Author.Email, 36),
			},
		})
	}
	return views
}

// render fills in the layout variables every page uses, saves the session
// (flashes are consumed, the anti-forgery token may be new) and writes the
// page.
func (a *app) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) error {
	st := stateFrom(r)
	session := a.session(r)

	var flashes []string
	for _, f := range session.Flashes() {
		if s, ok := f.(string); ok {
			flashes = append(flashes, s)
		}
	}
	data["flashes"] = flashes
	data["csrf_token"] = csrfToken(session)
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	data["locale"] = st.locale
	data["current_user"] = userView(st.user)
	data["search_q"] = ""
	if st.search != nil {
		data["search_q"] = st.search.Q
	}
	return a.renderPage(w, status, name, data)
}

// renderPage executes a template without touching the session.
func (a *app) renderPage(w http.ResponseWriter, status int, name string, data map[string]interface{}) error {
	tpl, err := gonja.FromFile(filepath.Join(a.cfg.TemplatesDir, name))
	if err != nil {
		return fmt.Errorf("load template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, exec.NewContext(data)); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

var errUnsafeRedirect = errors.New("unsafe redirect target")

// localPath accepts only same-site absolute paths as redirect targets.
func localPath(next string) (string, error) {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "", errUnsafeRedirect
	}
	return next, nil
}
