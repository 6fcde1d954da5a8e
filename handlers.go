package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const csrfMessage = "The CSRF token is missing or invalid."

// pageArg reads ?page=, falling back to 1 for anything that is not a
// positive integer.
func pageArg(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func pageURL(path string, query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return path + "?" + q.Encode()
}

// pagerLinks returns the older/newer links for a page; missing links are "".
func pagerLinks(path string, query url.Values, p Page) (next, prev string) {
	if p.HasNext {
		next = pageURL(path, query, p.NextNum())
	}
	if p.HasPrev {
		prev = pageURL(path, query, p.PrevNum())
	}
	return next, prev
}

// pageCount is the number of pages needed for total items.
func pageCount(total int64, perPage int) int64 {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total-1)/int64(perPage) + 1
}

func userPath(username string) string {
	return "/user/" + url.PathEscape(username)
}

// GET + POST /, /index: feed of followed users and the post composer
func (a *app) index(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r)
	ctx := r.Context()

	var form postForm
	errs := formErrors{}
	if r.Method == http.MethodPost {
		form.Post = formValue(r, "post")
		errs = check(form)
		if !a.validCSRF(r) {
			errs = errs.with("csrf_token", csrfMessage)
		}
		if errs == nil {
			language, err := a.detect(form.Post)
			if err != nil {
				a.log.Debug("language not detected", zap.String("request_id", requestID(r)), zap.Error(err))
				language = ""
			}
			post := &Post{Body: form.Post, UserID: st.user.ID, Language: language}
			if err := a.store.createPost(ctx, post); err != nil {
				return err
			}
			a.addFlash(w, r, st.T("Your post is now live!"))
			http.Redirect(w, r, "/index", http.StatusFound)
			return nil
		}
	}

	page, err := a.store.followedPosts(ctx, st.user, pageArg(r), a.cfg.PostsPerPage)
	if err != nil {
		return err
	}
	next, prev := pagerLinks("/index", nil, page)

	return a.render(w, r, http.StatusOK, "index.html", map[string]interface{}{
		"title":    st.T("Home"),
		"form":     map[string]interface{}{"post": form.Post},
		"errors":   errs.orEmpty(),
		"posts":    postViews(page.Items, st.locale),
		"next_url": next,
		"prev_url": prev,
	})
}

// GET /user/{username}: profile and the user's own posts
func (a *app) user(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r)
	ctx := r.Context()

	profileUser, err := a.store.userByUsername(ctx, mux.Vars(r)["username"])
	if errors.Is(err, ErrNotFound) {
		return notFound(err)
	}
	if err != nil {
		return err
	}

	page, err := a.store.userPosts(ctx, profileUser, pageArg(r), a.cfg.PostsPerPage)
	if err != nil {
		return err
	}
	following, err := a.store.isFollowing(ctx, st.user, profileUser)
	if err != nil {
		return err
	}
	followers, err := a.store.followersCount(ctx, profileUser)
	if err != nil {
		return err
	}
	followed, err := a.store.followedCount(ctx, profileUser)
	if err != nil {
		return err
	}
	next, prev := pagerLinks(userPath(profileUser.Username), nil, page)

	view := userView(profileUser)
	view["path"] = url.PathEscape(profileUser.Username)
	return a.render(w, r, http.StatusOK, "user.html", map[string]interface{}{
		"title":           profileUser.Username,
		"user":            view,
		"is_self":         profileUser.ID == st.user.ID,
		"is_following":    following,
		"followers_count": followers,
		"following_count": followed,
		"posts":           postViews(page.Items, st.locale),
		"next_url":        next,
		"prev_url":        prev,
	})
}

// GET + POST /edit_profile
func (a *app) editProfile(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r)
	ctx := r.Context()

	form := editProfileForm{Username: st.user.Username, AboutMe: st.user.AboutMe}
	errs := formErrors{}
	if r.Method == http.MethodPost {
		form.Username = formValue(r, "username")
		form.AboutMe = formValue(r, "about_me")
		errs = check(form)
		if !a.validCSRF(r) {
			errs = errs.with("csrf_token", csrfMessage)
		}
		if errs == nil && form.Username != st.user.Username {
			taken, err := a.store.usernameTaken(ctx, form.Username)
			if err != nil {
				return err
			}
			if taken {
				errs = errs.with("username", "Please use a different username.")
			}
		}
		if errs == nil {
			if err := a.store.updateProfile(ctx, st.user, form.Username, form.AboutMe); err != nil {
				return err
			}
			a.addFlash(w, r, st.T("Your changes have been saved."))
			http.Redirect(w, r, userPath(st.user.Username), http.StatusFound)
			return nil
		}
	}

	return a.render(w, r, http.StatusOK, "edit_profile.html", map[string]interface{}{
		"title":  st.T("Edit Profile"),
		"form":   map[string]interface{}{"username": form.Username, "about_me": form.AboutMe},
		"errors": errs.orEmpty(),
	})
}

// POST /follow/{username}
func (a *app) follow(w http.ResponseWriter, r *http.Request) error {
	return a.changeFollow(w, r, true)
}

// POST /unfollow/{username}
func (a *app) unfollow(w http.ResponseWriter, r *http.Request) error {
	return a.changeFollow(w, r, false)
}

// changeFollow always answers with a redirect; the outcome is told by a
// flash message.
func (a *app) changeFollow(w http.ResponseWriter, r *http.Request, follow bool) error {
	st := stateFrom(r)
	ctx := r.Context()
	username := mux.Vars(r)["username"]

	if !a.validCSRF(r) {
		http.Redirect(w, r, "/index", http.StatusFound)
		return nil
	}

	target, err := a.store.userByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		a.addFlash(w, r, st.T("User %s not found.", username))
		http.Redirect(w, r, "/index", http.StatusFound)
		return nil
	}
	if err != nil {
		return err
	}

	if target.ID == st.user.ID {
		if follow {
			a.addFlash(w, r, st.T("You cannot follow yourself!"))
		} else {
			a.addFlash(w, r, st.T("You cannot unfollow yourself!"))
		}
		http.Redirect(w, r, userPath(username), http.StatusFound)
		return nil
	}

	if follow {
		if err := a.store.follow(ctx, st.user, target); err != nil {
			return err
		}
		a.addFlash(w, r, st.T("You are following %s!", username))
	} else {
		if err := a.store.unfollow(ctx, st.user, target); err != nil {
			return err
		}
		a.addFlash(w, r, st.T("You are not following %s.", username))
	}
	http.Redirect(w, r, userPath(username), http.StatusFound)
	return nil
}

// GET /explore: every post, newest first
func (a *app) explore(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r)

	page, err := a.store.allPosts(r.Context(), pageArg(r), a.cfg.PostsPerPage)
	if err != nil {
		return err
	}
	next, prev := pagerLinks("/explore", nil, page)

	return a.render(w, r, http.StatusOK, "index.html", map[string]interface{}{
		"title":    st.T("Explore"),
		"posts":    postViews(page.Items, st.locale),
		"next_url": next,
		"prev_url": prev,
	})
}

// GET /search?q=&page=
func (a *app) search(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r)

	if st.search == nil || !st.search.valid() {
		http.Redirect(w, r, "/explore", http.StatusFound)
		return nil
	}

	page := pageArg(r)
	perPage := a.cfg.PostsPerPage
	posts, total, err := a.store.searchPosts(r.Context(), st.search.Q, page, perPage)
	if err != nil {
		return err
	}

	query := url.Values{"q": {st.search.Q}}
	var next, prev string
	if int64(page) < pageCount(total, perPage) {
		next = pageURL("/search", query, page+1)
	}
	if page > 1 {
		prev = pageURL("/search", query, page-1)
	}

	return a.render(w, r, http.StatusOK, "search.html", map[string]interface{}{
		"title":    st.T("Search"),
		"total":    total,
		"posts":    postViews(posts, st.locale),
		"next_url": next,
		"prev_url": prev,
	})
}

// POST /translate: form fields text, source_language, dest_language
func (a *app) translateText(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return &httpError{status: http.StatusBadRequest, err: err}
	}
	for _, field := range []string{"text", "source_language", "dest_language"} {
		if _, ok := r.PostForm[field]; !ok {
			return &httpError{status: http.StatusBadRequest, err: fmt.Errorf("missing form field %q", field)}
		}
	}
	text, err := a.translator.Translate(r.Context(),
		r.PostForm.Get("text"),
		r.PostForm.Get("source_language"),
		r.PostForm.Get("dest_language"))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]string{"text": text})
}
