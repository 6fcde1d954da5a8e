package main

import (
	"errors"
	"net/http"
)

// GET + POST /auth/login
func (a *app) login(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r)
	if st.user != nil {
		http.Redirect(w, r, "/index", http.StatusFound)
		return nil
	}

	form := loginForm{Next: r.URL.Query().Get("next")}
	errs := formErrors{}
	if r.Method == http.MethodPost {
		form.Username = formValue(r, "username")
		form.Password = r.PostFormValue("password")
		form.Next = r.PostFormValue("next")
		errs = check(form)
		if !a.validCSRF(r) {
			errs = errs.with("csrf_token", csrfMessage)
		}
		if errs == nil {
			u, err := a.store.userByUsername(r.Context(), form.Username)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if u == nil || !checkPassword(u.PasswordHash, form.Password) {
				a.addFlash(w, r, st.T("Invalid username or password"))
				http.Redirect(w, r, "/auth/login", http.StatusFound)
				return nil
			}
			if err := a.logIn(w, r, u); err != nil {
				return err
			}
			next, err := localPath(form.Next)
			if err != nil {
				next = "/index"
			}
			http.Redirect(w, r, next, http.StatusFound)
			return nil
		}
	}

	return a.render(w, r, http.StatusOK, "login.html", map[string]interface{}{
		"title":  st.T("Sign In"),
		"form":   map[string]interface{}{"username": form.Username, "next": form.Next},
		"errors": errs.orEmpty(),
	})
}

// GET + POST /auth/register
func (a *app) register(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r)
	if st.user != nil {
		http.Redirect(w, r, "/index", http.StatusFound)
		return nil
	}

	var form registrationForm
	errs := formErrors{}
	if r.Method == http.MethodPost {
		form.Username = formValue(r, "username")
		form.Email = formValue(r, "email")
		form.Password = r.PostFormValue("password")
		form.Password2 = r.PostFormValue("password2")
		errs = check(form)
		if !a.validCSRF(r) {
			errs = errs.with("csrf_token", csrfMessage)
		}
		if errs == nil {
			taken, err := a.store.usernameTaken(r.Context(), form.Username)
			if err != nil {
				return err
			}
			if taken {
				errs = errs.with("username", "Please use a different username.")
			}
			taken, err = a.store.emailTaken(r.Context(), form.Email)
			if err != nil {
				return err
			}
			if taken {
				errs = errs.with("email", "Please use a different email address.")
			}
		}
		if errs == nil {
			hash, err := hashPassword(form.Password)
			if err != nil {
				return err
			}
			u := &User{Username: form.Username, Email: form.Email, PasswordHash: hash}
			if err := a.store.createUser(r.Context(), u); err != nil {
				return err
			}
			a.addFlash(w, r, st.T("Congratulations, you are now a registered user!"))
			http.Redirect(w, r, "/auth/login", http.StatusFound)
			return nil
		}
	}

	return a.render(w, r, http.StatusOK, "register.html", map[string]interface{}{
		"title":  st.T("Register"),
		"form":   map[string]interface{}{"username": form.Username, "email": form.Email},
		"errors": errs.orEmpty(),
	})
}

// GET /auth/logout
func (a *app) logout(w http.ResponseWriter, r *http.Request) error {
	if err := a.logOut(w, r); err != nil {
		return err
	}
	a.addFlash(w, r, stateFrom(r).T("You were logged out"))
	http.Redirect(w, r, "/index", http.StatusFound)
	return nil
}
