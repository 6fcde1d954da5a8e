package main

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// formErrors maps a form field name to the message shown next to it.
type formErrors map[string]string

// check validates form and turns the failures into per-field messages.
// A nil result means the form is valid.
func check(form interface{}) formErrors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return formErrors{"": err.Error()}
	}
	out := formErrors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

// with records msg for field unless the field already has a message.
func (e formErrors) with(field, msg string) formErrors {
	if e == nil {
		e = formErrors{}
	}
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
	return e
}

func (e formErrors) orEmpty() formErrors {
	if e == nil {
		return formErrors{}
	}
	return e
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "email":
		return "Invalid email address."
	case "eqfield":
		return "Field must be equal to password."
	}
	return "Invalid value."
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

type postForm struct {
	Post string `form:"post" validate:"required,max=140"`
}

type editProfileForm struct {
	Username string `form:"username" validate:"required,max=64"`
	AboutMe  string `form:"about_me" validate:"max=140"`
}

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type registrationForm struct {
	Username  string `form:"username" validate:"required,max=64"`
	Email     string `form:"email" validate:"required,email,max=120"`
	Password  string `form:"password" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

// searchForm reads the query string, not the body, and carries no token.
type searchForm struct {
	Q string `form:"q" validate:"required"`
}

func parseSearchForm(r *http.Request) *searchForm {
	return &searchForm{Q: strings.TrimSpace(r.URL.Query().Get("q"))}
}

func (f *searchForm) valid() bool {
	return check(f) == nil
}
