package main

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Spanish strings for page titles and flash messages, as English key and
// translation.
var spanish = [][2]string{
	{"Home", "Inicio"},
	{"Explore", "Explorar"},
	{"Search", "Buscar"},
	{"Edit Profile", "Editar Perfil"},
	{"Sign In", "Ingresar"},
	{"Register", "Registrarse"},
	{"Your post is now live!", "¡Tu artículo ya está publicado!"},
	{"Your changes have been saved.", "Tus cambios han sido salvados."},
	{"User %s not found.", "El usuario %s no ha sido encontrado."},
	{"You cannot follow yourself!", "¡No te puedes seguir a tí mismo!"},
	{"You cannot unfollow yourself!", "¡No te puedes dejar de seguir a tí mismo!"},
	{"You are following %s!", "¡Ahora estás siguiendo a %s!"},
	{"You are not following %s.", "No estás siguiendo a %s."},
	{"Please log in to access this page.", "Por favor ingrese para acceder a esta página."},
	{"Invalid username or password", "Nombre de usuario o contraseña inválidos"},
	{"Congratulations, you are now a registered user!", "¡Felicitaciones, ya eres un usuario registrado!"},
	{"You were logged out", "Has cerrado la sesión"},
}

func init() {
	for _, m := range spanish {
		message.SetString(language.Spanish, m[0], m[1])
	}
}

// localizer negotiates the display language against the configured list.
type localizer struct {
	tags    []language.Tag
	matcher language.Matcher
}

func newLocalizer(languages []string) *localizer {
	var tags []language.Tag
	for _, l := range languages {
		if tag, err := language.Parse(l); err == nil {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	return &localizer{tags: tags, matcher: language.NewMatcher(tags)}
}

// resolve returns the base language code for an Accept-Language header and
// a printer for it. Unmatched headers get the first configured language.
func (l *localizer) resolve(acceptLanguage string) (string, *message.Printer) {
	_, index, _ := l.matcher.Match(parseAccept(acceptLanguage)...)
	tag := l.tags[index]
	base, _ := tag.Base()
	return base.String(), message.NewPrinter(tag)
}

func parseAccept(header string) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}
