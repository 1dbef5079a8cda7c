// Package l10n holds the user-visible strings of the daemon.
package l10n

import (
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	keyUnread   = "%[1]d unread mails on %[2]s"
	keyOpen     = "Open"
	keyAppTitle = "Unread mail"
)

var supported = []language.Tag{language.English, language.German}

// Messages formats strings for one language.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

// New picks the closest supported language for locale, which may be a BCP 47
// tag ("de-AT") or a POSIX locale ("de_AT.UTF-8"). Unknown locales get English.
func New(locale string) *Messages {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	mustSet(b.Set(language.English, keyUnread, plural.Selectf(1, "%d",
		"=1", "One unread mail on %[2]s",
		"other", "%[1]d unread mails on %[2]s",
	)))
	mustSet(b.Set(language.German, keyUnread, plural.Selectf(1, "%d",
		"=1", "Eine ungelesene E-Mail in %[2]s",
		"other", "%[1]d ungelesene E-Mails in %[2]s",
	)))
	mustSet(b.SetString(language.English, keyOpen, "Open"))
	mustSet(b.SetString(language.German, keyOpen, "Öffnen"))
	mustSet(b.SetString(language.English, keyAppTitle, "Unread mail"))
	mustSet(b.SetString(language.German, keyAppTitle, "Ungelesene E-Mails"))

	tag := matchLocale(locale)
	return &Messages{tag: tag, printer: message.NewPrinter(tag, message.Catalog(b))}
}

func mustSet(err error) {
	if err != nil {
		panic(err)
	}
}

func matchLocale(locale string) language.Tag {
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return language.English
	}
	desired, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	_, idx, conf := language.NewMatcher(supported).Match(desired)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Tag is the language the messages are printed in.
func (m *Messages) Tag() language.Tag { return m.tag }

// Unread is the alert body for n unread mails on the named account.
func (m *Messages) Unread(n uint, displayName string) string {
	return m.printer.Sprintf(keyUnread, n, displayName)
}

// Open is the label of the alert's open-inbox button.
func (m *Messages) Open() string {
	return m.printer.Sprintf(keyOpen)
}

// AppTitle is the application name shown by the notification server.
func (m *Messages) AppTitle() string {
	return m.printer.Sprintf(keyAppTitle)
}
