package l10n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMessages_UnreadPluralises(t *testing.T) {
	m := New("en_US.UTF-8")
	assert.Equal(t, "One unread mail on Work", m.Unread(1, "Work"))
	assert.Equal(t, "3 unread mails on Work", m.Unread(3, "Work"))
	assert.Equal(t, "Open", m.Open())
	assert.Equal(t, "Unread mail", m.AppTitle())
}

func TestMessages_German(t *testing.T) {
	m := New("de_AT.UTF-8")
	assert.Equal(t, language.German, m.Tag())
	assert.Equal(t, "Eine ungelesene E-Mail in Arbeit", m.Unread(1, "Arbeit"))
	assert.Equal(t, "12 ungelesene E-Mails in Arbeit", m.Unread(12, "Arbeit"))
	assert.Equal(t, "Öffnen", m.Open())
}

func TestMatchLocale(t *testing.T) {
	cases := map[string]language.Tag{
		"":              language.English,
		"C":             language.English,
		"POSIX":         language.English,
		"de-CH":         language.German,
		"de_DE@euro":    language.German,
		"ja_JP.UTF-8":   language.English,
		"not a locale!": language.English,
	}
	for in, want := range cases {
		assert.Equal(t, want, matchLocale(in), "locale %q", in)
	}
}
