// Package i18n provides the localized printer used for CLI summaries.
package i18n

import (
	"context"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages with a message catalog.
var SupportedLangs = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(SupportedLangs)

// CLI message keys. English text doubles as the key.
const (
	MsgGenerated   = "%s: %d definitions, %d files written, %d removed\n"
	MsgEnabled     = "%s: enabled\n"
	MsgCheckOK     = "%d definitions OK\n"
	MsgUnresolved  = "%s: unresolved reference to %s\n"
	MsgNoChanges   = "no changes\n"
	MsgDeleted     = "deleted %s\n"
	MsgEmitted     = "wrote %s\n"
	MsgRegenerated = "regenerated after %d changes\n"
)

func init() {
	de := language.German
	_ = message.SetString(de, MsgGenerated, "%s: %d Definitionen, %d Dateien geschrieben, %d entfernt\n")
	_ = message.SetString(de, MsgEnabled, "%s: aktiviert\n")
	_ = message.SetString(de, MsgCheckOK, "%d Definitionen in Ordnung\n")
	_ = message.SetString(de, MsgUnresolved, "%s: unaufgelöster Verweis auf %s\n")
	_ = message.SetString(de, MsgNoChanges, "keine Änderungen\n")
	_ = message.SetString(de, MsgDeleted, "%s gelöscht\n")
	_ = message.SetString(de, MsgEmitted, "%s geschrieben\n")
	_ = message.SetString(de, MsgRegenerated, "nach %d Änderungen neu erzeugt\n")
}

type contextKey struct{}

var printerKey = contextKey{}

// MatchLanguage returns the best supported match for an Accept-Language
// style list.
func MatchLanguage(accept string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(accept)
	tag, _, _ := matcher.Match(tags...)
	return tag
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// WithPrinter returns a new context with the printer injected
func WithPrinter(ctx context.Context, p *message.Printer) context.Context {
	return context.WithValue(ctx, printerKey, p)
}

// GetPrinter returns the printer from the context, or a default one
func GetPrinter(ctx context.Context) *message.Printer {
	p, ok := ctx.Value(printerKey).(*message.Printer)
	if !ok {
		return message.NewPrinter(DefaultLang)
	}
	return p
}

// LocaleTag maps POSIX locale variables (LC_ALL, LC_MESSAGES, LANG) to a
// supported language.
func LocaleTag(getenv func(string) string) language.Tag {
	var lang string
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if lang = getenv(k); lang != "" {
			break
		}
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return DefaultLang
	}

	// en_US.UTF-8@euro -> en_US
	if i := strings.IndexAny(lang, ".@"); i != -1 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")

	tag, err := language.Parse(lang)
	if err != nil {
		return MatchLanguage(lang)
	}
	tag, _, _ = matcher.Match(tag)
	return tag
}

// NewCLIPrinter returns a printer for the system's locale.
func NewCLIPrinter() *message.Printer {
	return message.NewPrinter(LocaleTag(os.Getenv))
}
