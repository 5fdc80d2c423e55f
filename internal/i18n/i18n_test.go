package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		accept   string
		expected language.Tag
	}{
		{"en-US,en;q=0.9", language.English},
		{"de-DE,de;q=0.9", language.German},
		{"fr-FR", language.English},
		{"", language.English},
	}

	for _, tt := range tests {
		base, _ := MatchLanguage(tt.accept).Base()
		exp, _ := tt.expected.Base()
		assert.Equal(t, exp, base, "Accept: %s", tt.accept)
	}
}

func TestLocaleTag(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}
	tests := []struct {
		vars map[string]string
		want string
	}{
		{map[string]string{}, "en"},
		{map[string]string{"LANG": "C"}, "en"},
		{map[string]string{"LANG": "de_DE.UTF-8"}, "de"},
		{map[string]string{"LANG": "de_DE.UTF-8", "LC_ALL": "en_GB.UTF-8"}, "en"},
		{map[string]string{"LC_MESSAGES": "de_AT@euro"}, "de"},
		{map[string]string{"LANG": "ja_JP.UTF-8"}, "en"},
	}
	for _, tt := range tests {
		base, _ := LocaleTag(env(tt.vars)).Base()
		assert.Equal(t, tt.want, base.String(), "%v", tt.vars)
	}
}

func TestCatalog(t *testing.T) {
	en := NewPrinter(language.English)
	assert.Equal(t, "networkd: 1,200 definitions, 3 files written, 0 removed\n",
		en.Sprintf(MsgGenerated, "networkd", 1200, 3, 0))

	de := NewPrinter(language.German)
	assert.Equal(t, "networkd: 1.200 Definitionen, 3 Dateien geschrieben, 0 entfernt\n",
		de.Sprintf(MsgGenerated, "networkd", 1200, 3, 0))
	assert.Equal(t, "keine Änderungen\n", de.Sprintf(MsgNoChanges))
}

func TestPrinterContext(t *testing.T) {
	assert.NotNil(t, GetPrinter(context.Background()))

	de := NewPrinter(language.German)
	ctx := WithPrinter(context.Background(), de)
	assert.Same(t, de, GetPrinter(ctx))
}
