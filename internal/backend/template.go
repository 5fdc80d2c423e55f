package backend

import (
	"github.com/valyala/fasttemplate"
)

// Render fills {{name}} placeholders in tpl. Unknown placeholders render
// empty.
func Render(tpl string, vars map[string]any) string {
	t := fasttemplate.New(tpl, "{{", "}}")
	return t.ExecuteString(vars)
}

// Header is prepended to every generated file.
const Header = "# Generated by {{tool}} from {{source}}. Do not edit; changes will be overwritten.\n"

// HeaderFor renders Header for a source document. Definitions built through
// the API have no source file.
func HeaderFor(source string) string {
	if source == "" {
		source = "API fragments"
	}
	return Render(Header, map[string]any{"tool": "netgen", "source": source})
}
