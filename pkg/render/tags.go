package render

import "strings"

// ScriptTag represents a script element.
type ScriptTag struct {
	Src    string
	Module bool
	Defer  bool
}

// LinkTag represents a stylesheet link element.
type LinkTag struct {
	Href string
}

// String renders the script element.
func (s ScriptTag) String() string {
	var b strings.Builder
	b.WriteString(`<script`)
	if s.Module {
		b.WriteString(` type="module"`)
	}
	if s.Defer && !s.Module {
		b.WriteString(` defer`)
	}
	b.WriteString(` src="`)
	b.WriteString(EscapeAttr(s.Src))
	b.WriteString(`"></script>`)
	return b.String()
}

// String renders the link element.
func (l LinkTag) String() string {
	return `<link rel="stylesheet" href="` + EscapeAttr(l.Href) + `">`
}

// HeadTags joins links and scripts in document order: stylesheets first.
func HeadTags(links []LinkTag, scripts []ScriptTag) string {
	var b strings.Builder
	for _, l := range links {
		b.WriteString(l.String())
	}
	for _, s := range scripts {
		b.WriteString(s.String())
	}
	return b.String()
}
