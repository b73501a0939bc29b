package render

import (
	"io"
	"sort"
	"strings"
)

// Slot names an insertion point in an HTML shell.
type Slot int

const (
	// SlotHTMLAttrs is directly after "<html".
	SlotHTMLAttrs Slot = iota

	// SlotHead is directly after "<head>".
	SlotHead

	// SlotHeadEnd is directly before "</head>".
	SlotHeadEnd

	// SlotBodyAttrs is directly after "<body".
	SlotBodyAttrs

	// SlotApp is inside the app placeholder <div id="app"></div>.
	SlotApp

	// SlotBodyEnd is directly before "</body>".
	SlotBodyEnd

	numSlots
)

// AppPlaceholder is the element the rendered application replaces.
const AppPlaceholder = `<div id="app"></div>`

var slotMarkers = [numSlots]struct {
	marker string
	// shift is the insertion point relative to the start of marker.
	shift int
}{
	SlotHTMLAttrs: {"<html", len("<html")},
	SlotHead:      {"<head>", len("<head>")},
	SlotHeadEnd:   {"</head>", 0},
	SlotBodyAttrs: {"<body", len("<body")},
	SlotApp:       {AppPlaceholder, len(`<div id="app">`)},
	SlotBodyEnd:   {"</body>", 0},
}

var slotNames = [numSlots]string{
	SlotHTMLAttrs: "html-attrs",
	SlotHead:      "head",
	SlotHeadEnd:   "head-end",
	SlotBodyAttrs: "body-attrs",
	SlotApp:       "app",
	SlotBodyEnd:   "body-end",
}

// String returns the slot name.
func (s Slot) String() string {
	if s < 0 || s >= numSlots {
		return "unknown"
	}
	return slotNames[s]
}

// Values maps slots to the raw HTML inserted there.
type Values map[Slot]string

// Template is a parsed HTML shell. It is immutable and safe for
// concurrent use.
type Template struct {
	src     string
	offsets [numSlots]int
	order   []Slot
}

// Parse locates the slots of an HTML shell.
func Parse(src string) *Template {
	t := &Template{src: src}
	for s := Slot(0); s < numSlots; s++ {
		m := slotMarkers[s]
		idx := strings.Index(src, m.marker)
		if idx < 0 {
			t.offsets[s] = -1
			continue
		}
		t.offsets[s] = idx + m.shift
		t.order = append(t.order, s)
	}
	sort.SliceStable(t.order, func(i, j int) bool {
		return t.offsets[t.order[i]] < t.offsets[t.order[j]]
	})
	return t
}

// Source returns the shell exactly as parsed.
func (t *Template) Source() string {
	return t.src
}

// Has reports whether the shell contains the marker of slot s.
func (t *Template) Has(s Slot) bool {
	return s >= 0 && s < numSlots && t.offsets[s] >= 0
}

// Execute writes the shell to w with every value inserted at its slot.
func (t *Template) Execute(w io.Writer, values Values) error {
	sw, ok := w.(io.StringWriter)
	if !ok {
		sw = &stringWriter{w}
	}

	pos := 0
	for _, s := range t.order {
		v, ok := values[s]
		if !ok || v == "" {
			continue
		}
		off := t.offsets[s]
		if _, err := sw.WriteString(t.src[pos:off]); err != nil {
			return err
		}
		if _, err := sw.WriteString(v); err != nil {
			return err
		}
		pos = off
	}
	_, err := sw.WriteString(t.src[pos:])
	return err
}

// Render returns the shell with values inserted.
func (t *Template) Render(values Values) string {
	var b strings.Builder
	size := len(t.src)
	for _, v := range values {
		size += len(v)
	}
	b.Grow(size)
	_ = t.Execute(&b, values)
	return b.String()
}

type stringWriter struct {
	w io.Writer
}

func (s *stringWriter) WriteString(str string) (int, error) {
	return s.w.Write([]byte(str))
}
