package render

// Meta holds the document fragments a metadata plugin produces for one
// render.
type Meta struct {
	// HTMLAttr is inserted into the opening <html> tag.
	HTMLAttr string `json:"htmlAttr"`

	// Head is inserted at the start of <head>.
	Head string `json:"head"`

	// BodyAttr is inserted into the opening <body> tag.
	BodyAttr string `json:"bodyAttr"`

	// Body is inserted before </body>.
	Body string `json:"body"`
}

// WithMeta returns v extended with the four metadata slots. A nil meta
// leaves v unchanged. Attribute slots always receive a separating space,
// even when the attribute string is empty.
func (v Values) WithMeta(m *Meta) Values {
	if m == nil {
		return v
	}
	if v == nil {
		v = make(Values, 4)
	}
	v[SlotHTMLAttrs] = " " + m.HTMLAttr
	v[SlotHead] = m.Head
	v[SlotBodyAttrs] = " " + m.BodyAttr
	v[SlotBodyEnd] = m.Body
	return v
}
