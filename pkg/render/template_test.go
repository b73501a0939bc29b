package render

import (
	"bytes"
	"strings"
	"testing"
)

const shell = `<!DOCTYPE html>
<html lang="en">
<head><title>shop</title></head>
<body class="x">
<div id="app"></div>
<script src="/app.js"></script>
</body>
</html>`

func TestParse_Slots(t *testing.T) {
	tpl := Parse(shell)

	for s := Slot(0); s < numSlots; s++ {
		if !tpl.Has(s) {
			t.Errorf("slot %s not found", s)
		}
	}
	if tpl.Source() != shell {
		t.Error("Source() should return the shell verbatim")
	}

	bare := Parse("<p>hi</p>")
	if bare.Has(SlotApp) || bare.Has(SlotBodyEnd) {
		t.Error("bare document should have no slots")
	}
	if Parse(shell).Has(Slot(42)) {
		t.Error("Has should reject unknown slots")
	}
}

func TestRender_App(t *testing.T) {
	tpl := Parse(shell)
	got := tpl.Render(Values{SlotApp: "<h1>Not found</h1>"})

	if !strings.Contains(got, `<div id="app"><h1>Not found</h1></div>`) {
		t.Errorf("app markup not spliced:\n%s", got)
	}
	if strings.Replace(got, "<h1>Not found</h1>", "", 1) != shell {
		t.Error("only the app slot should change")
	}
}

func TestRender_Meta(t *testing.T) {
	tpl := Parse(shell)
	meta := &Meta{
		HTMLAttr: `data-theme="dark"`,
		Head:     `<meta name="description" content="d">`,
		BodyAttr: `data-page="home"`,
		Body:     `<script>window.__META__=1</script>`,
	}
	got := tpl.Render(Values{SlotApp: "<main></main>"}.WithMeta(meta))

	for _, want := range []string{
		`<html data-theme="dark" lang="en">`,
		`<head><meta name="description" content="d"><title>`,
		`<body data-page="home" class="x">`,
		`<div id="app"><main></main></div>`,
		`<script>window.__META__=1</script></body>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestRender_NilMetaLeavesShell(t *testing.T) {
	tpl := Parse(shell)
	if got := tpl.Render(Values{}.WithMeta(nil)); got != shell {
		t.Errorf("nil meta changed the shell:\n%s", got)
	}
	if got := tpl.Render(nil); got != shell {
		t.Error("nil values changed the shell")
	}
}

func TestRender_EmptyMetaAttrsKeepSpace(t *testing.T) {
	tpl := Parse(shell)
	got := tpl.Render(Values(nil).WithMeta(&Meta{}))
	if !strings.Contains(got, `<html  lang="en">`) {
		t.Errorf("empty html attr should still insert a space:\n%s", got)
	}
	if !strings.Contains(got, `<body  class="x">`) {
		t.Errorf("empty body attr should still insert a space:\n%s", got)
	}
}

func TestRender_ValuesAreNotRescanned(t *testing.T) {
	tpl := Parse(shell)
	// The app markup contains every marker; none of them may receive the
	// metadata fragments.
	app := `<pre><html <head> <body </body></pre>`
	got := tpl.Render(Values{SlotApp: app}.WithMeta(&Meta{Body: "<!--end-->"}))

	if strings.Count(got, "<!--end-->") != 1 {
		t.Fatalf("body fragment inserted %d times", strings.Count(got, "<!--end-->"))
	}
	if !strings.HasSuffix(got, "<!--end--></body>\n</html>") {
		t.Errorf("body fragment should sit before the shell's </body>:\n%s", got)
	}
	if !strings.Contains(got, `<div id="app">`+app+`</div>`) {
		t.Error("app markup should be inserted verbatim")
	}
}

func TestRender_OrderIndependent(t *testing.T) {
	tpl := Parse(shell)
	a := Values{SlotBodyEnd: "B", SlotApp: "A", SlotHead: "H"}
	b := Values{SlotHead: "H", SlotApp: "A", SlotBodyEnd: "B"}
	if tpl.Render(a) != tpl.Render(b) {
		t.Error("rendering should not depend on value order")
	}
}

func TestRender_MissingSlotDropsValue(t *testing.T) {
	tpl := Parse(`<html><body><main></main></body></html>`)
	got := tpl.Render(Values{SlotApp: "<p>x</p>", SlotBodyEnd: "<i></i>"})
	if got != `<html><body><main></main><i></i></body></html>` {
		t.Errorf("Render() = %q", got)
	}
}

func TestRender_HeadEnd(t *testing.T) {
	tpl := Parse(shell)
	tags := HeadTags([]LinkTag{{Href: "/app.css"}}, []ScriptTag{{Src: "/app.js", Defer: true}})
	got := tpl.Render(Values{SlotHeadEnd: tags})
	want := `<title>shop</title><link rel="stylesheet" href="/app.css"><script defer src="/app.js"></script></head>`
	if !strings.Contains(got, want) {
		t.Errorf("head tags not injected:\n%s", got)
	}
}

func TestExecute_Writer(t *testing.T) {
	var buf bytes.Buffer
	tpl := Parse(shell)
	if err := tpl.Execute(&buf, Values{SlotApp: "x"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != tpl.Render(Values{SlotApp: "x"}) {
		t.Error("Execute and Render disagree")
	}
}

func TestSlot_String(t *testing.T) {
	if SlotApp.String() != "app" {
		t.Errorf("SlotApp.String() = %q", SlotApp.String())
	}
	if Slot(-1).String() != "unknown" {
		t.Error("invalid slot should be unknown")
	}
}

func TestTags(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{ScriptTag{Src: "/a.js"}.String(), `<script src="/a.js"></script>`},
		{ScriptTag{Src: "/a.js", Module: true, Defer: true}.String(), `<script type="module" src="/a.js"></script>`},
		{ScriptTag{Src: `/a".js`, Defer: true}.String(), `<script defer src="/a&quot;.js"></script>`},
		{LinkTag{Href: "/a&b.css"}.String(), `<link rel="stylesheet" href="/a&amp;b.css">`},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
