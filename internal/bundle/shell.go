package bundle

import (
	"strings"

	"github.com/alvori-dev/alvori/pkg/render"
)

// Shell inserts stylesheet and script tags for the emitted .css and .js
// files into the HTML template, directly before </head>. Templates
// without a head get the tags before </body>, or appended.
func Shell(template, publicPath string, files []File) string {
	var links []render.LinkTag
	for _, p := range sortedPaths(files, ".css") {
		links = append(links, render.LinkTag{Href: assetURL(publicPath, p)})
	}
	var scripts []render.ScriptTag
	for _, p := range sortedPaths(files, ".js") {
		scripts = append(scripts, render.ScriptTag{Src: assetURL(publicPath, p), Defer: true})
	}
	tags := render.HeadTags(links, scripts)
	if tags == "" {
		return template
	}

	t := render.Parse(template)
	switch {
	case t.Has(render.SlotHeadEnd):
		return t.Render(render.Values{render.SlotHeadEnd: tags})
	case t.Has(render.SlotBodyEnd):
		return t.Render(render.Values{render.SlotBodyEnd: tags})
	default:
		return template + tags
	}
}

func assetURL(publicPath, path string) string {
	if publicPath == "" {
		publicPath = "/"
	}
	if !strings.HasSuffix(publicPath, "/") {
		publicPath += "/"
	}
	return publicPath + path
}
