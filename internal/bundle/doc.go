// Package bundle compiles application entry points with esbuild.
//
// A Compiler wraps one esbuild build context. Output is kept in memory
// (nothing is written to disk) and handed to the caller as a Result after
// every build, which makes the same compiler usable for one-shot
// production builds and for the dev server's watch mode:
//
//	c, err := bundle.New(bundle.Options{
//	    Name:        "client",
//	    EntryPoints: []string{"src/entries/client.js"},
//	    Outdir:      "dist/dev",
//	    Template:    "public/index.html",
//	})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	err = c.Watch(ctx, func(res bundle.Result) {
//	    // called after every rebuild
//	})
//
// When a Template is configured, each successful build also emits the
// HTML shell: the template with stylesheet and script tags for the
// emitted entry outputs inserted before </head>.
package bundle
