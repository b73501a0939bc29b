// Package build provides production builds of alvori applications.
//
// This package handles:
//   - client bundling with esbuild (hashed names, minified by default)
//   - the server bundle in ssr mode
//   - the HTML shell with injected script and stylesheet tags
//   - copying public files and raw assets
//   - the asset manifest
//
// # Usage
//
//	builder := build.New(cfg, build.Options{})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    return err
//	}
//
//	fmt.Printf("Built in %s\n", result.Duration)
//
// # Output Structure
//
//	dist/
//	├── index.html              # HTML shell
//	├── client-3FQ2ZL5T.js      # Client bundle
//	├── client-7ASD3K2P.css     # Extracted CSS
//	├── server-bundle.js        # Server bundle (ssr mode)
//	├── favicon.ico             # Copied from public/
//	├── assets/                 # Copied from src/assets
//	└── asset-manifest.json     # Content hashes
//
// # Manifest
//
// The manifest maps every output path to the first 16 hex digits of the
// SHA-256 of its content:
//
//	{
//	  "client-3FQ2ZL5T.js": "9f86d081884c7d65",
//	  "assets/logo.svg": "60303ae22b998861"
//	}
package build
