// Package config provides configuration loading for alvori projects.
//
// The configuration is stored in alvori.json at the project root and is
// then overridden by the process environment, which is how the dev server
// is normally driven:
//
//	BUILD_MODE  spa (default) or ssr
//	PORT        dev server port (default 3000)
//	MODE        development (default for dev) or production (default for build)
//	PWA         enables service worker registration in production builds
//
// # Configuration File Structure
//
//	{
//	  "name": "my-app",
//	  "mode": "ssr",
//	  "paths": {
//	    "template": "public/index.html",
//	    "clientEntry": "src/entries/client.js",
//	    "serverEntry": "src/entries/server.js"
//	  },
//	  "dev": {
//	    "port": 3000,
//	    "publicPath": "/"
//	  },
//	  "boot": ["axios", {"path": "analytics", "server": false}],
//	  "publish": {"bucket": "my-app-assets", "prefix": "releases/"}
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
//	    log.Fatal(err)
//	}
package config
