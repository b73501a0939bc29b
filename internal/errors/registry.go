package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (E100-E119)

	"E100": {
		Category: CategoryConfig,
		Message:  "Invalid alvori.json",
		Detail:   "The alvori.json configuration file is malformed.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid build mode",
		Detail:   "BUILD_MODE must be either \"spa\" or \"ssr\".",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port must be between 0 and 65535.",
	},
	"E110": {
		Category: CategoryCLI,
		Message:  "Not an alvori project",
		Detail:   "No alvori.json was found in the current directory or any parent.",
	},

	// Bundling and build (E120-E129)

	"E120": {
		Category: CategoryBuild,
		Message:  "Bundler setup failed",
		Detail:   "The bundler could not be configured with the given entry points.",
	},
	"E121": {
		Category: CategoryBuild,
		Message:  "Build failed",
	},
	"E122": {
		Category: CategoryBuild,
		Message:  "Server bundle could not be loaded",
		Detail:   "The compiled server bundle did not evaluate or does not export a render function.",
	},

	// Rendering and boot (E130-E139)

	"E130": {
		Category: CategoryRender,
		Message:  "Render failed",
	},
	"E131": {
		Category: CategoryBoot,
		Message:  "Boot entry not registered",
		Detail:   "A boot entry names a module that is missing from the boot registry.",
	},

	// Publishing (E140-E149)

	"E140": {
		Category: CategoryPublish,
		Message:  "Publish failed",
	},
}
