// Package environment names the deployment environment (development, staging,
// production) and carries it through configuration, request contexts and logs.
//
// Environment implements encoding.TextUnmarshaler, so it can be used directly
// in env-tagged config structs:
//
//	type Config struct {
//	    Environment environment.Environment `env:"APP_ENV" envDefault:"development"`
//	}
//
// Middleware attaches the environment to every request context and
// LoggerExtractor exposes it to the logger's context extractors.
package environment
