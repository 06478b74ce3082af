// Package startup handles configuration loading, environment validation,
// and build information for the transcoding service.
package startup
