// Package config defines the generation-time installer settings and
// provides helpers to load and validate them from YAML. Settings carry
// the application identity, the artifact base URL and the declared
// install-path strategy chain; together with the CLI flags they form the
// single immutable configuration value threaded through the pipeline.
package config
