// Package config defines the engine's configuration surface: a single
// structured Options value with documented defaults, which may be decoded
// from an HCL `engine` block. No option is held in a package global; every
// graph, materializer and gate receives the Options it should honour.
package config
