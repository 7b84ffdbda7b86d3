// Package integration_tests holds end-to-end tests that run whole pipelines
// through the application. Scenarios live in subdirectories by theme.
package integration_tests
