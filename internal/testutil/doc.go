// Package testutil provides a harness for running whole pipelines through
// the application in tests.
package testutil
