// Package cli turns command-line arguments into an app.Config. It validates
// user input and reports usage errors with the exit code the process should
// use.
package cli
