// Package app contains the core application logic. It wires the pipeline
// loader, the source catalog, the materialization session and the
// observability endpoints together, decoupled from any specific entrypoint
// like a CLI or server.
package app
