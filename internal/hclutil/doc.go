// Package hclutil holds small helpers shared by the HCL-facing packages:
// unique block lookup, canonical traversal keys and an expression container
// that collects the references a pipeline block makes to other blocks.
package hclutil
