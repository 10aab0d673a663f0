// Package handlers wires the HTTP surface: each handler owns one
// resource, depends on repositories and services through its struct
// fields, and registers its routes via Routes(r *router.Router).
package handlers
