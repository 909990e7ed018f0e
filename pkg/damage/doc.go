// Package damage owns the damage assessment wire contract.
//
// Ownership boundary:
// - field table shared by the scanner and the renderer
// - line scanning and value coercion
// - record validation and canonical rendering
//
// The package does no I/O and holds no mutable package state; every entry
// point is safe for concurrent use.
package damage
