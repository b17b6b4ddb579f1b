// Package schema turns reflected JSON Schemas into the self-contained form
// model providers accept.
//
// Resolve inlines local $defs/definitions references, collapses optional
// unions of one type and null into that type marked nullable, and drops
// $schema, $id, $comment and title. Cycles are reported as ErrCyclicSchema
// instead of recursing forever.
package schema
