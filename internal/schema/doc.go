// Package schema provides the validated in-memory model of a query schema:
// the set of entity types, their scalar fields, and the relations connecting
// them.
//
// Schemas are written as CUE documents and loaded once per process with
// Load. Loading validates the document eagerly - referential integrity of
// relation targets, field kind names, graph label format, and name
// uniqueness within each type - so downstream packages can assume a Schema
// value is internally consistent and never re-check structure.
//
// A Schema is immutable after Load and safe for concurrent use.
package schema
