// Package snapshot serializes object table contents for inspection and
// leak checking.
//
// Write renders a table snapshot as a styled text table, YAML or CBOR.
// Read decodes the YAML and CBOR forms back into entries, and Leaks compares
// two snapshots to find objects that were created and never released.
package snapshot
