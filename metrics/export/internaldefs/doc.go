// Package internaldefs holds the exported metric families shared by the
// Prometheus and OTel exporters, and the helpers that read them out of a
// goToken snapshot.
//
// Verify outcomes are one family split by a "result" label rather than
// separate metrics, so valid, expired and rejected counts always add up to
// the number of Verify calls.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
