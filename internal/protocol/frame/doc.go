// Package frame owns the wire contract and parsing primitives.
//
// Ownership boundary:
// - header line parsing and validation
// - payload reassembly from a chunked byte stream
// - network-to-host order conversion
package frame
