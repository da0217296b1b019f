// Package ingest owns the run lifecycle.
//
// Ownership boundary:
// - connection state machine
//
// - the single-threaded decode/merge/persist loop
//
// - terminal-state mapping of decode and merge failures
//
// Ingest does not own reconnect policy; a terminal state ends the run and
// supervision is the process manager's job.
package ingest
