// Package history keeps an append-only log of power state transitions.
//
// Every change the power actor applies is handed to a Recorder, which queues
// it and writes it to SQLite (and optionally to InfluxDB) from its own
// goroutine so the actor never waits on storage. Old rows are pruned on a
// schedule.
//
// The log is write-only from the actor's point of view: it is never replayed
// into the live device table. It exists for the /api/v1/devices/{id}/history
// endpoint and for operators.
package history
