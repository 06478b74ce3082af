// Package database persists media processing records in SQLite.
//
// Each record tracks one uploaded media object through the transcoding
// lifecycle: pending -> processing -> processed | failed. A job owns its
// row exclusively for the duration of its run, so all writes are simple
// point-writes keyed by media id; no read-modify-write cycles exist.
package database
