// Package sync reconciles the search indexes with the note store.
//
// Neither store is locked against the other, so the indexes drift: writes
// arrive out of order, engine tasks fail, documents get duplicated. This
// package detects and repairs that drift in bounded batches.
//
// # Core Types
//
//   - DriftStatus: closed set of ways a note can disagree with its documents
//   - ClassifyNotes, ClassifyFields: pure decision tables, one per index
//   - Strategy: the variant specific functions of a pass (count, find,
//     classify and one Repairer per status)
//   - Manager: runs passes for one variant; NewManager builds it from a Strategy
//
// # Passes
//
// A minor pass (SinkCurrentRecords) reconciles the notes modified inside a
// window. A major pass (SinkAllRecords) reconciles every note modified before
// a cutoff. Both count the candidates first and then walk them page by page in
// ascending id order.
//
// Repairs are idempotent: repeating a pass without intervening writes finds
// nothing to repair. A failed repair is logged and counted, and the pass moves
// on to the next note; the next pass classifies the note again.
//
// The coordinator subpackage schedules passes and computes their windows.
package sync
