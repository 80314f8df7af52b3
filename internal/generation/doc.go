// Package generation turns a topic into validated quiz elements by asking an
// external text-generation oracle for a JSON payload.
//
// The oracle is untrusted and not bound to a format, so ingestion runs in
// two stages.  [Normalize] is lenient: it removes Markdown fences, stray
// prose and non-breaking spaces.  [Parse] and [Validate] are strict: a
// single invalid element rejects the whole batch.  Both stages are exposed
// so they can be tested on their own.
//
// [TextGenerator] is the only dependency on the oracle.  [Gemini] is the
// production implementation; tests inject deterministic stubs.
package generation
