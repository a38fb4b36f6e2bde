// Package artifact persists per-run stage outputs.
//
// Artifacts are keyed by (run ID, role): each pipeline run writes one
// artifact per executed stage, and distinct runs never collide. The Store
// interface is the run's output contract; implementation packages (in-memory,
// filesystem, cloud object stores) provide storage backends that can be
// swapped without touching calling code.
//
// Callers should depend on the Store interface rather than concrete types so
// they can substitute alternative persistence layers in tests or production.
package artifact
