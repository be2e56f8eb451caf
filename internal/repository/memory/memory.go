// Package memory provides in-memory implementations of the repository
// interfaces, intended for tests and dev environments. Semantics mirror the
// Postgres implementations: missing rows surface as pgx.ErrNoRows and live
// credentials stay unique across all identities. Cross-store effects of the
// schema, like the delete cascade from identities onto their events and
// membership, are opt-in via IdentityStore.OnDelete since each store guards
// its own state.
package memory
