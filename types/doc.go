// Package types contains the shared value types and interfaces used across
// the assignment engine.
//
// The package is deliberately dependency-free so that every internal package
// (store, ledger, signal, strategy) can import it without creating import
// cycles with the root assign package. The root package re-exports the
// public subset via type aliases.
package types
