// Package testutil provides shared test utilities and fixtures.
//
// This package contains common setup code, test data, and helper functions
// used across package tests.
//
// Examples of utilities that belong here:
//   - Test data generators (item pools with categories, clusters, scores)
//   - Assertion helpers (capacity invariants, assignment distributions)
//   - Counting fakes for metrics and hooks
package testutil
