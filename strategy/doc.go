// Package strategy provides the built-in item selection strategies and the
// registry the engine resolves them from.
//
// Strategies are stateless selectors over a capacity-filtered snapshot; all
// adaptive state (expertise, clusters, uncertainty) is written by the signal
// ingestors and arrives in the snapshot. This separation keeps SelectNext
// side-effect-free and safely callable from concurrent requests.
//
// Built-ins, by registry name:
//
//   - random: seeded uniform pick, reproducible per run
//   - fixed_order: dataset-order walk over the least-loaded items, counting
//     annotations and in-flight reservations; wraps when loads equalize
//   - least_annotated: fewest committed annotations, ties by dataset order
//   - max_diversity: highest disagreement score; never-annotated items rank
//     above fully-resolved unanimous ones via a least-annotated tie-break
//   - category: static qualification filter and/or dynamic expertise-weighted
//     category draw with a base-probability floor
//   - cluster: round-robin over diversity cluster buckets the user has not
//     drawn from this pass
//   - active_learning: highest classifier uncertainty, random until scores
//     arrive
//   - llm_confidence: lowest LLM confidence, random until scores arrive
//
// Custom strategies implement types.SelectionStrategy and register through
// Registry.Register.
package strategy
