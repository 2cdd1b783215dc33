// Package assign provides a Go library for item assignment and
// prioritization in annotation platforms.
//
// Assign decides which item each annotator sees next. It tracks per-item
// annotation capacity, keeps every user's assignment stream replayable, and
// routes selection through pluggable strategies driven by live signals
// (inter-annotator disagreement, user expertise, cluster membership, model
// uncertainty, LLM confidence).
//
// # Quick Start
//
// Basic usage with default settings:
//
//	import "github.com/davidjurgens/potato-sub003"
//
//	cfg := assign.DefaultConfig()
//	cfg.AssignmentStrategy = "least_annotated"
//	cfg.MaxAnnotationsPerItem = 3
//
//	eng, err := assign.NewEngine(&cfg, items)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop(context.Background())
//
//	itemID, ok := eng.NextInstance("user-1")
//	if ok {
//	    // serve the item, then:
//	    eng.OnAnnotationSubmitted(itemID, "user-1", labels)
//	}
//
// # Key Features
//
//   - Capacity Safety: annotation_count + in_flight_count never exceeds the
//     per-item cap, even under concurrent requests
//   - Idempotent Assignment: a pending assignment is returned unchanged on
//     refresh or reconnect until the user resolves it
//   - Pluggable Strategies: eight built-ins plus a registry for custom
//     selection logic
//   - Graceful Degradation: a panicking or misbehaving strategy degrades a
//     single request to a random pick, never crashes the engine
//   - Reservation Sweeping: abandoned sessions release their item slots
//     after a configurable TTL
//
// # Assignment Flow
//
// NextInstance runs a request through a fixed sequence:
//
//	pending check → user quota → snapshot → strategy → reserve
//
// Strategies evaluate a copy-on-read snapshot of the item pool, so no lock
// is held across selection. Reserve re-validates capacity atomically; when a
// racing request takes the last slot, selection retries without that item.
//
// # Custom Strategies
//
// Register a custom strategy through the registry:
//
//	reg := strategy.DefaultRegistry()
//	reg.Register("shortest_text", func(p strategy.Params) (types.SelectionStrategy, error) {
//	    return &shortestText{}, nil
//	})
//
//	eng, err := assign.NewEngine(&cfg, items, assign.WithRegistry(reg))
//
// # Signal Ingestion
//
// External jobs feed signals through fire-and-forget methods:
//
//	eng.OnExpertiseRecomputed(userID, scores)
//	eng.OnClusterAssignmentsUpdated(assignments, generation)
//	eng.OnUncertaintyScoresUpdated(scores)
//	eng.OnLLMConfidenceUpdated(scores)
//
// Each signal kind is applied by a dedicated goroutine, so ingestion never
// blocks assignment. Cluster batches carry a generation number; stale
// batches are discarded.
package assign
