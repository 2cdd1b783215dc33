package types

// Signal kind names used in metrics and logs.
const (
	SignalLabels        = "labels"
	SignalExpertise     = "expertise"
	SignalClusters      = "clusters"
	SignalUncertainty   = "uncertainty"
	SignalLLMConfidence = "llm_confidence"
)

// LabelUpdate carries one submitted annotation's labels for disagreement
// recomputation.
type LabelUpdate struct {
	ItemID string
	UserID string
	Labels []string
}

// ExpertiseUpdate carries recomputed per-category agreement scores for one
// user, produced by the external consensus process.
type ExpertiseUpdate struct {
	UserID string
	Scores map[string]float64
}

// ClusterUpdate carries a full recluster result. Generation is a monotonic
// counter; the ingestor discards batches whose generation is not newer than
// the last applied one, so a slow job finishing late cannot roll clusters
// back.
type ClusterUpdate struct {
	Assignments map[string]int
	Generation  int64
}

// ScoreUpdate carries per-item scalar scores from a batch job (classifier
// uncertainty or LLM confidence).
type ScoreUpdate struct {
	Scores map[string]float64
}
