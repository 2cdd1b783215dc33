package strategy

import (
	"sort"

	"github.com/davidjurgens/potato-sub003/types"
)

// Cluster round-robins across diversity cluster buckets the user has not yet
// drawn from in the current pass, so consecutive assignments to one user
// cover the embedding space instead of one dense region.
//
// Cluster IDs arrive asynchronously from the clustering job; items that have
// no assignment yet form an implicit extra bucket. When every bucket has
// been drawn the strategy simply starts over; the engine owns pass tracking
// and fires the recluster request.
type Cluster struct {
	rng *lockedRand
}

// Compile-time assertion that Cluster implements SelectionStrategy.
var _ types.SelectionStrategy = (*Cluster)(nil)

// NewCluster creates a cluster-diversity strategy.
func NewCluster(seed uint64) *Cluster {
	return &Cluster{rng: newLockedRand(seed, NameCluster)}
}

// SelectNext picks from the lowest-numbered cluster bucket the user has not
// drawn from this pass, choosing the least-annotated item inside the bucket.
// With no cluster signal at all it degrades to a plain least-annotated pick.
func (c *Cluster) SelectNext(user types.UserView, eligible []types.ItemView) (string, error) {
	if len(eligible) == 0 {
		return "", types.ErrNoEligibleItems
	}

	buckets := make(map[int][]types.ItemView)
	var unclustered []types.ItemView
	for _, v := range eligible {
		if v.HasCluster {
			buckets[v.ClusterID] = append(buckets[v.ClusterID], v)
		} else {
			unclustered = append(unclustered, v)
		}
	}

	if len(buckets) == 0 {
		return leastAnnotatedOf(unclustered).ID, nil
	}

	ids := make([]int, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	// First undrawn bucket this pass; all drawn means the pass wrapped.
	for _, id := range ids {
		if !user.DrawnClusters[id] {
			return leastAnnotatedOf(buckets[id]).ID, nil
		}
	}

	return leastAnnotatedOf(buckets[ids[c.rng.IntN(len(ids))]]).ID, nil
}
