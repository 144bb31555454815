package conflict

import (
	"sort"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/augv-fleet/supervisor/internal/core"
	"github.com/augv-fleet/supervisor/internal/planner"
)

// DefaultDepthCap bounds ConflictResolver's outer recursion: after this many
// passes with residual conflicts, it gives up and reports ResolutionExhausted
// rather than loop forever.
const DefaultDepthCap = 30

// DefaultScenarioCap bounds how many candidate scenarios a single conflict
// may generate before the wait-permutation enumeration is cut off. The
// combinatorics can explode (Σ C(N,m)·P(k,m) over involved-agent subsets),
// so this is an explicit, documented safety valve rather than a silent
// truncation: every cutoff is logged with the cap and how many scenarios
// were considered before it.
const DefaultScenarioCap = 4000

// ResolveOptions configures one ConflictResolver run. Zero values fall back
// to the package defaults.
type ResolveOptions struct {
	DepthCap     int
	ScenarioCap  int
	ExpansionCap int
}

func (o ResolveOptions) withDefaults() ResolveOptions {
	if o.DepthCap <= 0 {
		o.DepthCap = DefaultDepthCap
	}
	if o.ScenarioCap <= 0 {
		o.ScenarioCap = DefaultScenarioCap
	}
	return o
}

// Resolve eliminates the conflicts in assignments by reassigning Paths for
// the agents involved, recursing until the assignment is conflict-free, the
// depth cap is hit, or a pass finds no valid scenario for any conflict. In
// the last two cases, with conflicts remaining, it returns the best
// assignment it reached together with core.ErrResolutionExhausted; callers treat that as
// non-fatal and retry next tick per the error-handling policy.
func Resolve(grid *core.Grid, assignments map[string]core.Path, warehouses []core.Cell, opts ResolveOptions) (map[string]core.Path, error) {
	opts = opts.withDefaults()
	current := cloneAssignments(assignments)

	for depth := 0; depth < opts.DepthCap; depth++ {
		conflicts := Detect(current, grid, warehouses)
		if len(conflicts) == 0 {
			return current, nil
		}

		pending := cloneAssignments(current)
		progressed := false

		for _, c := range conflicts {
			scenario, ok := bestScenario(grid, pending, warehouses, c, opts)
			if !ok {
				log.WithFields(logrus.Fields{
					"cell": c.Cell, "step": c.Step, "kind": c.Kind, "involved": c.Involved,
				}).Warn("conflict: no valid scenario, leaving unresolved this pass")
				continue
			}
			for id, p := range scenario {
				pending[id] = p
			}
			progressed = true
		}

		if !progressed {
			break
		}
		current = pending
	}

	residual := Detect(current, grid, warehouses)
	if len(residual) == 0 {
		return current, nil
	}
	log.WithField("residual", len(residual)).Warn("conflict resolver: depth cap hit with residual conflicts")
	return current, core.ErrResolutionExhausted
}

// bestScenario enumerates every candidate scenario for one conflict and
// returns the one with the lexicographically smallest (hasConflict,
// totalPathLength), ties broken deterministically by the sorted
// (agent_id, path) pairs of the scenario itself.
func bestScenario(grid *core.Grid, pending map[string]core.Path, warehouses []core.Cell, c core.Conflict, opts ResolveOptions) (map[string]core.Path, bool) {
	planOpts := planner.Options{ExpansionCap: opts.ExpansionCap}

	var best map[string]core.Path
	var bestConflicted bool
	var bestLength int
	found := false

	consider := func(scenario map[string]core.Path) {
		if scenario == nil {
			return
		}
		merged := cloneAssignments(pending)
		for id, p := range scenario {
			merged[id] = p
		}
		conflicted := len(Detect(merged, grid, warehouses)) > 0
		length := 0
		for _, id := range c.Involved {
			length += len(merged[id])
		}

		if !found {
			best, bestConflicted, bestLength, found = scenario, conflicted, length, true
			return
		}
		if better(conflicted, length, scenario, bestConflicted, bestLength, best) {
			best, bestConflicted, bestLength = scenario, conflicted, length
		}
	}

	consider(allAvoidScenario(grid, pending, c, planOpts))
	for _, scenario := range oneAllowedScenarios(grid, pending, c, planOpts) {
		consider(scenario)
	}
	if c.Step != core.WarehouseSentinelStep {
		stop := make(chan struct{})
		budget := opts.ScenarioCap
		considered := 0
		cutoff := false
		for scenario := range waitPermutationScenarios(pending, c, stop) {
			if budget <= 0 {
				cutoff = true
				close(stop)
				break
			}
			budget--
			considered++
			consider(scenario)
		}
		if cutoff {
			log.WithFields(logrus.Fields{"cell": c.Cell, "step": c.Step, "cap": opts.ScenarioCap, "considered": considered}).
				Warn("conflict resolver: scenario cap hit, remaining wait-permutation scenarios dropped")
		}
	}

	return best, found
}

// better reports whether candidate (conflicted, length, scenario) scores
// strictly below incumbent (bestConflicted, bestLength, best) under
// lexicographic (hasConflict, totalLength), ties broken by a deterministic
// ordering over the sorted (agent_id, path) pairs.
func better(conflicted bool, length int, scenario map[string]core.Path, bestConflicted bool, bestLength int, best map[string]core.Path) bool {
	if conflicted != bestConflicted {
		return !conflicted // conflict-free always beats conflicted
	}
	if length != bestLength {
		return length < bestLength
	}
	return compareScenarios(scenario, best) < 0
}

// compareScenarios orders two scenarios deterministically by their sorted
// (agent_id, path) pairs, for tie-breaking equal-scoring candidates.
func compareScenarios(a, b map[string]core.Path) int {
	aIDs, bIDs := lo.Keys(a), lo.Keys(b)
	sort.Strings(aIDs)
	sort.Strings(bIDs)
	n := len(aIDs)
	if len(bIDs) < n {
		n = len(bIDs)
	}
	for i := 0; i < n; i++ {
		if aIDs[i] != bIDs[i] {
			if aIDs[i] < bIDs[i] {
				return -1
			}
			return 1
		}
		if c := comparePaths(a[aIDs[i]], b[bIDs[i]]); c != 0 {
			return c
		}
	}
	return len(aIDs) - len(bIDs)
}

func comparePaths(a, b core.Path) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i].X != b[i].X {
			return a[i].X - b[i].X
		}
		if a[i].Y != b[i].Y {
			return a[i].Y - b[i].Y
		}
	}
	return len(a) - len(b)
}

func cloneAssignments(assignments map[string]core.Path) map[string]core.Path {
	out := make(map[string]core.Path, len(assignments))
	for id, p := range assignments {
		out[id] = p.Clone()
	}
	return out
}
