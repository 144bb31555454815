package conflict

import (
	"sort"

	"github.com/augv-fleet/supervisor/internal/core"
	"github.com/augv-fleet/supervisor/internal/planner"
)

// replan calls the Planner for one agent using its current committed path's
// endpoints: start is where it stands now (the Path's first cell), goal is
// its current waypoint target (the Path's last cell, per the Path
// invariant). blocked is merged with opts' own overlay.
func replan(grid *core.Grid, path core.Path, blocked core.Cell, opts planner.Options) (core.Path, bool) {
	if len(path) == 0 {
		return nil, false
	}
	overlay := map[core.Cell]bool{blocked: true}
	for c, b := range opts.Blocked {
		if b {
			overlay[c] = true
		}
	}
	merged := planner.Options{ExpansionCap: opts.ExpansionCap, Blocked: overlay}
	p, err := planner.Find(grid, path.First(), path.Last(), merged)
	if err != nil {
		return nil, false
	}
	return p, true
}

// replanUnblocked re-plans an agent between its existing endpoints with no
// extra block. For a deterministic Planner this reproduces the agent's
// original optimal path — it is "allowed" to keep using the conflict cell.
func replanUnblocked(grid *core.Grid, path core.Path, opts planner.Options) (core.Path, bool) {
	if len(path) == 0 {
		return nil, false
	}
	p, err := planner.Find(grid, path.First(), path.Last(), opts)
	if err != nil {
		return nil, false
	}
	return p, true
}

// allAvoidScenario plans every involved agent around conflict.Cell; it is
// only a valid candidate if every involved agent finds a path.
func allAvoidScenario(grid *core.Grid, pending map[string]core.Path, c core.Conflict, opts planner.Options) map[string]core.Path {
	scenario := make(map[string]core.Path, len(c.Involved))
	for _, id := range c.Involved {
		p, ok := replan(grid, pending[id], c.Cell, opts)
		if !ok {
			return nil
		}
		scenario[id] = p
	}
	return scenario
}

// oneAllowedScenarios produces one scenario per involved agent a*: a* keeps
// using the conflict cell (replanned without the extra block) while every
// other involved agent is routed around it.
func oneAllowedScenarios(grid *core.Grid, pending map[string]core.Path, c core.Conflict, opts planner.Options) []map[string]core.Path {
	var out []map[string]core.Path
	for _, allowed := range c.Involved {
		scenario := make(map[string]core.Path, len(c.Involved))
		ok := true
		for _, id := range c.Involved {
			if id == allowed {
				p, good := replanUnblocked(grid, pending[id], opts)
				if !good {
					ok = false
					break
				}
				scenario[id] = p
				continue
			}
			p, good := replan(grid, pending[id], c.Cell, opts)
			if !good {
				ok = false
				break
			}
			scenario[id] = p
		}
		if ok {
			out = append(out, scenario)
		}
	}
	return out
}

// waitPermutationScenarios yields, for every non-empty proper subset S of
// c.Involved and every injective assignment of wait-counts drawn from
// {1,...,k} (k = c.Step) to S, a scenario where each agent in S has its
// Path prefixed with that many wait-in-place steps. Agents outside S are
// left out of the returned map, meaning "keep pending's current path".
// The caller must always drain out to completion, or close stop first so
// the producer goroutine can observe it and exit instead of leaking blocked
// on a send.
func waitPermutationScenarios(pending map[string]core.Path, c core.Conflict, stop <-chan struct{}) <-chan map[string]core.Path {
	out := make(chan map[string]core.Path)
	go func() {
		defer close(out)
		k := c.Step
		if k < 1 {
			return
		}
		involved := append([]string{}, c.Involved...)
		sort.Strings(involved)
		n := len(involved)
		for mask := 1; mask < (1 << n); mask++ {
			if mask == (1<<n)-1 {
				continue // proper subset only
			}
			var subset []string
			for i := 0; i < n; i++ {
				if mask&(1<<i) != 0 {
					subset = append(subset, involved[i])
				}
			}
			cancelled := false
			permuteWaits(k, len(subset), func(waits []int) bool {
				scenario := make(map[string]core.Path, len(subset))
				for i, id := range subset {
					scenario[id] = pending[id].WithLeadingWaits(waits[i])
				}
				select {
				case out <- scenario:
					return true
				case <-stop:
					cancelled = true
					return false
				}
			})
			if cancelled {
				return
			}
		}
	}()
	return out
}

// permuteWaits enumerates all P(k, m) injective sequences of m distinct
// values drawn from {1,...,k}, calling yield with each. yield returning
// false stops enumeration early.
func permuteWaits(k, m int, yield func([]int) bool) {
	used := make([]bool, k+1)
	chosen := make([]int, m)
	var rec func(depth int) bool
	rec = func(depth int) bool {
		if depth == m {
			return yield(append([]int{}, chosen...))
		}
		for v := 1; v <= k; v++ {
			if used[v] {
				continue
			}
			used[v] = true
			chosen[depth] = v
			cont := rec(depth + 1)
			used[v] = false
			if !cont {
				return false
			}
		}
		return true
	}
	rec(0)
}
