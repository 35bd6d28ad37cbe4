package thinking

import "github.com/developer-mesh/graphrag-coordinator/internal/ragmodel"

// Branch copies the base branch's steps into a new branch and switches the
// current branch to it. If base is empty, "main" is used.
func (e *Engine) Branch(name, base string) {
	if base == "" {
		base = MainBranch
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	src := e.branches[base]
	dst := make([]ragmodel.ReasoningStep, len(src))
	copy(dst, src)
	e.branches[name] = dst
	e.currentBranch = name
}

// SwitchBranch makes name the current branch if it exists.
func (e *Engine) SwitchBranch(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.branches[name]; !ok {
		return false
	}
	e.currentBranch = name
	return true
}

// MergeBranches appends steps from src not already present in dst (by
// content equality), then appends a synthetic "merged" step to dst. Repeated
// merges of the same pair are idempotent (spec.md §8 "Branch merge
// idempotence"). If dst is empty, "main" is used. Returns false if src does
// not exist.
func (e *Engine) MergeBranches(src, dst string) bool {
	if dst == "" {
		dst = MainBranch
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	srcSteps, ok := e.branches[src]
	if !ok {
		return false
	}
	dstSteps := e.branches[dst]

	present := make(map[string]struct{}, len(dstSteps))
	for _, s := range dstSteps {
		present[s.Content] = struct{}{}
	}

	for _, s := range srcSteps {
		if _, ok := present[s.Content]; ok {
			continue
		}
		present[s.Content] = struct{}{}
		dstSteps = append(dstSteps, s)
	}

	mergedLabel := "merged branch " + src + " into " + dst
	if _, ok := present[mergedLabel]; !ok {
		dstSteps = append(dstSteps, newStep(mergedLabel, dst))
		present[mergedLabel] = struct{}{}
	}

	e.branches[dst] = dstSteps
	return true
}
