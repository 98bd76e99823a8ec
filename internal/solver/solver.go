// Package solver selects a consistent set of resources for a resolve
// context with a SAT optimizer. Every candidate resource is one variable;
// a selected resource implies that each of its mandatory requirements has
// a selected provider.
package solver

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/crillab/gophersat/solver"
	"github.com/rs/zerolog/log"

	"capresolve/internal/metrics"
	"capresolve/internal/ports"
	"capresolve/internal/resource"
)

type Options struct {
	// Singleton allows at most one selected resource per identity name.
	Singleton bool
	Metrics   *metrics.Recorder
}

// Resolution is the selected resource set and the capability chosen for
// every mandatory requirement of a selected resource.
type Resolution struct {
	Resources []*resource.Resource
	Wiring    map[*resource.Requirement]*resource.Capability
}

// state holds the bookkeeping for one solver invocation.
type state struct {
	rc        ports.ResolveContext
	wired     map[*resource.Resource]ports.Wiring
	vars      map[*resource.Resource]int
	resources []*resource.Resource
	weights   map[int]int
	providers map[*resource.Requirement][]*resource.Capability
	walked    []*resource.Requirement
	missing   []*resource.Requirement
	clauses   [][]int
}

// Solve walks the requirement graph from the mandatory resources, builds
// the clauses and minimizes the summed provider rank of the selection.
func Solve(ctx context.Context, rc ports.ResolveContext, opts Options) (Resolution, error) {
	started := time.Now()
	s := &state{
		rc:        rc,
		wired:     rc.Wirings(),
		vars:      map[*resource.Resource]int{},
		weights:   map[int]int{},
		providers: map[*resource.Requirement][]*resource.Capability{},
	}
	if err := s.walk(ctx, roots(rc)); err != nil {
		return Resolution{}, err
	}
	if opts.Singleton {
		s.addSingletonClauses()
	}
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	problem := solver.ParseSliceNb(s.clauses, len(s.resources))
	lits, weights := s.costFunc()
	if len(lits) > 0 {
		problem.SetCostFunc(lits, weights)
	}
	sat := solver.New(problem)
	cost := 0
	switch {
	case len(lits) > 0:
		cost = sat.Minimize()
	case sat.Solve() != solver.Sat:
		cost = -1
	}
	opts.Metrics.SolveFinished(time.Since(started), len(s.missing))
	if cost < 0 {
		return Resolution{}, s.unresolvedError()
	}

	res := s.resolution(sat.Model())
	log.Ctx(ctx).Debug().
		Int("variables", len(s.resources)).
		Int("clauses", len(s.clauses)).
		Int("cost", cost).
		Int("selected", len(res.Resources)).
		Msg("resolution solved")
	return res, nil
}

func roots(rc ports.ResolveContext) []*resource.Resource {
	var out []*resource.Resource
	for _, r := range slices.Concat([]*resource.Resource{rc.InputResource()}, rc.MandatoryResources()) {
		if r != nil && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *state) variable(r *resource.Resource) (int, bool) {
	if id, ok := s.vars[r]; ok {
		return id, false
	}
	s.resources = append(s.resources, r)
	id := len(s.resources)
	s.vars[r] = id
	return id, true
}

// walk visits resources breadth first. Wired resources are already
// resolved, so their requirements are not followed.
func (s *state) walk(ctx context.Context, roots []*resource.Resource) error {
	queue := make([]*resource.Resource, 0, len(roots))
	for _, r := range roots {
		id, _ := s.variable(r)
		s.clauses = append(s.clauses, []int{id})
		s.weights[id] = 0
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := queue[0]
		queue = queue[1:]
		if _, ok := s.wired[r]; ok {
			continue
		}
		rid := s.vars[r]
		for _, req := range r.Requirements("") {
			if req.IsOptional() || !s.rc.IsEffective(req) {
				continue
			}
			caps := s.rc.FindProviders(ctx, req)
			s.providers[req] = caps
			s.walked = append(s.walked, req)

			clause := []int{-rid}
			satisfied := false
			for rank, c := range caps {
				p := c.Resource()
				if p == nil {
					satisfied = true
					continue
				}
				pid, fresh := s.variable(p)
				if fresh {
					queue = append(queue, p)
				}
				s.weigh(pid, p, rank)
				if !slices.Contains(clause, pid) {
					clause = append(clause, pid)
				}
			}
			if satisfied {
				continue
			}
			if len(clause) == 1 {
				s.missing = append(s.missing, req)
			}
			s.clauses = append(s.clauses, clause)
		}
	}
	return nil
}

// weigh records the best rank at which p was offered. Wired providers are
// free.
func (s *state) weigh(id int, p *resource.Resource, rank int) {
	weight := rank + 1
	if _, ok := s.wired[p]; ok {
		weight = 0
	}
	if current, ok := s.weights[id]; !ok || weight < current {
		s.weights[id] = weight
	}
}

func (s *state) addSingletonClauses() {
	byName := map[string][]int{}
	var names []string
	for _, r := range s.resources {
		id, ok := r.Identity()
		if !ok || id.Name == "" {
			continue
		}
		if _, seen := byName[id.Name]; !seen {
			names = append(names, id.Name)
		}
		byName[id.Name] = append(byName[id.Name], s.vars[r])
	}
	for _, name := range names {
		ids := byName[name]
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				s.clauses = append(s.clauses, []int{-ids[i], -ids[j]})
			}
		}
	}
}

func (s *state) costFunc() ([]solver.Lit, []int) {
	lits := make([]solver.Lit, 0, len(s.resources))
	weights := make([]int, 0, len(s.resources))
	for id := 1; id <= len(s.resources); id++ {
		if s.weights[id] == 0 {
			continue
		}
		lits = append(lits, solver.IntToLit(int32(id))) //nolint:gosec // bounded by the number of candidate resources
		weights = append(weights, s.weights[id])
	}
	return lits, weights
}

func (s *state) resolution(model []bool) Resolution {
	selected := map[*resource.Resource]bool{}
	res := Resolution{Wiring: map[*resource.Requirement]*resource.Capability{}}
	for i, r := range s.resources {
		if i < len(model) && model[i] {
			selected[r] = true
			res.Resources = append(res.Resources, r)
		}
	}
	slices.SortFunc(res.Resources, compareResources)
	for _, req := range s.walked {
		if !selected[req.Resource()] {
			continue
		}
		for _, c := range s.providers[req] {
			if c.Resource() == nil || selected[c.Resource()] {
				res.Wiring[req] = c
				break
			}
		}
	}
	return res
}

func compareResources(a, b *resource.Resource) int {
	ia, _ := a.Identity()
	ib, _ := b.Identity()
	return cmp.Or(
		strings.Compare(ia.Name, ib.Name),
		ia.Version.Compare(ib.Version),
		strings.Compare(a.String(), b.String()),
	)
}

func (s *state) unresolvedError() error {
	reqs := s.rc.Failed()
	if len(reqs) == 0 {
		reqs = s.missing
	}
	parts := make([]string, 0, len(reqs))
	for _, req := range reqs {
		owner := "<synthetic>"
		if req.Resource() != nil {
			owner = req.Resource().String()
		}
		parts = append(parts, owner+" -> "+req.String())
	}
	msg := "unresolved requirement"
	if len(parts) > 0 {
		msg = fmt.Sprintf("unresolved requirement: %s", strings.Join(parts, ", "))
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(msg)
}
