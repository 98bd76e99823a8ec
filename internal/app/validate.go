package app

import (
	"context"

	assert "github.com/ZanzyTHEbar/assert-lib"

	"capresolve/internal/policies"
)

// Validate checks that a run descriptor loads, that its requirement
// references build and that its policy compiles, without reading any
// repository.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	run, err := s.loadRun(req.RunPath)
	if err != nil {
		return ValidateResult{}, err
	}
	assert.NotEmpty(ctx, run.Name, "run name must be set")
	requires, err := requirementsOf("requires", run.Requires)
	if err != nil {
		return ValidateResult{}, err
	}
	if _, err := requirementsOf("blacklist", run.Blacklist); err != nil {
		return ValidateResult{}, err
	}
	if _, err := policies.NewIdentityPolicy(run.Policy); err != nil {
		return ValidateResult{}, err
	}
	return ValidateResult{
		Name:         run.Name,
		Requirements: len(requires),
		Repositories: len(run.Repositories),
		Workspace:    len(run.Workspace),
	}, nil
}
