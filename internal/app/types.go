package app

import "capresolve/internal/types"

type ValidateRequest struct {
	RunPath string
}

type ValidateResult struct {
	Name         string
	Requirements int
	Repositories int
	Workspace    int
}

// ResolveRequest names a run descriptor plus overrides. Repositories and
// Workspace are appended to the descriptor's lists; Preferences and
// Effective replace the descriptor's values when set.
type ResolveRequest struct {
	RunPath      string
	Repositories []string
	Workspace    []string
	Preferences  []string
	Effective    string
	Singleton    bool
	LockFile     string
	OutputDir    string
}

type ResolveResult struct {
	Name       string
	ResolvedAt string
	Resources  []types.ResolvedResource
	Wiring     []types.WireRecord
	OutputDir  string
}

// Report is the on-disk form of the result.
func (r ResolveResult) Report() types.ResolutionReport {
	return types.ResolutionReport{
		Name:       r.Name,
		ResolvedAt: r.ResolvedAt,
		Resources:  r.Resources,
		Wiring:     r.Wiring,
	}
}

// ProvidersRequest evaluates one requirement. RunPath is optional when
// Repositories or Workspace name at least one source.
type ProvidersRequest struct {
	RunPath      string
	Repositories []string
	Workspace    []string
	Requirement  types.RequirementRef
}

type Provider struct {
	Resource   string
	Capability string
}

type ProvidersResult struct {
	Requirement string
	Providers   []Provider
}

type EvalRequest struct {
	Filter     string
	Attributes []string
}

type EvalResult struct {
	Match      bool
	Normalized string
	Query      string
}
