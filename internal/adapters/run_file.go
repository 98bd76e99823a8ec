package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"capresolve/internal/ports"
	"capresolve/internal/types"
)

// RunFileAdapter loads run descriptors. Relative repository and workspace
// paths are resolved against the directory of the descriptor.
type RunFileAdapter struct{}

func NewRunFileAdapter() RunFileAdapter {
	return RunFileAdapter{}
}

func (a RunFileAdapter) LoadRun(path string) (types.RunDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RunDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("run descriptor not found").
			WithCause(err)
	}
	var run types.RunDescriptor
	if err := yaml.Unmarshal(data, &run); err != nil {
		return types.RunDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse run descriptor yaml").
			WithCause(err)
	}
	if strings.TrimSpace(run.Name) == "" {
		run.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	base := filepath.Dir(path)
	run.Repositories = relativeTo(base, run.Repositories)
	run.Workspace = relativeTo(base, run.Workspace)
	return run, nil
}

func relativeTo(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}
	return out
}

var _ ports.RunDescriptorPort = RunFileAdapter{}
