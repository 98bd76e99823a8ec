package app

import (
	"context"
	"time"

	"capresolve/internal/adapters"
	"capresolve/internal/metrics"
	"capresolve/internal/ports"
)

type Service struct {
	RunLoader      ports.RunDescriptorPort
	LoadRepository func(path string) (ports.Repository, error)
	LoadWorkspace  func(ctx context.Context, roots []string) (ports.Repository, error)
	OutputReader   ports.OutputReaderPort
	NewOutput      func(dir string) ports.OutputPort
	Cache          *adapters.ResourceCache
	Metrics        *metrics.Recorder
	Clock          func() time.Time
}

func NewService() Service {
	rec := metrics.New()
	cache := adapters.NewResourceCache(rec)
	return Service{
		RunLoader:      adapters.NewRunFileAdapter(),
		LoadRepository: loadRepositoryIndex,
		LoadWorkspace: func(ctx context.Context, roots []string) (ports.Repository, error) {
			ws := adapters.NewWorkspaceAdapter(cache, roots...)
			if err := ws.Load(ctx); err != nil {
				return nil, err
			}
			return ws, nil
		},
		OutputReader: adapters.NewOutputReaderAdapter(),
		NewOutput: func(dir string) ports.OutputPort {
			return adapters.NewOutputFileAdapter(dir)
		},
		Cache:   cache,
		Metrics: rec,
		Clock:   time.Now,
	}
}

// loadRepositoryIndex reads the index eagerly so a missing or malformed
// file fails the command instead of turning into empty provider lists.
func loadRepositoryIndex(path string) (ports.Repository, error) {
	repo := adapters.NewRepoIndexFileAdapter(path)
	if err := repo.Load(); err != nil {
		return nil, err
	}
	return repo, nil
}
