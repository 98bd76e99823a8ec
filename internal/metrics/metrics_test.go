package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.FindProviders("osgi.wiring.package", 2)
	r.FindProviders("osgi.wiring.package", 0)
	r.CandidatesDropped(DropBlacklist, 3)
	r.CandidatesDropped(DropHook, 0)
	r.CacheResult(CacheHit)
	r.CacheResult(CacheHit)
	r.SolveFinished(50*time.Millisecond, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.findProviders.WithLabelValues("osgi.wiring.package")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.findProvidersEmpty.WithLabelValues("osgi.wiring.package")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.candidatesDropped.WithLabelValues(DropBlacklist)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.candidatesDropped.WithLabelValues(DropHook)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.resourceCache.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.unresolved))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.FindProviders("ns", 0)
	r.CandidatesDropped(DropFilter, 1)
	r.CacheResult(CacheMiss)
	r.SolveFinished(time.Second, 0)
	assert.Nil(t, r.Registry())
	require.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.FindProviders("osgi.identity", 1)
	path := filepath.Join(t.TempDir(), "capresolve.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `capresolve_find_providers_total{namespace="osgi.identity"} 1`)
}
