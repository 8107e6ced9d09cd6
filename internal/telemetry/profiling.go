package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig configures Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the Pyroscope server URL, e.g. "http://localhost:4040".
	Endpoint string

	// ProfileTypes lists what to collect; see ProfileTypeNames.
	ProfileTypes []string

	// Tags are attached to every profile next to "version".
	Tags map[string]string
}

// profileTypes maps config names to Pyroscope types. The rate enables the
// runtime sampling the type depends on.
var profileTypes = map[string]struct {
	kind pyroscope.ProfileType
	rate func()
}{
	"cpu":            {kind: pyroscope.ProfileCPU},
	"alloc_objects":  {kind: pyroscope.ProfileAllocObjects},
	"alloc_space":    {kind: pyroscope.ProfileAllocSpace},
	"inuse_objects":  {kind: pyroscope.ProfileInuseObjects},
	"inuse_space":    {kind: pyroscope.ProfileInuseSpace},
	"goroutines":     {kind: pyroscope.ProfileGoroutines},
	"mutex_count":    {kind: pyroscope.ProfileMutexCount, rate: enableMutexProfile},
	"mutex_duration": {kind: pyroscope.ProfileMutexDuration, rate: enableMutexProfile},
	"block_count":    {kind: pyroscope.ProfileBlockCount, rate: enableBlockProfile},
	"block_duration": {kind: pyroscope.ProfileBlockDuration, rate: enableBlockProfile},
}

// ProfileTypeNames are the accepted ProfileTypes values.
var ProfileTypeNames = []string{
	"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space",
	"goroutines", "mutex_count", "mutex_duration", "block_count", "block_duration",
}

func enableMutexProfile() { runtime.SetMutexProfileFraction(5) }
func enableBlockProfile() { runtime.SetBlockProfileRate(5) }

var profilingEnabled atomic.Bool

// InitProfiling starts the Pyroscope agent. The returned function stops it.
func InitProfiling(cfg ProfilingConfig) (func() error, error) {
	if !cfg.Enabled {
		profilingEnabled.Store(false)
		return func() error { return nil }, nil
	}

	kinds := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, ok := profileTypes[name]
		if !ok {
			return nil, fmt.Errorf("invalid profile type %q (valid: %v)", name, ProfileTypeNames)
		}
		if pt.rate != nil {
			pt.rate()
		}
		kinds = append(kinds, pt.kind)
	}

	tags := map[string]string{"version": cfg.ServiceVersion}
	for k, v := range cfg.Tags {
		tags[k] = v
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            tags,
		ProfileTypes:    kinds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	profilingEnabled.Store(true)

	return func() error {
		profilingEnabled.Store(false)
		return profiler.Stop()
	}, nil
}

// IsProfilingEnabled reports whether the profiler is running.
func IsProfilingEnabled() bool {
	return profilingEnabled.Load()
}

// ValidProfileType reports whether name is a known profile type.
func ValidProfileType(name string) bool {
	_, ok := profileTypes[name]
	return ok
}
