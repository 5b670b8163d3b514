package profiling

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/umstimetable/timetable-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileTypes_Default(t *testing.T) {
	got, err := parseProfileTypes("")
	require.NoError(t, err)
	assert.Equal(t, defaultProfileTypes, got)
}

func TestParseProfileTypes_Custom(t *testing.T) {
	got, err := parseProfileTypes("cpu, alloc_space,mutex")
	require.NoError(t, err)

	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
	}, got)
}

func TestParseProfileTypes_Invalid(t *testing.T) {
	_, err := parseProfileTypes("cpu,unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported O11Y_PROFILING_SAMPLE_TYPES")
}

func TestBuildApplicationName(t *testing.T) {
	obs := config.ObservabilityConfig{
		ServiceName:       "timetable-api",
		ServiceNamespace:  "timetable",
		ServiceVersion:    "1.2.0",
		ServiceInstanceID: "pod-1",
	}
	got := buildApplicationName("", obs, "production")
	assert.Equal(t, "timetable-api{service_name=timetable-api,namespace=timetable,environment=production,service_version=1.2.0,instance=pod-1}", got)
}

func TestBuildApplicationName_NoInstance(t *testing.T) {
	obs := config.ObservabilityConfig{ServiceName: "svc", ServiceNamespace: "ns", ServiceVersion: "1"}
	got := buildApplicationName("custom", obs, "dev")
	assert.Equal(t, "custom{service_name=svc,namespace=ns,environment=dev,service_version=1}", got)
}

func TestInitProfiler_Disabled(t *testing.T) {
	stop, err := InitProfiler(config.ProfilingConfig{}, config.ObservabilityConfig{}, "test")
	require.NoError(t, err)
	assert.NotPanics(t, stop)
}

func TestInitProfiler_MissingEndpoint(t *testing.T) {
	_, err := InitProfiler(config.ProfilingConfig{Enabled: true, Endpoint: "  "}, config.ObservabilityConfig{}, "test")
	assert.Error(t, err)
}
