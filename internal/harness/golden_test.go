package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capprobe/internal/capability"
	"github.com/roach88/capprobe/internal/registry"
	"github.com/roach88/capprobe/internal/testutil"
)

// assertGoldenReport runs catalog one probe at a time, so the report is
// deterministic, and compares it with testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func assertGoldenReport(t *testing.T, name, environment string, host capability.Resolver, catalog []registry.Descriptor) {
	t.Helper()

	buf := &bytes.Buffer{}
	_, err := Run(context.Background(), host, catalog,
		WithLogger(quietLogger()),
		WithOutput(buf),
		WithEnvironmentName(environment),
		WithMaxParallel(1),
	)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

func TestGolden_MixedCatalog(t *testing.T) {
	host := testutil.NewCountingResolver(testutil.Host(
		"cache.invalidate",
		"crypt.hash",
		"debug.getinfo",
		"identity.version",
	))

	catalog := []registry.Descriptor{
		{
			Name:     "cache.invalidate",
			Aliases:  []string{"cache_invalidate", "cache.flush"},
			Callback: testutil.Pass(""),
		},
		{
			Name:     "crypt.hash",
			Callback: testutil.Pass("sha256 only"),
		},
		{
			Name:         "debug.getinfo",
			Dependencies: []string{"debug.setinfo", "identity.version"},
			Callback:     testutil.Fail("not implemented"),
		},
		{
			Name:     "debug.setinfo",
			Callback: testutil.Pass(""),
		},
		{
			Name: "crypt.random",
		},
		{
			Name:     "identity.version",
			Callback: testutil.Panic("boom"),
		},
	}

	assertGoldenReport(t, "mixed_catalog", "golden-host", host, catalog)
}

func TestGolden_EmptyCatalog(t *testing.T) {
	assertGoldenReport(t, "empty_catalog", "empty-host", testutil.NewCountingResolver(testutil.Host()), nil)
}
