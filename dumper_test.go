package dumper

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/zed-0xff/moddump/config"
	"github.com/zed-0xff/moddump/image"
	"github.com/zed-0xff/moddump/output"
)

var testNow = time.Date(2026, 10, 17, 13, 45, 0, 0, time.UTC)

func newTestDumper(t *testing.T, s Session) (*Dumper, afero.Fs, *Metrics) {
	t.Helper()
	fs := afero.NewMemMapFs()
	m := NewMetrics(prometheus.NewRegistry())
	d := NewDumper(s, output.NewWriter(fs, output.DefaultRoot),
		WithMetrics(m),
		WithClock(func() time.Time { return testNow }),
	)
	return d, fs, m
}

func TestRunNullModules(t *testing.T) {
	s := newFakeSession(0x1000, elfImage(0x3000),
		Region{Start: 0x1000, End: 0x4000, Path: "/lib/libexample.so"})
	d, fs, _ := newTestDumper(t, s)

	for _, cfg := range []*config.Config{
		{DumpModules: true, Modules: nil},
		{DumpModules: false, Modules: []string{"libexample.so"}},
	} {
		summary := d.Run(cfg)
		require.NoError(t, summary.Err())
		require.Empty(t, summary.Dumped)
		require.Empty(t, summary.Failed)
	}
	require.Empty(t, s.reads)

	exists, err := afero.DirExists(fs, output.DefaultRoot)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRunEndToEnd(t *testing.T) {
	img := elfImage(0x3000)
	s := newFakeSession(0x1000, img,
		Region{Start: 0x1000, End: 0x3000, Perms: "r-xp", Path: "/opt/game/libexample.so"},
		Region{Start: 0x3000, End: 0x4000, Perms: "rw-p", Path: "/opt/game/libexample.so"},
	)
	d, fs, m := newTestDumper(t, s)

	summary := d.Run(&config.Config{DumpModules: true, Modules: []string{"libexample.so"}})
	require.NoError(t, summary.Err())
	require.Equal(t, []readCall{{0x1000, 0x3000}}, s.reads)

	expected := filepath.FromSlash("output/modules/libexample/libexample_17_10_2026.so")
	require.Len(t, summary.Dumped, 1)
	require.Equal(t, expected, summary.Dumped[0].Path)
	require.Equal(t, uintptr(0x1000), summary.Dumped[0].Base)
	require.Equal(t, uintptr(0x3000), summary.Dumped[0].Size)

	data, err := afero.ReadFile(fs, expected)
	require.NoError(t, err)
	require.Equal(t, img, data)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Modules.WithLabelValues(resultDumped)))
	require.Equal(t, float64(0x3000), testutil.ToFloat64(m.CapturedBytes))

	// same day again: nothing is overwritten
	summary = d.Run(&config.Config{DumpModules: true, Modules: []string{"libexample.so"}})
	require.NoError(t, summary.Err())
	require.Empty(t, summary.Dumped)
	require.Len(t, summary.Skipped, 1)
	require.Equal(t, expected, summary.Skipped[0].Path)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Modules.WithLabelValues(resultSkipped)))
}

func TestRunMissingModuleDoesNotStopRun(t *testing.T) {
	s := newFakeSession(0x1000, elfImage(0x1000),
		Region{Start: 0x1000, End: 0x2000, Path: "/opt/game/libexample.so"})
	d, _, m := newTestDumper(t, s)

	summary := d.Run(&config.Config{DumpModules: true, Modules: []string{"libmissing.so", "libexample.so"}})
	require.Equal(t, []string{"libmissing.so"}, summary.Failed)
	require.Len(t, summary.Dumped, 1)
	require.Equal(t, "libexample.so", summary.Dumped[0].Module)

	require.Len(t, summary.Errors.Errors, 1)
	var stageErr *StageError
	require.True(t, errors.As(summary.Err(), &stageErr))
	require.Equal(t, StageLocate, stageErr.Stage)
	require.Equal(t, "libmissing.so", stageErr.Module)
	require.True(t, errors.Is(summary.Err(), ErrNotFound))

	require.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues(string(StageLocate))))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Modules.WithLabelValues(resultFailed)))
}

func TestDumpModuleStages(t *testing.T) {
	garbage := make([]byte, 0x1000)
	copy(garbage, "#!/bin/sh\n")

	testcases := []struct {
		name    string
		session *fakeSession
		stage   Stage
		cause   error
	}{
		{
			name:    "locate",
			session: newFakeSession(0x1000, elfImage(0x1000)),
			stage:   StageLocate,
			cause:   ErrNotFound,
		},
		{
			name: "capture",
			session: newFakeSession(0x1000, elfImage(0x1000),
				Region{Start: 0x1000, End: 0x3000, Path: "/lib/libexample.so"}),
			stage: StageCapture,
		},
		{
			name: "repair",
			session: newFakeSession(0x1000, garbage,
				Region{Start: 0x1000, End: 0x2000, Path: "/lib/libexample.so"}),
			stage: StageRepair,
			cause: image.ErrInvalidImage,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			d, _, _ := newTestDumper(t, tc.session)

			_, err := d.DumpModule("libexample.so")
			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr), "%v", err)
			require.Equal(t, tc.stage, stageErr.Stage)
			if tc.cause != nil {
				require.True(t, errors.Is(err, tc.cause), "%v", err)
			}
		})
	}
}

func TestDumpModuleWriteFailure(t *testing.T) {
	s := newFakeSession(0x1000, elfImage(0x1000),
		Region{Start: 0x1000, End: 0x2000, Path: "/lib/libexample.so"})
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	d := NewDumper(s, output.NewWriter(fs, output.DefaultRoot))

	_, err := d.DumpModule("libexample.so")
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	require.Equal(t, StageWrite, stageErr.Stage)
}

func TestDumpModulePEUsesBuildDate(t *testing.T) {
	const base = 0x7ff6a0000000
	// 2023-09-12 07:57:52 UTC
	s := newFakeSession(base, peImage(0x2000, 0x65001A00),
		Region{Start: base, End: base + 0x2000, Path: "client.dll"})
	d, fs, _ := newTestDumper(t, s)

	dump, err := d.DumpModule("client.dll")
	require.NoError(t, err)
	require.Equal(t, image.FormatPE, dump.Format)
	require.Equal(t, time.Date(2023, 9, 12, 0, 0, 0, 0, time.UTC), dump.Date)
	require.Equal(t, filepath.FromSlash("output/modules/client/client_12_09_2023.dll"), dump.Path)

	data, err := afero.ReadFile(fs, dump.Path)
	require.NoError(t, err)
	pe, err := image.ParsePE(data)
	require.NoError(t, err)
	require.Equal(t, uint64(base), pe.ImageBase())
	for _, section := range pe.Sections() {
		require.Equal(t, section.VirtualAddress(), section.PointerToRawData())
		require.Equal(t, section.VirtualSize(), section.SizeOfRawData())
	}
}
