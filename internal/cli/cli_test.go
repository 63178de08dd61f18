package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/specialistvlad/synbuild/internal/app"
	"github.com/specialistvlad/synbuild/internal/build"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, exit, err := Parse(nil, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, DefaultConfigure, cfg.ConfigurePath)
	assert.Equal(t, app.AllPhases, cfg.Phases)
	assert.Equal(t, build.Options{Jobs: 1}, cfg.Build)
	assert.Equal(t, "DEPLOYMENTS", cfg.OutputDir)
	assert.Equal(t, app.Logging{Format: "text"}, cfg.Logging)
}

func TestParse_AllFlags(t *testing.T) {
	// --- Arrange ---
	args := []string{
		"-i", "/opt/epics", "-t", "8", "-s", "-j", "3", "-p",
		"-debug", "-timestamps", "-log-format", "JSON",
		"-phases", "clone,package", "-plan", "plan.yaml", "-output", "out",
		"-with-sources", "-sync-tags", "-dependency-script", "deps.sh",
		"-allow-illegal", "-timeout", "90s",
		"my-configure",
	}

	// --- Act ---
	cfg, exit, err := Parse(args, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, &app.Config{
		ConfigurePath:    "my-configure",
		InstallOverride:  "/opt/epics",
		Phases:           app.Phases{Clone: true, Package: true},
		Build:            build.Options{Threads: 8, SingleThread: true, Jobs: 3},
		SyncTags:         true,
		DependencyScript: "deps.sh",
		AllowIllegal:     true,
		PlanPath:         "plan.yaml",
		OutputDir:        "out",
		WithSources:      true,
		CommandTimeout:   90 * time.Second,
		Logging:          app.Logging{Debug: true, PrintCommands: true, WithTimestamps: true, Format: "json"},
	}, cfg)
}

func TestParse_ConfigureFlagWinsOverArgument(t *testing.T) {
	cfg, _, err := Parse([]string{"-c", "from-flag", "from-arg"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.ConfigurePath)

	cfg, _, err = Parse([]string{"-init", "-configure", "new"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, cfg.Init)
	assert.Equal(t, "new", cfg.ConfigurePath)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown flag", args: []string{"-nope"}, wantMsg: "flag provided but not defined: -nope"},
		{name: "bad log format", args: []string{"-log-format", "xml"}, wantMsg: "invalid log format"},
		{name: "bad phase", args: []string{"-phases", "clone,deploy"}, wantMsg: `invalid phases: unknown phase "deploy"`},
		{name: "negative threads", args: []string{"-t", "-1"}, wantMsg: "invalid thread count"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "-sync-tags")
}
