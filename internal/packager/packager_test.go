package packager

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/model"
	"github.com/specialistvlad/synbuild/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }

func fixture(t *testing.T) *config.Configuration {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"base/bin/linux-x86_64/softIoc":                             "elf",
		"base/lib/linux-x86_64/libCom.so":                           "so",
		"base/src/libCom/x.c":                                       "int x;",
		"base/configure/CONFIG":                                     "# config",
		"base/db/softIoc.db":                                        "record",
		"support/configure/RELEASE":                                 "SUPPORT=/x",
		"support/asyn/.bundleignore":                                "*.a\n",
		"support/asyn/lib/linux-x86_64/libasyn.a":                   "static",
		"support/asyn/lib/linux-x86_64/libasyn.so":                  "shared",
		"support/asyn/db/asynRecord.db":                             "record",
		"support/asyn/include/asynDriver.h":                         "#pragma once",
		"support/asyn/asynApp/Db/asynGpib.db":                       "record",
		"support/asyn/asynApp/src/asynDriver.c":                     "int y;",
		"support/asyn/testAsynApp/Db/test.db":                       "record",
		"support/asyn/iocs/asynIOC/iocBoot/st.cmd":                  "dbLoadRecords",
		"support/asyn/iocs/asynIOC/src/main.c":                      "int main;",
		"support/areaDetector/ADCore/lib/linux-x86_64/libADBase.so": "so",
		"support/calc/db/calc.db":                                   "record",
		"support/extra/db/extra.db":                                 "record",
	})

	cfg := config.New(root, "")
	add := func(name, version, rel string, build, pkg bool) {
		cfg.AddModule(model.NewModule(name, version, rel, model.GitURL, "https://github.com/org/", name, true, build, pkg))
	}
	add(model.Base, "R7.0.3", "$(INSTALL)/base", true, true)
	add(model.Support, "master", "$(INSTALL)/support", true, false)
	add(model.Asyn, "R4-38", "$(SUPPORT)/asyn", true, true)
	add(model.AreaDetector, "master", "$(SUPPORT)/areaDetector", true, false)
	add(model.ADCore, "R3-9", "$(AREA_DETECTOR)/ADCore", true, true)
	add("CALC", "R3-7-3", "$(SUPPORT)/calc", true, true)
	add("EXTRA", "master", "$(SUPPORT)/extra", true, false)
	return cfg
}

func readBundle(t *testing.T, file string) map[string]string {
	t.Helper()
	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	out := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		_, dup := out[hdr.Name]
		require.False(t, dup, "duplicate entry %s", hdr.Name)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = string(body)
	}
	return out
}

func TestSelect(t *testing.T) {
	cfg := fixture(t)

	p := New(cfg, Options{Arches: []string{"linux-x86_64"}})
	names := func(ms []*model.Module) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.Name)
		}
		return out
	}
	assert.Equal(t, []string{"EPICS_BASE", "ASYN", "ADCORE", "CALC"}, names(p.Select(nil)))
	assert.Equal(t, []string{"EPICS_BASE", "ASYN", "ADCORE"}, names(p.Select([]string{"CALC"})), "failed builds are demoted")

	p = New(cfg, Options{WithSources: true})
	assert.Contains(t, names(p.Select(nil)), "EXTRA")
}

func TestBundleName(t *testing.T) {
	out := t.TempDir()
	p := New(fixture(t), Options{OutputDir: out, Prefix: "TEST", Now: fixedNow})
	assert.Equal(t, "TEST_2026-10-15", p.BundleName())

	require.NoError(t, os.WriteFile(filepath.Join(out, "TEST_2026-10-15.tar.gz"), nil, 0o644))
	assert.Equal(t, "TEST_2026-10-15_(1)", p.BundleName())
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, []string{"windows-x64-static"}, DefaultArches("windows"))
	assert.Equal(t, []string{"linux-x86_64", "linux-x86_64-debug"}, DefaultArches("linux"))
	assert.Equal(t, "EPICS_Prod_Bundle_linux-x86_64", DefaultPrefix(false, "linux-x86_64"))
	assert.Equal(t, "EPICS_Debug_Bundle_linux-x86_64", DefaultPrefix(true, "linux-x86_64"))
}

func TestPackage_LeanBundle(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	cfg := fixture(t)
	out := filepath.Join(t.TempDir(), "DEPLOYMENTS")
	p := New(cfg, Options{OutputDir: out, Prefix: "TEST", Arches: []string{"linux-x86_64"}, Now: fixedNow})

	// --- Act ---
	bundle, err := p.Package(ctx, []string{"CALC"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "TEST_2026-10-15", bundle.Name)
	assert.Equal(t, filepath.Join(out, "TEST_2026-10-15.tar.gz"), bundle.Path)
	assert.Equal(t, []string{"EPICS_BASE", "ASYN", "ADCORE"}, bundle.Modules)
	assert.FileExists(t, filepath.Join(out, "cleanup.sh"))

	entries := readBundle(t, bundle.Path)
	top := "TEST_2026-10-15/"
	for _, want := range []string{
		"base/bin/linux-x86_64/softIoc",
		"base/lib/linux-x86_64/libCom.so",
		"base/configure/CONFIG",
		"base/db/softIoc.db",
		"support/asyn/lib/linux-x86_64/libasyn.so",
		"support/asyn/db/asynRecord.db",
		"support/asyn/include/asynDriver.h",
		"support/asyn/asynApp/Db/asynGpib.db",
		"support/asyn/iocs/asynIOC/iocBoot/st.cmd",
		"support/areaDetector/ADCore/lib/linux-x86_64/libADBase.so",
		"README",
	} {
		assert.Contains(t, entries, top+want)
	}
	for _, unwanted := range []string{
		"base/src/libCom/x.c",
		"support/asyn/lib/linux-x86_64/libasyn.a",
		"support/asyn/.bundleignore",
		"support/asyn/asynApp/src/asynDriver.c",
		"support/asyn/testAsynApp/Db/test.db",
		"support/asyn/iocs/asynIOC/src/main.c",
		"support/calc/db/calc.db",
		"support/extra/db/extra.db",
		"support/configure/RELEASE",
	} {
		assert.NotContains(t, entries, top+unwanted)
	}
	assert.Contains(t, entries, top+"support/asyn/", "parent directories get their own entries")
	assert.Equal(t, "elf", entries[top+"base/bin/linux-x86_64/softIoc"])

	readme := entries[top+"README"]
	assert.Contains(t, readme, "# Bundle - TEST_2026-10-15")
	assert.Contains(t, readme, "ASYN - R4-38\n")
	assert.Contains(t, readme, "failed to build and were left out:\n\nCALC\n")
}

func TestPackage_WithSources(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := fixture(t)
	out := t.TempDir()
	p := New(cfg, Options{OutputDir: out, Prefix: "SRC", Arches: []string{"linux-x86_64"}, WithSources: true, Now: fixedNow})

	bundle, err := p.Package(ctx, nil)
	require.NoError(t, err)

	entries := readBundle(t, bundle.Path)
	assert.Contains(t, entries, "SRC_2026-10-15/base/src/libCom/x.c")
	assert.Contains(t, entries, "SRC_2026-10-15/support/asyn/asynApp/src/asynDriver.c")
	assert.Contains(t, entries, "SRC_2026-10-15/support/configure/RELEASE")
	assert.Contains(t, entries, "SRC_2026-10-15/support/extra/db/extra.db")
	assert.NotContains(t, entries, "SRC_2026-10-15/support/asyn/lib/linux-x86_64/libasyn.a")
	assert.Contains(t, entries["SRC_2026-10-15/README"], "# Source Package - SRC_2026-10-15")
}

func TestPackage_GlobalIgnoreAndCancel(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := fixture(t)
	cfg.ConfigureDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ConfigureDir, IgnoreFile), []byte("db/\n"), 0o644))

	p := New(cfg, Options{OutputDir: t.TempDir(), Prefix: "IGN", Arches: []string{"linux-x86_64"}, Now: fixedNow})
	bundle, err := p.Package(ctx, nil)
	require.NoError(t, err)
	entries := readBundle(t, bundle.Path)
	assert.NotContains(t, entries, "IGN_2026-10-15/base/db/softIoc.db")
	assert.Contains(t, entries, "IGN_2026-10-15/base/bin/linux-x86_64/softIoc")

	t.Run("cancelled run leaves no archive", func(t *testing.T) {
		out := t.TempDir()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := New(cfg, Options{OutputDir: out, Prefix: "C", Now: fixedNow}).Package(cctx, nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.NoFileExists(t, filepath.Join(out, "C_2026-10-15.tar.gz"))
	})
}
