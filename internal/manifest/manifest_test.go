package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/model"
	"github.com/specialistvlad/synbuild/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const installConfig = `#
# INSTALL_CONFIG used by the loader tests
#

STRAY 1 $(INSTALL)/stray stray YES YES

INSTALL=%s/

GIT_URL=https://github.com/epics-base
EPICS_BASE      R7.0.3   $(INSTALL)/base        epics-base   YES  YES

GIT_URL=https://github.com/EPICS-synApps/
SUPPORT         R6-1     $(INSTALL)/support     support      YES  YES  NO
	CONFIGURE	R6-1	$(SUPPORT)/configure	configure	YES	YES

WGET_URL=http://www-csr.bessy.de/control/SoftDist/sequencer/releases/
SNCSEQ          2.2.8    $(SUPPORT)/seq         seq-$(VERSION).tar.gz YES YES NO

GIT_URL=https://github.com/epics-modules/
ASYN            R4-37    $(SUPPORT)/asyn        asyn         YES  YES  NO
QUADEM          R9-3     $(SUPPORT)/quadEM      quadEM       NO   NO   YES
BROKEN          R1-0     $(SUPPORT)/broken
`

func writeConfigure(t *testing.T, root string, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		FileName: strings.Replace(installConfig, "%s", root, 1),
	}
	for k, v := range extra {
		files[k] = v
	}
	testutil.WriteFiles(t, dir, files)
	return dir
}

func TestLoad(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	dir := writeConfigure(t, root, map[string]string{
		"injectionFiles/AD_RELEASE_CONFIG": "# saved\n__TARGET_LOC__=$(AREA_DETECTOR)/configure/RELEASE_PRODS.local\n\nFOO=1\nBAR=2\n",
		"macroFiles/BUILD_FLAG_CONFIG":     "# flags\n\nWITH_BOOST=NO\n  SSCAN_VERSION = x\nJUNK\n",
		"macroFiles/MORE":                  "WITH_BOOST=YES\n",
		"customBuildScripts/ASYN.sh":       "#!/bin/bash\n",
	})

	// --- Act ---
	cfg, err := NewLoader("").Load(ctx, dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, root, cfg.InstallRoot)
	assert.Equal(t, dir, cfg.ConfigureDir)
	assert.Equal(t, []string{"EPICS_BASE", "SUPPORT", "CONFIGURE", "SNCSEQ", "ASYN", "QUADEM"}, cfg.Names())

	base, _ := cfg.Module("EPICS_BASE")
	assert.Equal(t, "https://github.com/epics-base/", base.URL, "url gets a trailing slash")
	assert.Equal(t, filepath.Join(root, "base"), base.AbsPath)
	assert.True(t, base.Package, "required modules are always packaged")

	seq, _ := cfg.Module("SNCSEQ")
	assert.Equal(t, model.WgetURL, seq.URLType)
	assert.Equal(t, "seq-2.2.8.tar.gz", seq.Repository)
	assert.Equal(t, "seq-$(VERSION).tar.gz", seq.RelRepo)
	assert.True(t, seq.Package)

	conf, _ := cfg.Module("CONFIGURE")
	assert.Equal(t, filepath.Join(root, "support", "configure"), conf.AbsPath)
	assert.False(t, conf.Package)

	quadem, _ := cfg.Module("QUADEM")
	assert.False(t, quadem.Clone)
	assert.True(t, quadem.Package)

	asyn, _ := cfg.Module("ASYN")
	assert.True(t, asyn.Package)
	assert.Equal(t, filepath.Join(dir, ScriptDir, "ASYN.sh"), asyn.CustomBuildScript)

	assert.Equal(t, []model.InjectorFile{{
		Name:     "AD_RELEASE_CONFIG",
		Contents: "FOO=1\nBAR=2\n",
		Target:   "$(AREA_DETECTOR)/configure/RELEASE_PRODS.local",
	}}, cfg.InjectorFiles)

	assert.Equal(t, []model.BuildFlag{
		{Macro: "WITH_BOOST", Value: "YES"},
		{Macro: "SSCAN_VERSION ", Value: " x"},
	}, cfg.BuildFlags)
}

func TestLoad_DefaultsAndErrors(t *testing.T) {
	ctx, _ := testutil.Context(t)

	t.Run("default injectors", func(t *testing.T) {
		dir := writeConfigure(t, t.TempDir(), nil)
		cfg, err := NewLoader("").Load(ctx, filepath.Join(dir, FileName))
		require.NoError(t, err)
		assert.Equal(t, DefaultInjectors(), cfg.InjectorFiles)
		assert.Empty(t, cfg.BuildFlags)
	})

	t.Run("install override", func(t *testing.T) {
		override := t.TempDir()
		dir := writeConfigure(t, "/ignored", nil)
		cfg, err := NewLoader(override).Load(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, override, cfg.InstallRoot)
	})

	t.Run("missing configure dir", func(t *testing.T) {
		_, err := NewLoader("").Load(ctx, filepath.Join(t.TempDir(), "nope"))
		assert.ErrorIs(t, err, ErrConfigureNotFound)
	})

	t.Run("no INSTALL line", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFiles(t, dir, map[string]string{FileName: "ASYN R4-37 $(SUPPORT)/asyn asyn YES YES\n"})
		_, err := NewLoader("").Load(ctx, dir)
		assert.ErrorIs(t, err, ErrNoInstall)
	})
}

func TestParseModuleLine(t *testing.T) {
	m, ok := ParseModuleLine("ADSIMDETECTOR  R2-10\t$(AREA_DETECTOR)/ADSimDetector ADSimDetector NO NO", "https://github.com/areaDetector/", model.GitURL)
	require.True(t, ok)
	assert.Equal(t, "ADSIMDETECTOR", m.Name)
	assert.Equal(t, "R2-10", m.Version)
	assert.Equal(t, "$(AREA_DETECTOR)/ADSimDetector", m.RelPath)
	assert.False(t, m.Clone)
	assert.False(t, m.Package)

	_, ok = ParseModuleLine("ASYN R4-37 $(SUPPORT)/asyn asyn YES", "", model.GitURL)
	assert.False(t, ok)
}

func TestWriter_RoundTrip(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	src := Default(t.TempDir(), false)
	src.AddBuildFlags(model.BuildFlag{Macro: "WITH_BOOST", Value: "YES"})
	script := filepath.Join(t.TempDir(), "ADCORE_build.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/bash\nmake\n"), 0o755))
	adcore, _ := src.Module("ADCORE")
	adcore.CustomBuildScript = script
	adcore.AddDependency("ADSUPPORT")

	dir := filepath.Join(t.TempDir(), "saved")

	// --- Act ---
	require.NoError(t, NewWriter(src).Write(ctx, dir, false))
	got, err := NewLoader("").Load(ctx, dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, src.InstallRoot, got.InstallRoot)
	assert.Equal(t, src.BuildFlags, got.BuildFlags)
	assert.ElementsMatch(t, src.InjectorFiles, got.InjectorFiles)

	type row struct {
		Name, Version, RelPath, URL, RelRepo string
		URLType                              model.URLType
		Clone, Build, Package                bool
	}
	rows := func(cfg *config.Configuration) []row {
		var out []row
		for _, m := range cfg.Modules() {
			out = append(out, row{m.Name, m.Version, m.RelPath, m.URL, m.RelRepo, m.URLType, m.Clone, m.Build, m.Package})
		}
		return out
	}
	if diff := cmp.Diff(rows(src), rows(got)); diff != "" {
		t.Errorf("modules differ after round trip (-want +got):\n%s", diff)
	}

	gotCore, _ := got.Module("ADCORE")
	assert.Equal(t, filepath.Join(dir, ScriptDir, "ADCORE_build.sh"), gotCore.CustomBuildScript)
	assert.Empty(t, gotCore.Dependencies, "dependencies are not persisted")

	t.Run("url type change on the same url", func(t *testing.T) {
		cfg := config.New(t.TempDir(), "")
		cfg.AddModule(model.NewModule("GITMOD", "master", "$(INSTALL)/gitmod", model.GitURL, "http://h/", "gitmod", true, true, false))
		cfg.AddModule(model.NewModule("ARCHIVE", "R1-0", "$(INSTALL)/archive", model.WgetURL, "http://h/", "archive-$(VERSION).tar.gz", true, true, false))
		out := filepath.Join(t.TempDir(), "saved")

		require.NoError(t, NewWriter(cfg).Write(ctx, out, false))
		reloaded, err := NewLoader("").Load(ctx, out)

		require.NoError(t, err)
		if diff := cmp.Diff(rows(cfg), rows(reloaded)); diff != "" {
			t.Errorf("modules differ after round trip (-want +got):\n%s", diff)
		}
		archive, _ := reloaded.Module("ARCHIVE")
		assert.Equal(t, model.WgetURL, archive.URLType)
	})

	t.Run("overwrite replaces injector files", func(t *testing.T) {
		src.InjectorFiles = src.InjectorFiles[:1]
		require.NoError(t, NewWriter(src).Write(ctx, dir, true))
		entries, err := os.ReadDir(filepath.Join(dir, InjectionDir))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestWriter_ManifestLayout(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := config.New(t.TempDir(), "")
	cfg.AddModule(model.NewModule("EPICS_BASE", "R7.0.3", "$(INSTALL)/base", model.GitURL, "https://github.com/epics-base/", "epics-base", true, true, true))
	cfg.AddModule(model.NewModule("SUPPORT", "R6-1", "$(INSTALL)/support", model.GitURL, "https://github.com/epics-base/", "support", true, false, false))
	dir := t.TempDir()

	require.NoError(t, NewWriter(cfg).Write(ctx, dir, false))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "INSTALL="+cfg.InstallRoot+"\n")
	assert.Equal(t, 1, strings.Count(text, "GIT_URL=https://github.com/epics-base/"), "url header only when the url changes")

	var rows []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "EPICS_BASE ") || strings.HasPrefix(line, "SUPPORT ") {
			rows = append(rows, line)
		}
	}
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"EPICS_BASE", "R7.0.3", "$(INSTALL)/base", "epics-base", "YES", "YES", "YES"}, strings.Fields(rows[0]))
	assert.Equal(t, []string{"SUPPORT", "R6-1", "$(INSTALL)/support", "support", "YES", "NO", "NO"}, strings.Fields(rows[1]))
	for _, r := range rows {
		assert.Equal(t, "R", r[17:18], "version column starts at a fixed offset")
		assert.Equal(t, "$", r[38:39], "path column starts at a fixed offset")
	}
}

func TestDefault(t *testing.T) {
	root := t.TempDir()
	cfg := Default(root, true)

	assert.Empty(t, cfg.Unresolved())
	assert.Equal(t, filepath.Join(root, "support", "areaDetector"), cfg.AreaDetectorPath)
	assert.Len(t, cfg.InjectorFiles, 2)
	assert.Contains(t, cfg.InjectorFiles[0].Contents, "startPVAServer")

	seq, ok := cfg.Module("SNCSEQ")
	require.True(t, ok)
	assert.Equal(t, model.WgetURL, seq.URLType)
	assert.Equal(t, "http://www-csr.bessy.de/control/SoftDist/sequencer/releases/seq-2.2.8.tar.gz", seq.SourceURL())

	sim, _ := cfg.Module("ADSIMDETECTOR")
	assert.False(t, sim.Clone)
	assert.Equal(t, filepath.Join(root, "support", "areaDetector", "ADSimDetector"), sim.AbsPath)

	noPVA := Default(root, false)
	assert.NotContains(t, noPVA.InjectorFiles[0].Contents, "PVA")
}

func TestWritePlan(t *testing.T) {
	root := t.TempDir()
	cfg := config.New(root, "")
	cfg.AddModule(model.NewModule("EPICS_BASE", "R7.0.3", "$(INSTALL)/base", model.GitURL, "https://github.com/epics-base/", "epics-base", true, true, true))
	asyn := model.NewModule("ASYN", "R4-37", "$(SUPPORT)/asyn", model.GitURL, "https://github.com/epics-modules/", "asyn", true, true, true)
	asyn.AddDependency("EPICS_BASE")
	cfg.AddModule(asyn)
	cfg.AddBuildFlags(model.BuildFlag{Macro: "WITH_BOOST", Value: "NO"})

	var buf bytes.Buffer
	require.NoError(t, WritePlan(&buf, cfg))

	var plan Plan
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &plan))
	assert.Equal(t, root, plan.InstallRoot)
	require.Len(t, plan.Modules, 2)
	assert.Equal(t, "EPICS_BASE", plan.Modules[0].Name)
	assert.Equal(t, filepath.Join(root, "base"), plan.Modules[0].Path)
	assert.Equal(t, []string{"EPICS_BASE"}, plan.Modules[1].Dependencies)
	assert.Equal(t, "$(SUPPORT)/asyn", plan.Modules[1].Path)
	assert.Equal(t, []string{"ASYN"}, plan.Unresolved)
	assert.Equal(t, map[string]string{"WITH_BOOST": "NO"}, plan.BuildFlags)
	assert.Contains(t, buf.String(), "source: https://github.com/epics-modules/asyn\n")
}
