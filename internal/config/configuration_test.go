package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/synbuild/internal/macro"
	"github.com/specialistvlad/synbuild/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitModule(name, relPath string) *model.Module {
	return model.NewModule(name, "master", relPath, model.GitURL, "https://github.com/org/", name, true, true, false)
}

func TestAddModule_ResolvesThroughRoots(t *testing.T) {
	// --- Arrange ---
	cfg := New("/x", "")

	// --- Act ---
	cfg.AddModule(gitModule("EPICS_BASE", "$(INSTALL)/base"))
	cfg.AddModule(gitModule("SUPPORT", "$(INSTALL)/support"))
	cfg.AddModule(gitModule("AREA_DETECTOR", "$(SUPPORT)/areaDetector"))
	cfg.AddModule(gitModule("ADCORE", "$(AREA_DETECTOR)/ADCore"))

	// --- Assert ---
	adcore, ok := cfg.Module("ADCORE")
	require.True(t, ok)
	assert.Equal(t, "/x/support/areaDetector/ADCore", adcore.AbsPath)
	assert.Equal(t, "/x/base", cfg.BasePath)
	assert.Equal(t, "/x/support", cfg.SupportPath)
	assert.Equal(t, "/x/support/areaDetector", cfg.AreaDetectorPath)
	assert.Empty(t, cfg.MotorPath)
	assert.Empty(t, cfg.Unresolved())
	assert.Equal(t, []string{"EPICS_BASE", "SUPPORT", "AREA_DETECTOR", "ADCORE"}, cfg.Names())
}

func TestAddModule_ArbitraryModuleMacro(t *testing.T) {
	cfg := New("/x", "")
	cfg.AddModule(gitModule("SUPPORT", "$(INSTALL)/support"))
	cfg.AddModule(gitModule("MOTOR", "$(SUPPORT)/motor"))
	cfg.AddModule(gitModule("QUADEM", "$(SUPPORT)/quadEM"))
	cfg.AddModule(gitModule("MOTOR_NEWPORT", "$(MOTOR)/modules/motorNewport"))
	cfg.AddModule(gitModule("QUADEM_IOC", "$(QUADEM)/iocBoot"))

	m, _ := cfg.Module("MOTOR_NEWPORT")
	assert.Equal(t, "/x/support/motor/modules/motorNewport", m.AbsPath)
	m, _ = cfg.Module("QUADEM_IOC")
	assert.Equal(t, "/x/support/quadEM/iocBoot", m.AbsPath)
	assert.Equal(t, "/x/support/motor", cfg.MotorPath)
}

func TestAddModule_ConcatenationLaw(t *testing.T) {
	cfg := New("/opt/epics", "")
	cfg.AddModule(gitModule("SUPPORT", "$(INSTALL)/support"))

	for _, rest := range []string{"/asyn", "/a/b/c", "", "-extra"} {
		res := cfg.ResolvePath("$(SUPPORT)" + rest)
		assert.Equal(t, macro.Resolved, res.Kind)
		assert.Equal(t, cfg.SupportPath+rest, res.Path)
	}
}

func TestAddModule_ForwardReferenceIsDeferred(t *testing.T) {
	cfg := New("/x", "")
	cfg.AddModule(gitModule("ADCORE", "$(AREA_DETECTOR)/ADCore"))
	cfg.AddModule(gitModule("SUPPORT", "$(INSTALL)/support"))
	cfg.AddModule(gitModule("AREA_DETECTOR", "$(SUPPORT)/areaDetector"))

	adcore, _ := cfg.Module("ADCORE")
	assert.Equal(t, "$(AREA_DETECTOR)/ADCore", adcore.AbsPath)
	assert.Equal(t, []string{"ADCORE"}, cfg.Unresolved())

	t.Run("deferred module is not used as a root", func(t *testing.T) {
		res := cfg.ResolvePath("$(ADCORE)/iocBoot")
		assert.Equal(t, macro.Deferred, res.Kind)
	})

	t.Run("finalize retries", func(t *testing.T) {
		assert.Empty(t, cfg.Finalize())
		assert.Equal(t, "/x/support/areaDetector/ADCore", adcore.AbsPath)
		assert.Equal(t, macro.Resolved, cfg.ResolvePath("$(ADCORE)/iocBoot").Kind)
	})
}

func TestAddModule_ReplacementClearsDeferral(t *testing.T) {
	// --- Arrange ---
	cfg := New("/x", "")
	cfg.AddModule(gitModule("FOO", "$(NOWHERE)/foo"))
	require.Equal(t, []string{"FOO"}, cfg.Unresolved())

	// --- Act ---
	cfg.AddModule(gitModule("FOO", "$(INSTALL)/foo"))
	cfg.AddModule(gitModule("BAR", "$(FOO)/bar"))

	// --- Assert ---
	assert.Empty(t, cfg.Unresolved())
	bar, _ := cfg.Module("BAR")
	assert.Equal(t, "/x/foo/bar", bar.AbsPath)
	assert.Equal(t, []string{"FOO", "BAR"}, cfg.Names())
}

func TestFinalize_ReportsUnknownMacros(t *testing.T) {
	cfg := New("/x", "")
	cfg.AddModule(gitModule("FOO", "$(NOWHERE)/foo"))
	cfg.AddModule(gitModule("BAR", "$(FOO)/bar"))

	assert.Equal(t, []string{"FOO", "BAR"}, cfg.Finalize())
}

func TestAddModule_LiteralPath(t *testing.T) {
	cfg := New("/x/", "")
	cfg.AddModule(gitModule("EPICS_BASE", "/opt/base"))

	assert.Equal(t, "/x", cfg.InstallRoot)
	assert.Equal(t, "/opt/base", cfg.BasePath)
}

func TestSwapAndIndex(t *testing.T) {
	cfg := New("/x", "")
	cfg.AddModule(gitModule("FOO", "$(INSTALL)/foo"))
	cfg.AddModule(gitModule("BAR", "$(INSTALL)/bar"))
	cfg.AddModule(gitModule("BAZ", "$(INSTALL)/baz"))

	require.NoError(t, cfg.Swap("FOO", "BAZ"))
	assert.Equal(t, []string{"BAZ", "BAR", "FOO"}, cfg.Names())
	assert.Equal(t, 0, cfg.Index("BAZ"))
	assert.Equal(t, 2, cfg.Index("FOO"))
	assert.Equal(t, -1, cfg.Index("QUX"))

	assert.Error(t, cfg.Swap("FOO", "QUX"))
	assert.Equal(t, []string{"BAZ", "BAR", "FOO"}, cfg.Names(), "failed swap leaves order untouched")
}

func TestBuildFlagsAndInjectors(t *testing.T) {
	cfg := New("/x", "")
	cfg.AddBuildFlags(
		model.BuildFlag{Macro: "JPEG_EXTERNAL", Value: "NO"},
		model.BuildFlag{Macro: "WITH_BOOST", Value: "NO"},
	)
	cfg.AddBuildFlags(model.BuildFlag{Macro: "JPEG_EXTERNAL", Value: "YES"})

	assert.Equal(t, []model.BuildFlag{
		{Macro: "JPEG_EXTERNAL", Value: "YES"},
		{Macro: "WITH_BOOST", Value: "NO"},
	}, cfg.BuildFlags)

	cfg.AddInjectorFile("PLUGIN_CONFIG", "startPVAServer\n", "$(AREA_DETECTOR)/ADCore/iocBoot/EXAMPLE_commonPlugins.cmd")
	require.Len(t, cfg.InjectorFiles, 1)
	assert.Equal(t, "PLUGIN_CONFIG", cfg.InjectorFiles[0].Name)
}

func TestBuildNamesAndCoreVersion(t *testing.T) {
	cfg := New("/x", "")
	assert.Empty(t, cfg.CoreVersion())

	cfg.AddModule(gitModule("SUPPORT", "$(INSTALL)/support"))
	skipped := gitModule("ADPILATUS", "$(SUPPORT)/ADPilatus")
	skipped.Build = false
	cfg.AddModule(skipped)
	core := model.NewModule("ADCORE", "R3-8", "$(SUPPORT)/ADCore", model.GitURL, "https://github.com/areaDetector/", "ADCore", true, true, true)
	cfg.AddModule(core)

	assert.Equal(t, []string{"SUPPORT", "ADCORE"}, cfg.BuildNames())
	assert.Equal(t, "R3-8", cfg.CoreVersion())
	assert.Len(t, cfg.Macros(), 3)
}

func TestValidateInstallRoot(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		cfg := New(t.TempDir(), "")
		assert.NoError(t, cfg.ValidateInstallRoot())
	})

	t.Run("missing root with existing parent", func(t *testing.T) {
		cfg := New(filepath.Join(t.TempDir(), "epics"), "")
		assert.NoError(t, cfg.ValidateInstallRoot())
	})

	t.Run("missing parent", func(t *testing.T) {
		cfg := New(filepath.Join(t.TempDir(), "a", "b", "epics"), "")
		assert.ErrorIs(t, cfg.ValidateInstallRoot(), ErrInstallRoot)
	})

	t.Run("root is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		cfg := New(file, "")
		assert.ErrorIs(t, cfg.ValidateInstallRoot(), ErrInstallRoot)
	})
}
