package manifest

import (
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/model"
)

const (
	baseOrg = "https://github.com/epics-base/"
	synOrg  = "https://github.com/EPICS-synApps/"
	modOrg  = "https://github.com/epics-modules/"
	adOrg   = "https://github.com/areaDetector/"
	seqRel  = "http://www-csr.bessy.de/control/SoftDist/sequencer/releases/"
	psiOrg  = "https://github.com/paulscherrerinstitute/"
)

type row struct {
	name, version, path string
	urlType             model.URLType
	url, repo           string
	clone, build, pkg   bool
}

var defaultRows = []row{
	{"EPICS_BASE", "R7.0.3", "$(INSTALL)/base", model.GitURL, baseOrg, "epics-base", true, true, true},
	{"SUPPORT", "R6-1", "$(INSTALL)/support", model.GitURL, synOrg, "support", true, true, false},
	{"CONFIGURE", "R6-1", "$(SUPPORT)/configure", model.GitURL, synOrg, "configure", true, true, false},
	{"UTILS", "R6-1", "$(SUPPORT)/utils", model.GitURL, synOrg, "utils", true, true, false},
	{"SNCSEQ", "2.2.8", "$(SUPPORT)/seq", model.WgetURL, seqRel, "seq-2.2.8.tar.gz", true, true, true},
	{"IPAC", "2.15", "$(SUPPORT)/ipac", model.GitURL, modOrg, "ipac", true, true, true},
	{"ASYN", "R4-37", "$(SUPPORT)/asyn", model.GitURL, modOrg, "asyn", true, true, true},
	{"AUTOSAVE", "R5-10", "$(SUPPORT)/autosave", model.GitURL, modOrg, "autosave", true, true, true},
	{"BUSY", "R1-7-2", "$(SUPPORT)/busy", model.GitURL, modOrg, "busy", true, true, true},
	{"CALC", "R3-7-3", "$(SUPPORT)/calc", model.GitURL, modOrg, "calc", true, true, true},
	{"DEVIOCSTATS", "master", "$(SUPPORT)/iocStats", model.GitURL, modOrg, "iocStats", true, true, true},
	{"SSCAN", "R2-11-3", "$(SUPPORT)/sscan", model.GitURL, modOrg, "sscan", true, true, true},
	{"IPUNIDIG", "R2-11", "$(SUPPORT)/ipUnidig", model.GitURL, modOrg, "ipUnidig", true, true, true},

	{"XSPRESS3", "master", "$(SUPPORT)/xspress3", model.GitURL, modOrg, "xspress3", true, true, true},
	{"MOTOR", "R7-1", "$(SUPPORT)/motor", model.GitURL, modOrg, "motor", true, true, true},
	{"QUADEM", "R9-3", "$(SUPPORT)/quadEM", model.GitURL, modOrg, "quadEM", true, true, true},
	{"STREAM", "2.8.10", "$(SUPPORT)/stream", model.GitURL, psiOrg, "StreamDevice", true, true, true},

	{"AREA_DETECTOR", "R3-8", "$(SUPPORT)/areaDetector", model.GitURL, adOrg, "areaDetector", true, true, false},
	{"ADSUPPORT", "R1-9", "$(AREA_DETECTOR)/ADSupport", model.GitURL, adOrg, "ADSupport", true, true, true},
	{"ADCORE", "R3-8", "$(AREA_DETECTOR)/ADCore", model.GitURL, adOrg, "ADCore", true, true, true},
	{"ADPERKINELMER", "master", "$(AREA_DETECTOR)/ADPerkinElmer", model.GitURL, adOrg, "ADPerkinElmer", false, false, false},
	{"ADGENICAM", "master", "$(AREA_DETECTOR)/ADGenICam", model.GitURL, adOrg, "ADGenICam", false, false, false},
	{"ADANDOR3", "master", "$(AREA_DETECTOR)/ADAndor3", model.GitURL, adOrg, "ADAndor3", false, false, false},
	{"ADPROSILICA", "R2-5", "$(AREA_DETECTOR)/ADProsilica", model.GitURL, adOrg, "ADProsilica", false, false, false},
	{"ADSIMDETECTOR", "R2-10", "$(AREA_DETECTOR)/ADSimDetector", model.GitURL, adOrg, "ADSimDetector", false, false, false},
	{"ADPILATUS", "R2-8", "$(AREA_DETECTOR)/ADPilatus", model.GitURL, adOrg, "ADPilatus", false, false, false},
	{"ADMERLIN", "master", "$(AREA_DETECTOR)/ADMerlin", model.GitURL, adOrg, "ADMerlin", false, false, false},
	{"ADARAVIS", "master", "$(AREA_DETECTOR)/ADAravis", model.GitURL, adOrg, "ADAravis", false, false, false},
	{"ADEIGER", "R2-6", "$(AREA_DETECTOR)/ADEiger", model.GitURL, adOrg, "ADEiger", false, false, false},
	{"ADVIMBA", "master", "$(AREA_DETECTOR)/ADVimba", model.GitURL, adOrg, "ADVimba", false, false, false},
	{"ADPOINTGREY", "master", "$(AREA_DETECTOR)/ADPointGrey", model.GitURL, adOrg, "ADPointGrey", false, false, false},
	{"ADANDOR", "R2-8", "$(AREA_DETECTOR)/ADAndor", model.GitURL, adOrg, "ADAndor", false, false, false},
	{"ADDEXELA", "R2-3", "$(AREA_DETECTOR)/ADDexela", model.GitURL, adOrg, "ADDexela", false, false, false},
	{"ADMYTHEN", "master", "$(AREA_DETECTOR)/ADMythen", model.GitURL, adOrg, "ADMythen", false, false, false},
	{"ADURL", "master", "$(AREA_DETECTOR)/ADURL", model.GitURL, adOrg, "ADURL", false, false, false},
}

// Default returns the stock EPICS base, synApps and areaDetector
// configuration rooted at installRoot. withPVA adds the pvAccess plugin to
// the injected IOC startup files.
func Default(installRoot string, withPVA bool) *config.Configuration {
	cfg := config.New(installRoot, "")
	for _, r := range defaultRows {
		cfg.AddModule(model.NewModule(r.name, r.version, r.path, r.urlType, r.url, r.repo, r.clone, r.build, r.pkg))
	}

	plugins := `dbLoadRecords("$(DEVIOCSTATS)/db/iocAdminSoft.db", "IOC=$(PREFIX)")` + "\n"
	autosave := `file "sseqRecord_settings.req",     P=$(P),  S=AcquireSequence` + "\n"
	if withPVA {
		autosave += `file "NDPva_settings.req", P=$(P), R=Pva1:` + "\n"
		plugins += `NDPvaConfigure("PVA1", $(QSIZE), 0, "$(PORT)", 0, $(PREFIX)Pva1:Image, 0, 0, 0)` + "\n" +
			`dbLoadRecords("NDPva.template",  "P=$(PREFIX),R=Pva1:, PORT=PVA1,ADDR=0,TIMEOUT=1,NDARRAY_PORT=$(PORT)")` + "\n" +
			"# Must start PVA server if this is enabled\n" +
			"startPVAServer\n"
	}
	cfg.AddInjectorFile("PLUGIN_CONFIG", plugins, "$(AREA_DETECTOR)/ADCore/iocBoot/EXAMPLE_commonPlugins.cmd")
	cfg.AddInjectorFile("AUTOSAVE_CONFIG", autosave, "$(AREA_DETECTOR)/ADCore/iocBoot/EXAMPLE_commonPlugin_settings.req")
	return cfg
}
