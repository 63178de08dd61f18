package model

// Well-known module names. Several layers give these modules special
// treatment: their paths are cached as roots, they are never built directly,
// or their failure aborts a run.
const (
	InstallMacro = "INSTALL"

	Base         = "EPICS_BASE"
	Support      = "SUPPORT"
	AreaDetector = "AREA_DETECTOR"
	Motor        = "MOTOR"

	ADSupport = "ADSUPPORT"
	ADCore    = "ADCORE"

	Configure     = "CONFIGURE"
	Utils         = "UTILS"
	Documentation = "DOCUMENTATION"

	Asyn   = "ASYN"
	SncSeq = "SNCSEQ"
)

// RequiredInPackage lists modules that every binary bundle must contain for
// an IOC to start. The manifest reader forces their Package flag on.
var RequiredInPackage = []string{
	Base, Asyn, "BUSY", ADCore, ADSupport, "CALC", SncSeq, "SSCAN", "DEVIOCSTATS", "AUTOSAVE",
}
