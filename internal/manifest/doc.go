// Package manifest reads and writes the INSTALL_CONFIG configure directory:
// the module table itself plus the injectionFiles/, macroFiles/ and
// customBuildScripts/ directories next to it. It also exports a resolved
// configuration as a YAML build plan.
package manifest
