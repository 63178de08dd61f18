// Package packager assembles a binary bundle of a finished install.
//
// A bundle is a gzip compressed tar archive named <prefix>_<date>.tar.gz.
// It holds a lean copy of EPICS base under base/ and of every packaged
// module under support/ (support/areaDetector/ for area detector modules):
// binaries and libraries for the target architectures, databases, headers,
// configure directories, boot scripts and screens. Sources are only
// included when Options.WithSources is set.
//
// Paths matching a .bundleignore file (gitignore syntax) in a module root or
// in the configure directory are left out.
package packager
