package model

// BuildFlag is a macro/value pair written into configure files of every
// module, independent of module paths.
type BuildFlag struct {
	Macro string
	Value string
}

// InjectorFile is a block of text appended to a generated configuration file
// once the update phase has run. Target is a path expression that may start
// with a macro.
type InjectorFile struct {
	Name     string
	Contents string
	Target   string
}
