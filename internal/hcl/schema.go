package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top-level blocks of one file.
type fileRoot struct {
	Install    string           `hcl:"install,optional"`
	Sources    []*sourceBlock   `hcl:"source,block"`
	BuildFlags []*buildFlag     `hcl:"build_flag,block"`
	Injectors  []*injectorBlock `hcl:"injector,block"`
	Remain     hcl.Body         `hcl:",remain"`
}

type sourceBlock struct {
	Type    string         `hcl:"type,label"`
	URL     string         `hcl:"url,label"`
	Modules []*moduleBlock `hcl:"module,block"`
}

// moduleBlock keeps the body undecoded so it can be evaluated once the
// modules declared before it are known.
type moduleBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type moduleAttrs struct {
	Version string `hcl:"version"`
	Path    string `hcl:"path"`
	Repo    string `hcl:"repo"`
	Clone   *bool  `hcl:"clone,optional"`
	Build   *bool  `hcl:"build,optional"`
	Package *bool  `hcl:"package,optional"`
}

type buildFlag struct {
	Name  string `hcl:"name,label"`
	Value string `hcl:"value"`
}

type injectorBlock struct {
	Name     string `hcl:"name,label"`
	Target   string `hcl:"target"`
	Contents string `hcl:"contents,optional"`
}
