package packager

import (
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/synbuild/internal/model"
)

func heading(sb *strings.Builder, text string) {
	bar := strings.Repeat("#", 64)
	blank := "#" + strings.Repeat(" ", 62) + "#"
	fmt.Fprintf(sb, "%s\n%s\n# %-61s#\n%s\n%s\n\n", bar, blank, text, blank, bar)
}

// readme lists what went into the bundle.
func (p *Packager) readme(name string, modules []*model.Module, failed []string) string {
	var sb strings.Builder
	kind := "Bundle"
	if p.opts.WithSources {
		kind = "Source Package"
	}
	heading(&sb, fmt.Sprintf("%s - %s", kind, name))
	fmt.Fprintf(&sb, "Package generated using synbuild on %s\n", p.opts.Now().Format(time.DateTime))
	if p.cfg.ConfigureDir != "" {
		fmt.Fprintf(&sb, "Configuration directory: %s\n", p.cfg.ConfigureDir)
	}
	fmt.Fprintf(&sb, "Architectures: %s\n", strings.Join(p.opts.Arches, ", "))

	sb.WriteString("\nModule versions used in this deployment:\n")
	sb.WriteString("[module name] - [git tag]\n\n")
	for _, m := range modules {
		fmt.Fprintf(&sb, "%s - %s\n", m.Name, m.Version)
	}
	if len(failed) > 0 {
		sb.WriteString("\nThe following modules failed to build and were left out:\n\n")
		for _, name := range failed {
			fmt.Fprintf(&sb, "%s\n", name)
		}
	}
	return sb.String()
}
