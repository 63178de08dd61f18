// Package tags moves module versions to the newest release tag published by
// their git remotes.
package tags

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/executor"
	"github.com/specialistvlad/synbuild/internal/model"
)

// Blacklist holds modules whose newest tags are known not to build with
// the rest of the stack.
var Blacklist = []string{"SSCAN", "CALC", "STREAM"}

// Lister returns the tag names published by a git remote.
type Lister interface {
	Tags(ctx context.Context, url string) ([]string, error)
}

// OutputRunner runs a command and captures its standard output.
type OutputRunner interface {
	Output(ctx context.Context, c executor.Command) ([]byte, int, error)
}

// GitLister lists tags with git ls-remote.
type GitLister struct {
	runner OutputRunner
}

// NewGitLister creates a lister spawning git through runner.
func NewGitLister(runner OutputRunner) *GitLister {
	return &GitLister{runner: runner}
}

// Tags implements Lister.
func (g *GitLister) Tags(ctx context.Context, url string) ([]string, error) {
	out, code, err := g.runner.Output(ctx, executor.Command{Name: "git", Args: []string{"ls-remote", "--tags", "--refs", url}})
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("git ls-remote %s exited with non-zero exit code: %d", url, code)
	}
	return ParseLsRemote(out), nil
}

// ParseLsRemote extracts tag names from git ls-remote output.
func ParseLsRemote(out []byte) []string {
	var tags []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		_, ref, ok := strings.Cut(sc.Text(), "\t")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(strings.TrimSpace(ref), "refs/tags/")
		if !ok {
			continue
		}
		tags = append(tags, strings.TrimSuffix(name, "^{}"))
	}
	return lo.Uniq(tags)
}

// Parse converts an EPICS style release tag into a semantic version. Dashes
// separate components when the tag has no dots, so R4-37 is 4.37 and
// R1-7-2 is 1.7.2.
func Parse(tag string) (*semver.Version, bool) {
	s := strings.TrimPrefix(strings.TrimPrefix(tag, "R"), "v")
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, "-", ".")
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, false
	}
	return v, true
}

func releaseTag(tag string) bool {
	return len(tag) > 1 && tag[0] == 'R' && isDigit(tag[1])
}

func numericTag(tag string) bool {
	return tag != "" && isDigit(tag[0])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Newest returns the highest stable version among the tags accepted by
// keep. Ties keep the lexically greater tag.
func Newest(tags []string, keep func(string) bool) (string, bool) {
	type candidate struct {
		tag string
		v   *semver.Version
	}
	var cands []candidate
	for _, t := range lo.Filter(tags, func(t string, _ int) bool { return keep(t) }) {
		v, ok := Parse(t)
		if !ok || v.Prerelease() != "" {
			continue
		}
		cands = append(cands, candidate{t, v})
	}
	if len(cands) == 0 {
		return "", false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if c := cands[i].v.Compare(cands[j].v); c != 0 {
			return c < 0
		}
		return cands[i].tag < cands[j].tag
	})
	return cands[len(cands)-1].tag, true
}

// Update records one version change made by Sync.
type Update struct {
	Module string
	From   string
	To     string
}

// Syncer updates module versions from remote tags.
type Syncer struct {
	lister Lister
}

// NewSyncer creates a syncer.
func NewSyncer(l Lister) *Syncer {
	return &Syncer{lister: l}
}

// Eligible reports whether Sync considers m at all: git modules pinned to
// a version and not blacklisted.
func Eligible(m *model.Module) bool {
	return m.IsGit() && m.Version != model.MasterVersion && !lo.Contains(Blacklist, m.Name)
}

// Sync moves every eligible module of cfg to its newest release tag. EPICS
// base only follows R7 tags. Remotes that cannot be listed are reported in
// the returned error and left unchanged.
func (s *Syncer) Sync(ctx context.Context, cfg *config.Configuration) ([]Update, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Please wait while tags are synced - this may take a while...")

	var (
		updates []Update
		errs    *multierror.Error
	)
	for _, m := range cfg.Modules() {
		if !Eligible(m) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return updates, err
		}
		tags, err := s.lister.Tags(ctx, m.SourceURL())
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", m.Name, err))
			continue
		}

		var (
			tag string
			ok  bool
		)
		if m.Name == model.Base {
			tag, ok = Newest(tags, func(t string) bool { return strings.HasPrefix(t, "R7") })
		} else if tag, ok = Newest(tags, releaseTag); !ok {
			tag, ok = Newest(tags, numericTag)
		}
		if !ok || tag == m.Version {
			continue
		}

		logger.Info(fmt.Sprintf("Updating %s from version %s to version %s", m.Name, m.Version, tag))
		updates = append(updates, Update{Module: m.Name, From: m.Version, To: tag})
		m.SetVersion(tag)
	}
	return updates, errs.ErrorOrNil()
}
