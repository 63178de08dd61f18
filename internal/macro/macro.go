// Package macro resolves path expressions of the form "$(NAME)/rest" into
// absolute paths.
//
// Resolution never fails loudly. An expression whose leading macro cannot be
// resolved yet is reported as Deferred, with the original expression kept as
// the path, so that callers can retry once more modules are known. Literal
// paths (no macro at all) are distinguished from resolved ones so the two
// cases no longer need to be told apart by sniffing the result string.
package macro

import "strings"

// Kind classifies the outcome of Resolve.
type Kind int

const (
	// Literal means the expression held no macro and was returned as is.
	Literal Kind = iota
	// Resolved means the leading macro was substituted.
	Resolved
	// Deferred means the expression contains a macro that could not be
	// substituted with the state known so far.
	Deferred
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Resolved:
		return "resolved"
	case Deferred:
		return "deferred"
	}
	return "unknown"
}

// Resolution is the result of resolving one expression.
type Resolution struct {
	Kind Kind
	// Path is the resolved path, or the original expression when Deferred.
	Path string
	// Macro is the leading macro name, empty for Literal.
	Macro string
}

// OK reports whether Path can be used as a filesystem path.
func (r Resolution) OK() bool {
	return r.Kind != Deferred
}

// Lookup returns the resolved path registered under name.
type Lookup func(name string) (string, bool)

// Resolve substitutes the leading $(NAME) token of expr using lookup. The
// remainder is appended verbatim, so for a resolvable expression
// Path == root + remainder.
func Resolve(expr string, lookup Lookup) Resolution {
	if !Contains(expr) {
		return Resolution{Kind: Literal, Path: expr}
	}

	name, rest, ok := Split(expr)
	if !ok {
		return Resolution{Kind: Deferred, Path: expr}
	}

	root, found := lookup(name)
	if !found || root == "" {
		return Resolution{Kind: Deferred, Path: expr, Macro: name}
	}
	return Resolution{Kind: Resolved, Path: root + rest, Macro: name}
}

// Split separates a leading "$(NAME)" token from the remainder. ok is false
// when expr does not start with a well formed token.
func Split(expr string) (name, rest string, ok bool) {
	if !strings.HasPrefix(expr, "$(") {
		return "", expr, false
	}
	end := strings.IndexByte(expr, ')')
	if end < 0 {
		return "", expr, false
	}
	name = expr[2:end]
	if name == "" {
		return "", expr, false
	}
	return name, expr[end+1:], true
}

// Contains reports whether s holds any macro token.
func Contains(s string) bool {
	return strings.Contains(s, "$(")
}

// Names returns every macro name referenced in s, in order of appearance.
func Names(s string) []string {
	var names []string
	for {
		start := strings.Index(s, "$(")
		if start < 0 {
			return names
		}
		end := strings.IndexByte(s[start:], ')')
		if end < 0 {
			return names
		}
		if name := s[start+2 : start+end]; name != "" {
			names = append(names, name)
		}
		s = s[start+end+1:]
	}
}
