// Package rules implements conditional applicability gates for libraries,
// arguments and whole manifests. A rule list is evaluated in declaration
// order with last-match-wins semantics: an empty list always allows, a
// non-empty list with no matching rule disallows.
package rules

import (
	"regexp"
	"runtime"
)

// Action is the outcome of a rule or of evaluating a rule list.
type Action string

const (
	Allow    Action = "allow"
	Disallow Action = "disallow"
)

// FeatureSet is the caller-supplied set of named feature flags describing the
// current run (demo mode, custom resolution, quick play and the like).
type FeatureSet map[string]bool

// OSRestriction constrains a rule to a platform. Absent fields do not
// constrain. Version is a regular expression matched against the platform's
// version string.
type OSRestriction struct {
	Name    string `json:"name,omitempty"`
	Arch    string `json:"arch,omitempty"`
	Version string `json:"version,omitempty"`
}

// Matches reports whether the restriction covers the given platform. An
// unparsable version pattern never matches.
func (o OSRestriction) Matches(os OSInfo) bool {
	if o.Name != "" && o.Name != os.Name {
		return false
	}
	if o.Arch != "" && o.Arch != os.Arch {
		return false
	}
	if o.Version != "" {
		re, err := regexp.Compile(o.Version)
		if err != nil || !re.MatchString(os.Version) {
			return false
		}
	}
	return true
}

// Rule is a single allow/disallow gate. It matches when its OS restriction
// (if any) covers the platform and every required feature has the exact
// required value in the feature set.
type Rule struct {
	Action   Action          `json:"action"`
	OS       *OSRestriction  `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

// AppliedAction returns the rule's action if the rule matches the
// environment, or false if it does not apply.
func (r Rule) AppliedAction(env Environment) (Action, bool) {
	if r.OS != nil && !r.OS.Matches(env.OS) {
		return "", false
	}
	for name, want := range r.Features {
		got, ok := env.Features[name]
		if !ok || got != want {
			return "", false
		}
	}
	return r.Action, true
}

// Environment is the evaluation context: the platform plus the run's feature
// flags.
type Environment struct {
	OS       OSInfo
	Features FeatureSet
}

// Evaluate folds a rule list into a final action. Absence of rules means
// "always applies"; otherwise the last matching rule wins and an unmatched
// non-empty list disallows.
func Evaluate(rs []Rule, env Environment) Action {
	if len(rs) == 0 {
		return Allow
	}
	action := Disallow
	for _, r := range rs {
		if applied, ok := r.AppliedAction(env); ok {
			action = applied
		}
	}
	return action
}

// Allows is shorthand for Evaluate(rs, env) == Allow.
func Allows(rs []Rule, env Environment) bool {
	return Evaluate(rs, env) == Allow
}

// OSInfo describes a platform the way rule restrictions name it.
type OSInfo struct {
	// Name is one of "linux", "windows", "osx" or "unknown".
	Name string
	// Arch uses the legacy naming: "x64", "x86", or the raw GOARCH value.
	Arch string
	// Version is the platform version string matched by version patterns.
	Version string
}

// Bits returns "64" or "32" for native-classifier substitution.
func (o OSInfo) Bits() string {
	if o.Arch == "x86" {
		return "32"
	}
	return "64"
}

// CurrentOS describes the running platform.
func CurrentOS() OSInfo {
	return OSInfo{Name: osName(runtime.GOOS), Arch: archName(runtime.GOARCH)}
}

func osName(goos string) string {
	switch goos {
	case "linux":
		return "linux"
	case "windows":
		return "windows"
	case "darwin":
		return "osx"
	default:
		return "unknown"
	}
}

func archName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	default:
		return goarch
	}
}
