// Package manifest models a game-version description: its arguments,
// libraries, download locations and compatibility rules, together with the
// merge semantics used when a version inherits from a parent.
package manifest

import (
	"path/filepath"

	"github.com/piston-launch/pistonmeta/rules"
	"github.com/piston-launch/pistonmeta/version"
)

// Manifest describes one game version. Before resolution it may be partial
// and carry an InheritsFrom pointer; after resolution it is fully flattened
// and treated as immutable.
type Manifest struct {
	ID           version.ID          `json:"id"`
	Type         version.ReleaseType `json:"type"`
	ReleaseTime  version.Timestamp   `json:"releaseTime"`
	UpdatedTime  version.Timestamp   `json:"time"`
	InheritsFrom version.ID          `json:"inheritsFrom,omitzero"`

	Arguments       map[ArgumentKind][]Argument `json:"arguments,omitempty"`
	LegacyArguments string                      `json:"minecraftArguments,omitempty"`

	AssetIndex *AssetIndexRef `json:"assetIndex,omitempty"`
	Assets     string         `json:"assets,omitempty"`

	CompatibilityRules []rules.Rule `json:"compatibilityRules,omitempty"`

	Downloads map[DownloadKind]DownloadInfo `json:"downloads,omitempty"`
	Libraries []Library                     `json:"libraries,omitempty"`
	Logging   map[DownloadKind]LoggingEntry `json:"logging,omitempty"`

	MainClass   string       `json:"mainClass,omitempty"`
	Jar         version.ID   `json:"jar,omitzero"`
	JavaVersion *JavaVersion `json:"javaVersion,omitempty"`

	ComplianceLevel        int `json:"complianceLevel,omitempty"`
	MinimumLauncherVersion int `json:"minimumLauncherVersion,omitempty"`
}

// Resolved reports whether the inheritance chain has been flattened.
func (m *Manifest) Resolved() bool { return m.InheritsFrom.IsZero() }

// JarID is the identifier of the primary archive, defaulting to the
// manifest's own identifier.
func (m *Manifest) JarID() version.ID {
	if !m.Jar.IsZero() {
		return m.Jar
	}
	return m.ID
}

// Launchable reports whether the resolved manifest carries enough to start
// the game.
func (m *Manifest) Launchable() bool {
	return m.MainClass != "" || !m.JarID().IsZero()
}

// DownloadFor returns the download-location record of the given kind.
func (m *Manifest) DownloadFor(kind DownloadKind) (DownloadInfo, bool) {
	info, ok := m.Downloads[kind]
	return info, ok
}

// AppliesTo evaluates the manifest-level compatibility rules.
func (m *Manifest) AppliesTo(env rules.Environment) bool {
	return rules.Allows(m.CompatibilityRules, env)
}

// RelevantLibraries filters the library list by rule applicability.
func (m *Manifest) RelevantLibraries(env rules.Environment) []Library {
	var libs []Library
	for _, lib := range m.Libraries {
		if lib.AppliesTo(env) {
			libs = append(libs, lib)
		}
	}
	return libs
}

// RequiredFiles enumerates the game-directory-relative paths of every library
// artifact the manifest needs under the given environment. Native-classified
// libraries without an entry for the platform contribute nothing.
func (m *Manifest) RequiredFiles(env rules.Environment) []string {
	var files []string
	for _, lib := range m.RelevantLibraries(env) {
		if len(lib.Natives) > 0 {
			classifier, ok := lib.NativeClassifier(env.OS)
			if !ok {
				continue
			}
			files = append(files, filepath.Join("libraries", filepath.FromSlash(lib.ArtifactPath(classifier))))
			continue
		}
		files = append(files, filepath.Join("libraries", filepath.FromSlash(lib.ArtifactPath(""))))
	}
	return files
}

// Classpath enumerates the non-native library jars plus the primary archive,
// as absolute paths under gameDir. Consumed by the (out-of-scope) launch
// step.
func (m *Manifest) Classpath(gameDir string, env rules.Environment) []string {
	var cp []string
	for _, lib := range m.RelevantLibraries(env) {
		if len(lib.Natives) > 0 {
			continue
		}
		cp = append(cp, filepath.Join(gameDir, "libraries", filepath.FromSlash(lib.ArtifactPath(""))))
	}
	jar := m.JarID().String()
	cp = append(cp, filepath.Join(gameDir, "versions", jar, jar+".jar"))
	return cp
}

// Merge flattens one inheritance step: parent is the base, child overrides.
// The merged manifest always carries the child's identity and timestamps;
// sparse fields (main class, jar, assets, asset index, java version, legacy
// arguments) are overwritten only when the child specifies them; child
// libraries precede inherited ones; per-phase argument lists append the
// child's entries after the parent's; compatibility rules concatenate parent
// then child. The result's InheritsFrom is cleared.
func Merge(parent, child *Manifest) *Manifest {
	merged := *parent
	merged.InheritsFrom = version.ID{}
	merged.ID = child.ID
	merged.Type = child.Type
	merged.ReleaseTime = child.ReleaseTime
	merged.UpdatedTime = child.UpdatedTime

	if child.LegacyArguments != "" {
		merged.LegacyArguments = child.LegacyArguments
	}
	if child.MainClass != "" {
		merged.MainClass = child.MainClass
	}
	if child.Assets != "" {
		merged.Assets = child.Assets
	}
	if !child.Jar.IsZero() {
		merged.Jar = child.Jar
	}
	if child.AssetIndex != nil {
		merged.AssetIndex = child.AssetIndex
	}
	if child.JavaVersion != nil {
		merged.JavaVersion = child.JavaVersion
	}

	if len(child.Libraries) > 0 {
		libs := make([]Library, 0, len(child.Libraries)+len(parent.Libraries))
		libs = append(libs, child.Libraries...)
		libs = append(libs, parent.Libraries...)
		merged.Libraries = libs
	}

	if len(child.Arguments) > 0 {
		args := make(map[ArgumentKind][]Argument, len(parent.Arguments)+len(child.Arguments))
		for kind, list := range parent.Arguments {
			args[kind] = append([]Argument(nil), list...)
		}
		for kind, list := range child.Arguments {
			args[kind] = append(args[kind], list...)
		}
		merged.Arguments = args
	}

	if len(child.CompatibilityRules) > 0 {
		rs := make([]rules.Rule, 0, len(parent.CompatibilityRules)+len(child.CompatibilityRules))
		rs = append(rs, parent.CompatibilityRules...)
		rs = append(rs, child.CompatibilityRules...)
		merged.CompatibilityRules = rs
	}

	return &merged
}
