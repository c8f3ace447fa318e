package manifest

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/piston-launch/pistonmeta/rules"
)

// Artifact is a group/name/version[/classifier] coordinate, serialized as the
// colon-separated "group:name:version[:classifier]" form.
type Artifact struct {
	Group      string
	Name       string
	Version    string
	Classifier string
}

// ParseArtifact splits a colon-separated coordinate.
func ParseArtifact(s string) (Artifact, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Artifact{}, fmt.Errorf("invalid artifact coordinate %q", s)
	}
	a := Artifact{Group: parts[0], Name: parts[1], Version: parts[2]}
	if len(parts) == 4 {
		a.Classifier = parts[3]
	}
	return a, nil
}

func (a Artifact) String() string {
	s := a.Group + ":" + a.Name + ":" + a.Version
	if a.Classifier != "" {
		s += ":" + a.Classifier
	}
	return s
}

// WithClassifier returns a copy of the coordinate carrying the given
// classifier.
func (a Artifact) WithClassifier(classifier string) Artifact {
	a.Classifier = classifier
	return a
}

// Path is the repository-relative jar path,
// "group/as/dirs/name/version/name-version[-classifier].jar".
func (a Artifact) Path() string {
	file := a.Name + "-" + a.Version
	if a.Classifier != "" {
		file += "-" + a.Classifier
	}
	return path.Join(strings.ReplaceAll(a.Group, ".", "/"), a.Name, a.Version, file+".jar")
}

func (a Artifact) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Artifact) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("artifact coordinate must be a string: %w", err)
	}
	parsed, err := ParseArtifact(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Library is one dependency of a version: a coordinate, the rules governing
// where it applies, and where to fetch it from.
type Library struct {
	Name      Artifact          `json:"name"`
	Rules     []rules.Rule      `json:"rules,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Extract   *ExtractRules     `json:"extract,omitempty"`
	URL       string            `json:"url,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
}

// AppliesTo reports whether the library is applicable in the environment.
func (l Library) AppliesTo(env rules.Environment) bool {
	return rules.Allows(l.Rules, env)
}

// NativeClassifier resolves the native classifier for the platform,
// substituting "${arch}" with the platform's bit width. The second return is
// false when the library has no native entry for the platform.
func (l Library) NativeClassifier(os rules.OSInfo) (string, bool) {
	classifier, ok := l.Natives[os.Name]
	if !ok {
		return "", false
	}
	return strings.ReplaceAll(classifier, "${arch}", os.Bits()), true
}

// ArtifactPath is the repository-relative path for the library, optionally
// reclassified (used for per-OS natives).
func (l Library) ArtifactPath(classifier string) string {
	if classifier != "" {
		return l.Name.WithClassifier(classifier).Path()
	}
	return l.Name.Path()
}

// ExtractRules lists archive paths excluded when a native library is
// unpacked. Unpacking itself is out of scope here; the data rides along.
type ExtractRules struct {
	Exclude []string `json:"exclude,omitempty"`
}

// ShouldExtract reports whether an archive entry survives the exclusion list.
func (e *ExtractRules) ShouldExtract(entry string) bool {
	if e == nil {
		return true
	}
	for _, prefix := range e.Exclude {
		if strings.HasPrefix(entry, prefix) {
			return false
		}
	}
	return true
}

// LibraryDownloads is the structured per-classifier download information.
type LibraryDownloads struct {
	Artifact    *DownloadInfo           `json:"artifact,omitempty"`
	Classifiers map[string]DownloadInfo `json:"classifiers,omitempty"`
}

// Info selects the download record for a classifier, or the main artifact
// when the classifier is empty.
func (d *LibraryDownloads) Info(classifier string) (DownloadInfo, bool) {
	if d == nil {
		return DownloadInfo{}, false
	}
	if classifier != "" {
		info, ok := d.Classifiers[classifier]
		return info, ok
	}
	if d.Artifact == nil {
		return DownloadInfo{}, false
	}
	return *d.Artifact, true
}
