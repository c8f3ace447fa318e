// Package version holds the identifier, timestamp and checksum value types
// shared by the manifest model and the resolver. Identifiers are parsed into
// one of six shapes purely for informational comparison; formatting a parsed
// identifier always reproduces the original string.
package version

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Kind enumerates the recognized identifier shapes.
type Kind int

const (
	// KindOther covers old alphas, betas and anything else that does not
	// match one of the structured shapes below.
	KindOther Kind = iota
	// KindRelease is a plain release such as "1.20.4".
	KindRelease
	// KindSnapshot is a timestamped snapshot such as "23w46a".
	KindSnapshot
	// KindPreRelease is the newer pre-release style, "1.14 Pre-Release 4".
	KindPreRelease
	// KindPreReleaseOld is the older pre-release style, "1.9.1-pre2".
	KindPreReleaseOld
	// KindReleaseCandidate is a release candidate such as "1.19.3-rc3".
	KindReleaseCandidate
)

var (
	releaseRE       = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?$`)
	snapshotRE      = regexp.MustCompile(`^(\d{2})w(\d{2})(.)$`)
	preReleaseRE    = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))? Pre-Release (\d+)$`)
	preReleaseOldRE = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?-pre(\d+)$`)
	candidateRE     = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?-rc(\d+)$`)
)

// ID is a parsed version identifier. The zero value is the empty legacy
// identifier. IDs are comparable and can be used as map keys; two IDs are
// equal exactly when their string forms are equal.
type ID struct {
	kind Kind

	major, minor int
	patch        int
	hasPatch     bool
	// extra is the pre-release or release-candidate number; revision is the
	// snapshot's trailing letter.
	extra    int
	revision string
	// raw is only set for KindOther.
	raw string
}

// Parse classifies an identifier string. It never fails: anything that does
// not match a structured shape is carried verbatim as KindOther.
func Parse(s string) ID {
	if m := releaseRE.FindStringSubmatch(s); m != nil {
		id := ID{kind: KindRelease, major: atoi(m[1]), minor: atoi(m[2])}
		id.patch, id.hasPatch = optAtoi(m[3])
		return id
	}
	if m := snapshotRE.FindStringSubmatch(s); m != nil {
		return ID{kind: KindSnapshot, major: atoi(m[1]), minor: atoi(m[2]), revision: m[3]}
	}
	if m := preReleaseRE.FindStringSubmatch(s); m != nil {
		id := ID{kind: KindPreRelease, major: atoi(m[1]), minor: atoi(m[2]), extra: atoi(m[4])}
		id.patch, id.hasPatch = optAtoi(m[3])
		return id
	}
	if m := preReleaseOldRE.FindStringSubmatch(s); m != nil {
		id := ID{kind: KindPreReleaseOld, major: atoi(m[1]), minor: atoi(m[2]), extra: atoi(m[4])}
		id.patch, id.hasPatch = optAtoi(m[3])
		return id
	}
	if m := candidateRE.FindStringSubmatch(s); m != nil {
		id := ID{kind: KindReleaseCandidate, major: atoi(m[1]), minor: atoi(m[2]), extra: atoi(m[4])}
		id.patch, id.hasPatch = optAtoi(m[3])
		return id
	}
	return ID{kind: KindOther, raw: s}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func optAtoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	return atoi(s), true
}

// Kind reports the shape the identifier was parsed into.
func (id ID) Kind() Kind { return id.kind }

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool { return id == ID{} }

func (id ID) String() string {
	switch id.kind {
	case KindRelease:
		return id.base()
	case KindSnapshot:
		return fmt.Sprintf("%02dw%02d%s", id.major, id.minor, id.revision)
	case KindPreRelease:
		return fmt.Sprintf("%s Pre-Release %d", id.base(), id.extra)
	case KindPreReleaseOld:
		return fmt.Sprintf("%s-pre%d", id.base(), id.extra)
	case KindReleaseCandidate:
		return fmt.Sprintf("%s-rc%d", id.base(), id.extra)
	default:
		return id.raw
	}
}

func (id ID) base() string {
	s := fmt.Sprintf("%d.%d", id.major, id.minor)
	if id.hasPatch {
		s += fmt.Sprintf(".%d", id.patch)
	}
	return s
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("version id must be a string: %w", err)
	}
	*id = Parse(s)
	return nil
}

// ReleaseType is the release classification carried by the remote index and
// every manifest.
type ReleaseType string

const (
	TypeRelease  ReleaseType = "release"
	TypeSnapshot ReleaseType = "snapshot"
	TypeOldBeta  ReleaseType = "old_beta"
	TypeOldAlpha ReleaseType = "old_alpha"
)
