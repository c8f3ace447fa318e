package resolver

import (
	"github.com/piston-launch/pistonmeta/version"
)

// LatestPointers names the newest version per release track.
type LatestPointers struct {
	Release  version.ID `json:"release,omitzero"`
	Snapshot version.ID `json:"snapshot,omitzero"`
}

// RemoteVersion is one entry of the published version index: enough to
// decide staleness and to fetch and verify the full manifest.
type RemoteVersion struct {
	ID              version.ID          `json:"id"`
	Type            version.ReleaseType `json:"type"`
	URL             string              `json:"url"`
	UpdatedTime     version.Timestamp   `json:"time"`
	ReleaseTime     version.Timestamp   `json:"releaseTime"`
	SHA1            version.SHA1Sum     `json:"sha1,omitzero"`
	ComplianceLevel int                 `json:"complianceLevel,omitempty"`
}

// RemoteVersionList is the published version index.
type RemoteVersionList struct {
	Latest   LatestPointers  `json:"latest"`
	Versions []RemoteVersion `json:"versions"`
}

// Find locates an index entry by identifier.
func (l *RemoteVersionList) Find(id version.ID) (RemoteVersion, bool) {
	for _, v := range l.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return RemoteVersion{}, false
}

// LatestFor resolves the index's latest pointer for a release track. Only the
// release and snapshot tracks carry pointers.
func (l *RemoteVersionList) LatestFor(t version.ReleaseType) (RemoteVersion, bool) {
	switch t {
	case version.TypeRelease:
		return l.Find(l.Latest.Release)
	case version.TypeSnapshot:
		return l.Find(l.Latest.Snapshot)
	}
	return RemoteVersion{}, false
}
