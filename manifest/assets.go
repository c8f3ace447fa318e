package manifest

import (
	"path"

	"github.com/piston-launch/pistonmeta/version"
)

// AssetObject is one content-addressed resource: a checksum, a byte size, and
// optionally the checksum/size of a gzip-compressed transport variant.
type AssetObject struct {
	Hash           version.SHA1Sum `json:"hash"`
	Size           int64           `json:"size"`
	CompressedHash version.SHA1Sum `json:"compressedHash,omitzero"`
	CompressedSize int64           `json:"compressedSize,omitempty"`
}

// HasCompressedAlternative reports whether a gzip transport variant exists.
func (o AssetObject) HasCompressedAlternative() bool {
	return !o.CompressedHash.IsZero()
}

// ObjectPath returns the content-addressed relative path for a checksum,
// "<first two hex chars>/<full hex hash>".
func ObjectPath(sum version.SHA1Sum) string {
	hex := sum.String()
	return path.Join(hex[:2], hex)
}

// AssetIndex maps human-readable names to asset objects. Multiple names may
// point at byte-identical objects.
type AssetIndex struct {
	Objects        map[string]AssetObject `json:"objects"`
	Virtual        bool                   `json:"virtual,omitempty"`
	MapToResources bool                   `json:"map_to_resources,omitempty"`
}

// UniqueObjects returns one representative name per distinct checksum so
// byte-identical objects are only transferred once.
func (i AssetIndex) UniqueObjects() map[version.SHA1Sum]string {
	unique := make(map[version.SHA1Sum]string, len(i.Objects))
	for name, obj := range i.Objects {
		if existing, ok := unique[obj.Hash]; !ok || name < existing {
			unique[obj.Hash] = name
		}
	}
	return unique
}
