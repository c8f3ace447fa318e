package manifest

import "github.com/piston-launch/pistonmeta/version"

// DownloadKind keys the download-location records of a manifest.
type DownloadKind string

const (
	DownloadClient         DownloadKind = "client"
	DownloadServer         DownloadKind = "server"
	DownloadClientMappings DownloadKind = "client_mappings"
	DownloadServerMappings DownloadKind = "server_mappings"
)

// DownloadInfo locates one artifact together with its trusted checksum.
type DownloadInfo struct {
	URL  string          `json:"url"`
	SHA1 version.SHA1Sum `json:"sha1,omitzero"`
	Size int64           `json:"size,omitempty"`
	// Path is only set for library classifier entries.
	Path string `json:"path,omitempty"`
}

// JavaVersion is the Java runtime requirement of a version.
type JavaVersion struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

// LoggingEntry carries the log4j configuration download of a version. It is
// data only; fetching it is up to the caller.
type LoggingEntry struct {
	Argument string       `json:"argument,omitempty"`
	File     DownloadInfo `json:"file,omitempty"`
	Type     string       `json:"type,omitempty"`
}

// AssetIndexRef points a manifest at its asset index.
type AssetIndexRef struct {
	ID        string          `json:"id"`
	URL       string          `json:"url"`
	SHA1      version.SHA1Sum `json:"sha1,omitzero"`
	Size      int64           `json:"size,omitempty"`
	TotalSize int64           `json:"totalSize,omitempty"`
}
