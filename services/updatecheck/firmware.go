package updatecheck

import "errors"

// Firmware is the catalog's notion of the current build for a device. Records
// are written by the ingestion pipeline and read-only here.
type Firmware struct {
	DeviceID    string `json:"device_id"`
	Version     string `json:"version"`
	ArtifactURL string `json:"artifact_url"`
	UploadedAt  int64  `json:"uploaded_at"`
}

var (
	// ErrNoFirmware means the catalog holds no record for the device.
	ErrNoFirmware = errors.New("no firmware found for device")

	// ErrIncompleteRecord means a catalog record exists but lacks the version
	// or artifact URL needed to serve it.
	ErrIncompleteRecord = errors.New("firmware record is missing version or artifact URL")
)

// needsUpdate reports whether the catalog version differs from the one the
// device is running. Versions are opaque labels compared for plain inequality,
// not ordered: a device on any label the catalog does not consider current is
// told to update, regardless of direction.
func needsUpdate(clientVersion, latestVersion string) bool {
	return clientVersion != latestVersion
}
