package updatecheck

import (
	"errors"
	"fmt"
	"strings"
)

var errInvalidArtifactRef = errors.New("invalid artifact reference")

type artifactLocation struct {
	Bucket string
	Key    string
}

// parseArtifactRef derives object-storage coordinates from a stored artifact
// reference. Two shapes are accepted: a fully-qualified HTTPS URL, whose prefix
// must match the configured bucket and storage domain exactly, and a
// scheme://container/key reference such as s3://bucket/firmware/1.1.0.bin.
// Anything else is rejected rather than coerced.
func parseArtifactRef(ref, bucket, storageDomain string) (artifactLocation, error) {
	scheme, rest, ok := strings.Cut(ref, "://")
	if !ok || scheme == "" {
		return artifactLocation{}, fmt.Errorf("%w: %q", errInvalidArtifactRef, ref)
	}

	if scheme == "https" {
		prefix := fmt.Sprintf("https://%s.%s/", bucket, storageDomain)
		key, found := strings.CutPrefix(ref, prefix)
		if !found || key == "" {
			return artifactLocation{}, fmt.Errorf("%w: %q does not match prefix %q", errInvalidArtifactRef, ref, prefix)
		}
		return artifactLocation{Bucket: bucket, Key: key}, nil
	}

	container, key, found := strings.Cut(rest, "/")
	if !found || container == "" || key == "" {
		return artifactLocation{}, fmt.Errorf("%w: %q", errInvalidArtifactRef, ref)
	}
	return artifactLocation{Bucket: container, Key: key}, nil
}
