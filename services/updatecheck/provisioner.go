package updatecheck

import (
	"context"
	"fmt"
	"time"
)

// linkProvisioner produces the download link handed to a device that needs an
// update, recording it in the link cache as a side effect.
type linkProvisioner interface {
	Provision(ctx context.Context, deviceID string, fw Firmware, now time.Time) (ProvisionedLink, error)
}

type presigner interface {
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// presignProvisioner mints a short-lived read-only signed URL for the firmware
// object. The URL expiry and the cached ttl derive from the same instant so the
// two writes cannot disagree under clock skew.
type presignProvisioner struct {
	s3            presigner
	links         linkPutter
	bucket        string
	storageDomain string
	window        time.Duration
}

func (p *presignProvisioner) Provision(ctx context.Context, deviceID string, fw Firmware, now time.Time) (ProvisionedLink, error) {
	loc, err := parseArtifactRef(fw.ArtifactURL, p.bucket, p.storageDomain)
	if err != nil {
		return ProvisionedLink{}, err
	}

	expires := now.Add(p.window)
	url, err := p.s3.PresignGet(ctx, loc.Bucket, loc.Key, p.window)
	if err != nil {
		return ProvisionedLink{}, fmt.Errorf("presign get: %w", err)
	}

	link := ProvisionedLink{
		DeviceID:     deviceID,
		DownloadLink: url,
		TTL:          expires.Unix(),
	}
	if err := p.links.Put(ctx, link); err != nil {
		return ProvisionedLink{}, err
	}
	return link, nil
}

// storedLinkProvisioner serves the catalog's artifact URL verbatim, for
// deployments whose firmware objects are public or signed out of band. The
// link is still cached with the standard validity window.
type storedLinkProvisioner struct {
	links  linkPutter
	window time.Duration
}

func (p *storedLinkProvisioner) Provision(ctx context.Context, deviceID string, fw Firmware, now time.Time) (ProvisionedLink, error) {
	link := ProvisionedLink{
		DeviceID:     deviceID,
		DownloadLink: fw.ArtifactURL,
		TTL:          now.Add(p.window).Unix(),
	}
	if err := p.links.Put(ctx, link); err != nil {
		return ProvisionedLink{}, err
	}
	return link, nil
}
