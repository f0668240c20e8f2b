package updatecheck

import "context"

// publishLinkIssued emits a best-effort event for each provisioned link.
// The signed URL itself is a credential and stays out of the payload.
func (a *API) publishLinkIssued(ctx context.Context, link ProvisionedLink, version string) {
	if a.store == nil || a.store.Bus == nil {
		return
	}

	payload := map[string]any{
		"device_id":      link.DeviceID,
		"latest_version": version,
		"ttl":            link.TTL,
	}
	if err := a.store.Bus.Publish(ctx, linkIssuedSubject, payload); err != nil {
		a.logf("WARN publish link issued event for %s: %v", link.DeviceID, err)
	}
}
