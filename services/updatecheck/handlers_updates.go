package updatecheck

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

func (a *API) handleCheckUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID  string `json:"device_id"`
		OSVersion string `json:"os_version"`
	}
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			respondMessage(w, http.StatusBadRequest, "Request body is missing")
			return
		}
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	osVersion := strings.TrimSpace(req.OSVersion)
	if deviceID == "" || osVersion == "" {
		respondMessage(w, http.StatusBadRequest, "Missing device_id or os_version")
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	fw, err := a.resolver.ResolveLatest(ctx, deviceID)
	switch {
	case errors.Is(err, ErrNoFirmware):
		respondMessage(w, http.StatusNotFound, "No firmware found for device")
		return
	case errors.Is(err, ErrIncompleteRecord):
		a.logf("ERROR firmware record for %s is incomplete", deviceID)
		respondMessage(w, http.StatusInternalServerError, "Missing data in firmware record")
		return
	case err != nil:
		a.logf("ERROR resolve latest firmware for %s: %v", deviceID, err)
		respondMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !needsUpdate(osVersion, fw.Version) {
		respondJSON(w, http.StatusOK, map[string]any{
			"update":  false,
			"message": "Your OS is up to date",
		})
		return
	}

	link, err := a.provisioner.Provision(ctx, deviceID, fw, time.Now().UTC())
	switch {
	case errors.Is(err, errInvalidArtifactRef):
		a.logf("ERROR artifact reference for %s: %v", deviceID, err)
		respondMessage(w, http.StatusInternalServerError, "Invalid artifact URL format")
		return
	case err != nil:
		a.logf("ERROR provision download link for %s: %v", deviceID, err)
		respondMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	a.publishLinkIssued(ctx, link, fw.Version)

	resp := map[string]any{
		"update":        true,
		"message":       "Update available",
		"download_link": link.DownloadLink,
	}
	if a.config.ResolverMode == ResolverModeScan {
		resp["latest_version"] = fw.Version
	}
	respondJSON(w, http.StatusOK, resp)
}
