package updatecheck

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleLatestFirmware exposes the resolver on its own for operators: it
// reports what the catalog currently considers latest without minting a link
// or touching the cache.
func (a *API) handleLatestFirmware(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(chi.URLParam(r, "deviceID"))
	if deviceID == "" {
		respondMessage(w, http.StatusBadRequest, "Missing device_id")
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
		respondMessage(w, http.StatusInternalServerError, "Missing data in firmware record")
		return
	case err != nil:
		a.logf("ERROR resolve latest firmware for %s: %v", deviceID, err)
		respondMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"firmware": fw})
}
