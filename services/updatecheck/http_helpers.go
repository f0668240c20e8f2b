package updatecheck

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// decodeJSON is deliberately lenient about unknown fields: a request missing a
// mandatory field must be answered the same way whatever else the body carries.
func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return io.EOF
	}
	defer r.Body.Close()

	return json.NewDecoder(r.Body).Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"message": message})
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}
