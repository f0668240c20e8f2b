package updatecheck

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fotad/pkg/db"
)

// ProvisionedLink is the download credential most recently issued to a device.
// TTL is an absolute expiry in epoch seconds; it is advisory metadata for
// out-of-band reaping, never enforced or read back by the check flow.
type ProvisionedLink struct {
	DeviceID     string `json:"device_id"`
	DownloadLink string `json:"download_link"`
	TTL          int64  `json:"ttl"`
}

type linkPutter interface {
	Put(ctx context.Context, link ProvisionedLink) error
}

// linkStore writes issued links to the cache table.
type linkStore struct {
	pool  *pgxpool.Pool
	table string
}

// Put records link, replacing any previous entry for the device. Concurrent
// checks for one device race benignly: last write wins and nothing reads the
// row back, so no lock or version check is needed.
func (s *linkStore) Put(ctx context.Context, link ProvisionedLink) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (device_id, download_link, ttl, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (device_id)
		DO UPDATE SET download_link = EXCLUDED.download_link, ttl = EXCLUDED.ttl, updated_at = now()`,
		pgx.Identifier{s.table}.Sanitize(),
	)

	if _, err := db.Exec(ctx, s.pool, query, link.DeviceID, link.DownloadLink, link.TTL); err != nil {
		return fmt.Errorf("write provisioned link: %w", err)
	}
	return nil
}
