package updatecheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"fotad/pkg/db"
)

// latestResolver locates the single authoritative current firmware record for
// a device.
type latestResolver interface {
	ResolveLatest(ctx context.Context, deviceID string) (Firmware, error)
}

type firmwareRow struct {
	DeviceID    string `db:"device_id" gorm:"column:device_id"`
	Version     string `db:"version" gorm:"column:version"`
	ArtifactURL string `db:"artifact_url" gorm:"column:artifact_url"`
	UploadedAt  int64  `db:"uploaded_at" gorm:"column:uploaded_at"`
}

func (row firmwareRow) toFirmware() (Firmware, error) {
	if row.Version == "" || row.ArtifactURL == "" {
		return Firmware{}, ErrIncompleteRecord
	}
	return Firmware{
		DeviceID:    row.DeviceID,
		Version:     row.Version,
		ArtifactURL: row.ArtifactURL,
		UploadedAt:  row.UploadedAt,
	}, nil
}

// latestOf picks the row with the greatest uploaded_at. Equal timestamps are
// broken by the lexicographically greater version so the pick is stable across
// scan order.
func latestOf(rows []firmwareRow) (firmwareRow, bool) {
	if len(rows) == 0 {
		return firmwareRow{}, false
	}

	best := rows[0]
	for _, row := range rows[1:] {
		if row.UploadedAt > best.UploadedAt ||
			(row.UploadedAt == best.UploadedAt && row.Version > best.Version) {
			best = row
		}
	}
	return best, true
}

// scanResolver retrieves every catalog row for the device and selects the most
// recent upload in memory.
type scanResolver struct {
	pool  *pgxpool.Pool
	table string
}

func (r *scanResolver) ResolveLatest(ctx context.Context, deviceID string) (Firmware, error) {
	query := fmt.Sprintf(
		`SELECT device_id, version, artifact_url, uploaded_at FROM %s WHERE device_id = $1`,
		pgx.Identifier{r.table}.Sanitize(),
	)

	var rows []firmwareRow
	if err := db.Select(ctx, r.pool, &rows, query, deviceID); err != nil {
		return Firmware{}, fmt.Errorf("scan firmware catalog: %w", err)
	}

	latest, ok := latestOf(rows)
	if !ok {
		return Firmware{}, ErrNoFirmware
	}
	return latest.toFirmware()
}

// lookupResolver reads a single catalog row keyed directly by device, for
// deployments whose catalog holds one row per device.
type lookupResolver struct {
	orm   *gorm.DB
	table string
}

func (r *lookupResolver) ResolveLatest(ctx context.Context, deviceID string) (Firmware, error) {
	var row firmwareRow
	err := r.orm.WithContext(ctx).Table(r.table).Where("device_id = ?", deviceID).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Firmware{}, ErrNoFirmware
	case err != nil:
		return Firmware{}, fmt.Errorf("look up firmware record: %w", err)
	}
	return row.toFirmware()
}
