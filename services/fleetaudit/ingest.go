package fleetaudit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fotad/pkg/bus"
	"fotad/pkg/db"
)

const (
	linkIssuedSubject = "fota.links.issued"
	durableName       = "fleetaudit-links"
)

type linkIssuedEvent struct {
	DeviceID      string `json:"device_id"`
	LatestVersion string `json:"latest_version"`
	TTL           int64  `json:"ttl"`
}

// Ingestor records every issued download link as an audit row, giving fleet
// operators a history of which devices were offered which versions.
type Ingestor struct {
	pool *pgxpool.Pool
	bus  *bus.Bus

	subMu sync.Mutex
	sub   io.Closer
}

// NewIngestor constructs an Ingestor for the provided dependencies.
func NewIngestor(pool *pgxpool.Pool, bus *bus.Bus) (*Ingestor, error) {
	if pool == nil {
		return nil, errors.New("database pool is required")
	}
	if bus == nil {
		return nil, errors.New("bus is required")
	}

	return &Ingestor{pool: pool, bus: bus}, nil
}

// Start subscribes to link-issued events and processes them until ctx is
// cancelled.
func (i *Ingestor) Start(ctx context.Context) error {
	if i == nil {
		return errors.New("nil ingestor")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	sub, err := i.bus.Subscribe(ctx, linkIssuedSubject, durableName, i.handleLinkIssued)
	if err != nil {
		return err
	}

	i.subMu.Lock()
	i.sub = sub
	i.subMu.Unlock()

	return nil
}

// Close stops the underlying subscription if it was created.
func (i *Ingestor) Close() error {
	if i == nil {
		return nil
	}

	i.subMu.Lock()
	defer i.subMu.Unlock()

	if i.sub == nil {
		return nil
	}
	err := i.sub.Close()
	i.sub = nil
	return err
}

func (i *Ingestor) handleLinkIssued(ctx context.Context, data []byte) error {
	evt, err := parseLinkIssued(data)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, i.pool, `
INSERT INTO link_audit (device_id, latest_version, ttl, issued_at)
VALUES ($1, $2, $3, $4)
`, evt.DeviceID, evt.LatestVersion, evt.TTL, time.Now().UTC())
	return err
}

func parseLinkIssued(data []byte) (linkIssuedEvent, error) {
	var evt linkIssuedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return linkIssuedEvent{}, err
	}
	if evt.DeviceID == "" {
		return linkIssuedEvent{}, errors.New("device_id missing from event")
	}
	if evt.TTL <= 0 {
		return linkIssuedEvent{}, errors.New("ttl missing from event")
	}
	return evt, nil
}
