package updatecheck

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"fotad/pkg/bus"
	gos3 "fotad/pkg/s3"
)

// Resolver and link modes. Scan selects every catalog row for the device and
// picks the newest upload; lookup reads a single row keyed by device. Presign
// mints a fresh signed URL per check; stored serves the catalog URL as-is.
const (
	ResolverModeScan   = "scan"
	ResolverModeLookup = "lookup"

	LinkModePresign = "presign"
	LinkModeStored  = "stored"
)

const (
	DefaultFirmwareTable = "firmware_records"
	DefaultLinkTable     = "provisioned_links"
	DefaultStorageDomain = "s3.ap-south-1.amazonaws.com"
	DefaultLinkTTL       = 2 * time.Hour

	linkIssuedSubject = "fota.links.issued"
)

// Store holds the long-lived external collaborators required by the service,
// constructed once at process start and shared across requests.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB
	S3  *gos3.Client
	Bus *bus.Bus
}

// Config controls runtime behaviour for the update-check handlers.
type Config struct {
	FirmwareTable string
	LinkTable     string
	Bucket        string
	StorageDomain string
	ResolverMode  string
	LinkMode      string
	LinkTTL       time.Duration
}

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	store       *Store
	config      Config
	logger      *log.Logger
	resolver    latestResolver
	provisioner linkProvisioner
}

// New initialises the API layer with sane defaults applied to the provided
// configuration.
func New(store *Store, cfg Config, logger *log.Logger) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if store.DB == nil {
		return nil, errors.New("store DB is required")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	if cfg.FirmwareTable == "" {
		cfg.FirmwareTable = DefaultFirmwareTable
	}
	if cfg.LinkTable == "" {
		cfg.LinkTable = DefaultLinkTable
	}
	if cfg.StorageDomain == "" {
		cfg.StorageDomain = DefaultStorageDomain
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = DefaultLinkTTL
	}
	if cfg.ResolverMode == "" {
		cfg.ResolverMode = ResolverModeScan
	}
	if cfg.LinkMode == "" {
		cfg.LinkMode = LinkModePresign
	}

	var resolver latestResolver
	switch cfg.ResolverMode {
	case ResolverModeScan:
		resolver = &scanResolver{pool: store.DB, table: cfg.FirmwareTable}
	case ResolverModeLookup:
		if store.ORM == nil {
			return nil, errors.New("store ORM is required for lookup resolver mode")
		}
		resolver = &lookupResolver{orm: store.ORM, table: cfg.FirmwareTable}
	default:
		return nil, errors.New("unknown resolver mode: " + cfg.ResolverMode)
	}

	links := &linkStore{pool: store.DB, table: cfg.LinkTable}

	var provisioner linkProvisioner
	switch cfg.LinkMode {
	case LinkModePresign:
		if store.S3 == nil {
			return nil, errors.New("store S3 is required for presign link mode")
		}
		if cfg.Bucket == "" {
			return nil, errors.New("bucket is required for presign link mode")
		}
		provisioner = &presignProvisioner{
			s3:            store.S3,
			links:         links,
			bucket:        cfg.Bucket,
			storageDomain: cfg.StorageDomain,
			window:        cfg.LinkTTL,
		}
	case LinkModeStored:
		provisioner = &storedLinkProvisioner{links: links, window: cfg.LinkTTL}
	default:
		return nil, errors.New("unknown link mode: " + cfg.LinkMode)
	}

	return &API{
		store:       store,
		config:      cfg,
		logger:      logger,
		resolver:    resolver,
		provisioner: provisioner,
	}, nil
}

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/updates/check", a.handleCheckUpdate)
		r.Get("/firmware/{deviceID}/latest", a.handleLatestFirmware)
	})

	return r, nil
}

func (a *API) logf(format string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Printf(format, args...)
}
