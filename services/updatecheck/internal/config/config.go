package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fotad/services/updatecheck"
)

// Config is the full environment-supplied process configuration, loaded once
// at startup and read-only thereafter.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	NATSURL     string
	Core        updatecheck.Config
}

// Table names end up interpolated into SQL (quoted), so they are restricted to
// plain identifiers up front.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func Load() (Config, error) {
	cfg := Config{}

	cfg.HTTPAddr = getEnv("FOTA_HTTP_ADDR", ":8080")
	cfg.NATSURL = strings.TrimSpace(os.Getenv("NATS_URL"))

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}

	core := updatecheck.Config{}
	core.FirmwareTable = getEnv("FIRMWARE_TABLE", updatecheck.DefaultFirmwareTable)
	core.LinkTable = getEnv("LINK_TABLE", updatecheck.DefaultLinkTable)
	for _, table := range []string{core.FirmwareTable, core.LinkTable} {
		if !identPattern.MatchString(table) {
			return Config{}, fmt.Errorf("invalid table name: %q", table)
		}
	}

	core.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	core.StorageDomain = getEnv("S3_STORAGE_DOMAIN", updatecheck.DefaultStorageDomain)

	core.ResolverMode = getEnv("FOTA_RESOLVER_MODE", updatecheck.ResolverModeScan)
	switch core.ResolverMode {
	case updatecheck.ResolverModeScan, updatecheck.ResolverModeLookup:
	default:
		return Config{}, fmt.Errorf("invalid FOTA_RESOLVER_MODE: %q", core.ResolverMode)
	}

	core.LinkMode = getEnv("FOTA_LINK_MODE", updatecheck.LinkModePresign)
	switch core.LinkMode {
	case updatecheck.LinkModePresign, updatecheck.LinkModeStored:
	default:
		return Config{}, fmt.Errorf("invalid FOTA_LINK_MODE: %q", core.LinkMode)
	}
	if core.LinkMode == updatecheck.LinkModePresign && core.Bucket == "" {
		return Config{}, errors.New("S3_BUCKET is required when FOTA_LINK_MODE=presign")
	}

	ttlSeconds, err := getEnvInt("FOTA_LINK_TTL_SECONDS", int(updatecheck.DefaultLinkTTL/time.Second))
	if err != nil || ttlSeconds <= 0 {
		return Config{}, fmt.Errorf("invalid FOTA_LINK_TTL_SECONDS: %q", os.Getenv("FOTA_LINK_TTL_SECONDS"))
	}
	core.LinkTTL = time.Duration(ttlSeconds) * time.Second

	cfg.Core = core
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
