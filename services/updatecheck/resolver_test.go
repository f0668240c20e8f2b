package updatecheck

import (
	"errors"
	"testing"
)

func TestLatestOf(t *testing.T) {
	tests := []struct {
		name        string
		rows        []firmwareRow
		wantVersion string
		wantOK      bool
	}{
		{
			name: "empty",
			rows: nil,
		},
		{
			name: "single row",
			rows: []firmwareRow{
				{Version: "1.0.0", UploadedAt: 100},
			},
			wantVersion: "1.0.0",
			wantOK:      true,
		},
		{
			name: "max is not the last row scanned",
			rows: []firmwareRow{
				{Version: "1.0.0", UploadedAt: 100},
				{Version: "1.2.0", UploadedAt: 300},
				{Version: "1.1.0", UploadedAt: 200},
			},
			wantVersion: "1.2.0",
			wantOK:      true,
		},
		{
			name: "max is first under reversed ordering",
			rows: []firmwareRow{
				{Version: "1.2.0", UploadedAt: 300},
				{Version: "1.1.0", UploadedAt: 200},
				{Version: "1.0.0", UploadedAt: 100},
			},
			wantVersion: "1.2.0",
			wantOK:      true,
		},
		{
			name: "tie broken by lexicographically greater version",
			rows: []firmwareRow{
				{Version: "1.0.10", UploadedAt: 100},
				{Version: "1.0.9", UploadedAt: 100},
			},
			wantVersion: "1.0.9",
			wantOK:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := latestOf(tt.rows)
			if ok != tt.wantOK {
				t.Fatalf("latestOf() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Version != tt.wantVersion {
				t.Fatalf("latestOf() version = %q, want %q", got.Version, tt.wantVersion)
			}
		})
	}
}

func TestFirmwareRowToFirmware(t *testing.T) {
	tests := []struct {
		name    string
		row     firmwareRow
		wantErr bool
	}{
		{
			name: "complete record",
			row:  firmwareRow{DeviceID: "dev-1", Version: "1.1.0", ArtifactURL: "s3://bucket/firmware/1.1.0.bin", UploadedAt: 100},
		},
		{
			name:    "missing version",
			row:     firmwareRow{DeviceID: "dev-1", ArtifactURL: "s3://bucket/firmware/1.1.0.bin"},
			wantErr: true,
		},
		{
			name:    "missing artifact url",
			row:     firmwareRow{DeviceID: "dev-1", Version: "1.1.0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw, err := tt.row.toFirmware()
			if tt.wantErr {
				if !errors.Is(err, ErrIncompleteRecord) {
					t.Fatalf("toFirmware() error = %v, want ErrIncompleteRecord", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("toFirmware() error = %v", err)
			}
			if fw.Version != tt.row.Version || fw.ArtifactURL != tt.row.ArtifactURL {
				t.Fatalf("toFirmware() = %+v", fw)
			}
		})
	}
}

func TestNeedsUpdate(t *testing.T) {
	tests := []struct {
		name          string
		clientVersion string
		latestVersion string
		want          bool
	}{
		{name: "equal", clientVersion: "1.0.0", latestVersion: "1.0.0", want: false},
		{name: "catalog newer", clientVersion: "1.0.0", latestVersion: "1.1.0", want: true},
		{name: "client ahead of catalog still updates", clientVersion: "2.0.0", latestVersion: "1.1.0", want: true},
		{name: "no semver normalisation", clientVersion: "1.0", latestVersion: "1.0.0", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsUpdate(tt.clientVersion, tt.latestVersion); got != tt.want {
				t.Fatalf("needsUpdate(%q, %q) = %v, want %v", tt.clientVersion, tt.latestVersion, got, tt.want)
			}
		})
	}
}
