package updatecheck

import (
	"errors"
	"testing"
)

func TestParseArtifactRef(t *testing.T) {
	const (
		bucket = "fw-bucket"
		domain = "s3.ap-south-1.amazonaws.com"
	)

	tests := []struct {
		name       string
		ref        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{
			name:       "https url with matching prefix",
			ref:        "https://fw-bucket.s3.ap-south-1.amazonaws.com/firmware/1.1.0.bin",
			wantBucket: "fw-bucket",
			wantKey:    "firmware/1.1.0.bin",
		},
		{
			name:    "https url with wrong bucket",
			ref:     "https://other-bucket.s3.ap-south-1.amazonaws.com/firmware/1.1.0.bin",
			wantErr: true,
		},
		{
			name:    "https url with wrong domain",
			ref:     "https://fw-bucket.s3.us-east-1.amazonaws.com/firmware/1.1.0.bin",
			wantErr: true,
		},
		{
			name:    "https url with empty key",
			ref:     "https://fw-bucket.s3.ap-south-1.amazonaws.com/",
			wantErr: true,
		},
		{
			name:       "s3 reference",
			ref:        "s3://bucket/firmware/1.1.0.bin",
			wantBucket: "bucket",
			wantKey:    "firmware/1.1.0.bin",
		},
		{
			name:       "s3 reference preserves separators in key",
			ref:        "s3://bucket/a/b/c.bin",
			wantBucket: "bucket",
			wantKey:    "a/b/c.bin",
		},
		{
			name:       "other scheme reference",
			ref:        "gs://container/key.bin",
			wantBucket: "container",
			wantKey:    "key.bin",
		},
		{
			name:    "s3 reference without key",
			ref:     "s3://bucket",
			wantErr: true,
		},
		{
			name:    "s3 reference with empty container",
			ref:     "s3:///key.bin",
			wantErr: true,
		},
		{
			name:    "no scheme",
			ref:     "bucket/key.bin",
			wantErr: true,
		},
		{
			name:    "empty reference",
			ref:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := parseArtifactRef(tt.ref, bucket, domain)
			if tt.wantErr {
				if !errors.Is(err, errInvalidArtifactRef) {
					t.Fatalf("parseArtifactRef() error = %v, want errInvalidArtifactRef", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArtifactRef() error = %v", err)
			}
			if loc.Bucket != tt.wantBucket || loc.Key != tt.wantKey {
				t.Fatalf("parseArtifactRef() = %+v, want bucket %q key %q", loc, tt.wantBucket, tt.wantKey)
			}
		})
	}
}
