package updatecheck

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubPresigner struct {
	url       string
	err       error
	calls     int
	gotBucket string
	gotKey    string
	gotTTL    time.Duration
}

func (s *stubPresigner) PresignGet(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	s.calls++
	s.gotBucket = bucket
	s.gotKey = key
	s.gotTTL = ttl
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

type recordingPutter struct {
	err   error
	links []ProvisionedLink
}

func (r *recordingPutter) Put(_ context.Context, link ProvisionedLink) error {
	if r.err != nil {
		return r.err
	}
	r.links = append(r.links, link)
	return nil
}

func TestPresignProvisioner(t *testing.T) {
	const window = 2 * time.Hour
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fw := Firmware{
		DeviceID:    "dev-1",
		Version:     "1.1.0",
		ArtifactURL: "s3://bucket/firmware/1.1.0.bin",
	}

	t.Run("mints link and caches it once", func(t *testing.T) {
		signer := &stubPresigner{url: "https://signed.example/obj"}
		putter := &recordingPutter{}
		p := &presignProvisioner{s3: signer, links: putter, bucket: "fw-bucket", storageDomain: "s3.ap-south-1.amazonaws.com", window: window}

		link, err := p.Provision(context.Background(), "dev-1", fw, now)
		if err != nil {
			t.Fatalf("Provision() error = %v", err)
		}
		if link.DownloadLink != "https://signed.example/obj" {
			t.Fatalf("download link = %q", link.DownloadLink)
		}
		if want := now.Add(window).Unix(); link.TTL != want {
			t.Fatalf("ttl = %d, want %d", link.TTL, want)
		}
		if signer.gotBucket != "bucket" || signer.gotKey != "firmware/1.1.0.bin" {
			t.Fatalf("presigned %q/%q", signer.gotBucket, signer.gotKey)
		}
		if signer.gotTTL != window {
			t.Fatalf("presign ttl = %v, want %v", signer.gotTTL, window)
		}
		if len(putter.links) != 1 || putter.links[0] != link {
			t.Fatalf("cache writes = %+v, want exactly the issued link", putter.links)
		}
	})

	t.Run("https reference uses configured bucket", func(t *testing.T) {
		signer := &stubPresigner{url: "https://signed.example/obj"}
		putter := &recordingPutter{}
		p := &presignProvisioner{s3: signer, links: putter, bucket: "fw-bucket", storageDomain: "s3.ap-south-1.amazonaws.com", window: window}

		httpsFW := fw
		httpsFW.ArtifactURL = "https://fw-bucket.s3.ap-south-1.amazonaws.com/firmware/1.1.0.bin"
		if _, err := p.Provision(context.Background(), "dev-1", httpsFW, now); err != nil {
			t.Fatalf("Provision() error = %v", err)
		}
		if signer.gotBucket != "fw-bucket" || signer.gotKey != "firmware/1.1.0.bin" {
			t.Fatalf("presigned %q/%q", signer.gotBucket, signer.gotKey)
		}
	})

	t.Run("invalid reference mints nothing and writes nothing", func(t *testing.T) {
		signer := &stubPresigner{url: "https://signed.example/obj"}
		putter := &recordingPutter{}
		p := &presignProvisioner{s3: signer, links: putter, bucket: "fw-bucket", storageDomain: "s3.ap-south-1.amazonaws.com", window: window}

		badFW := fw
		badFW.ArtifactURL = "https://stranger.example.com/firmware.bin"
		_, err := p.Provision(context.Background(), "dev-1", badFW, now)
		if !errors.Is(err, errInvalidArtifactRef) {
			t.Fatalf("Provision() error = %v, want errInvalidArtifactRef", err)
		}
		if signer.calls != 0 || len(putter.links) != 0 {
			t.Fatalf("presign calls = %d, cache writes = %d, want none", signer.calls, len(putter.links))
		}
	})

	t.Run("presign failure writes nothing", func(t *testing.T) {
		signer := &stubPresigner{err: errors.New("storage down")}
		putter := &recordingPutter{}
		p := &presignProvisioner{s3: signer, links: putter, bucket: "fw-bucket", storageDomain: "s3.ap-south-1.amazonaws.com", window: window}

		if _, err := p.Provision(context.Background(), "dev-1", fw, now); err == nil {
			t.Fatal("Provision() expected error")
		}
		if len(putter.links) != 0 {
			t.Fatalf("cache writes = %d, want none", len(putter.links))
		}
	})

	t.Run("cache failure surfaces", func(t *testing.T) {
		signer := &stubPresigner{url: "https://signed.example/obj"}
		putter := &recordingPutter{err: errors.New("cache down")}
		p := &presignProvisioner{s3: signer, links: putter, bucket: "fw-bucket", storageDomain: "s3.ap-south-1.amazonaws.com", window: window}

		if _, err := p.Provision(context.Background(), "dev-1", fw, now); err == nil {
			t.Fatal("Provision() expected error")
		}
	})

	t.Run("consecutive checks each produce a fresh write with non-decreasing ttl", func(t *testing.T) {
		signer := &stubPresigner{url: "https://signed.example/obj"}
		putter := &recordingPutter{}
		p := &presignProvisioner{s3: signer, links: putter, bucket: "fw-bucket", storageDomain: "s3.ap-south-1.amazonaws.com", window: window}

		first, err := p.Provision(context.Background(), "dev-1", fw, now)
		if err != nil {
			t.Fatalf("first Provision() error = %v", err)
		}
		second, err := p.Provision(context.Background(), "dev-1", fw, now.Add(10*time.Minute))
		if err != nil {
			t.Fatalf("second Provision() error = %v", err)
		}
		if len(putter.links) != 2 {
			t.Fatalf("cache writes = %d, want 2", len(putter.links))
		}
		if second.TTL < first.TTL {
			t.Fatalf("second ttl %d < first ttl %d", second.TTL, first.TTL)
		}
	})
}

func TestStoredLinkProvisioner(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fw := Firmware{
		DeviceID:    "dev-1",
		Version:     "1.1.0",
		ArtifactURL: "https://cdn.example.com/firmware/1.1.0.bin",
	}

	putter := &recordingPutter{}
	p := &storedLinkProvisioner{links: putter, window: time.Hour}

	link, err := p.Provision(context.Background(), "dev-1", fw, now)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if link.DownloadLink != fw.ArtifactURL {
		t.Fatalf("download link = %q, want stored URL verbatim", link.DownloadLink)
	}
	if want := now.Add(time.Hour).Unix(); link.TTL != want {
		t.Fatalf("ttl = %d, want %d", link.TTL, want)
	}
	if len(putter.links) != 1 || putter.links[0] != link {
		t.Fatalf("cache writes = %+v, want exactly the issued link", putter.links)
	}
}
