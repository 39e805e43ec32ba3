package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"quickshare/internal/server/config"
	"quickshare/internal/server/share"
	"quickshare/internal/server/storage"
)

func newTestService(t *testing.T) (*ShareService, *share.Store) {
	t.Helper()

	cfg := &config.Config{
		BaseURL:       "http://localhost:8080",
		StoragePath:   t.TempDir(),
		MaxFileSize:   1 << 20,
		DefaultTTL:    24 * time.Hour,
		MaxTTL:        7 * 24 * time.Hour,
		SweepInterval: time.Hour,
		CodeLength:    6,
	}

	blobs := storage.NewFileSystemStore(cfg.StoragePath)
	if err := blobs.EnsureDir(); err != nil {
		t.Fatalf("failed to init storage: %v", err)
	}

	gen := share.NewCodeGenerator(share.AlphabetAlphanumeric, cfg.CodeLength)
	store := share.NewStore(gen)
	gate := share.NewGate(store)
	reclaimer := share.NewReclaimer(store, blobs, cfg.SweepInterval)

	return NewShareService(store, gate, reclaimer, blobs, cfg), store
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestShareService_CreateShare(t *testing.T) {
	ctx := context.Background()

	t.Run("plain upload round trip", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.CreateShare(ctx, "a.txt", strings.NewReader("0123456789"), 10, "", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Code) != 6 {
			t.Errorf("expected 6-character code, got %q", result.Code)
		}
		if !strings.HasSuffix(result.DownloadURL, "/download/"+result.Code) {
			t.Errorf("unexpected download URL %q", result.DownloadURL)
		}
		if !strings.HasPrefix(result.QRCode, "data:image/png;base64,") {
			t.Errorf("expected QR data URL, got %q", result.QRCode)
		}
		if !strings.HasPrefix(result.PurgeToken, "del_") {
			t.Errorf("unexpected purge token %q", result.PurgeToken)
		}

		info, err := svc.Inspect(result.Code)
		if err != nil {
			t.Fatalf("inspect failed: %v", err)
		}
		if info.Size != 10 {
			t.Errorf("expected size 10, got %d", info.Size)
		}
		if info.Downloads != 0 {
			t.Errorf("expected 0 downloads, got %d", info.Downloads)
		}
		if info.PasswordProtected {
			t.Error("expected share without password protection")
		}

		path, filename, err := svc.Fetch(ctx, result.Code, "")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if filename != "a.txt" {
			t.Errorf("expected filename a.txt, got %q", filename)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read blob: %v", err)
		}
		if string(content) != "0123456789" {
			t.Errorf("unexpected content %q", content)
		}

		info, _ = svc.Inspect(result.Code)
		if info.Downloads != 1 {
			t.Errorf("expected 1 download after fetch, got %d", info.Downloads)
		}
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateShare(ctx, "big.bin", strings.NewReader("x"), 2<<20, "", time.Hour)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("rejects TTL beyond the maximum", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateShare(ctx, "a.txt", strings.NewReader("x"), 1, "", 30*24*time.Hour)
		if !errors.Is(err, ErrInvalidTTL) {
			t.Errorf("expected ErrInvalidTTL, got %v", err)
		}
	})

	t.Run("zero TTL uses the default", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.CreateShare(ctx, "a.txt", strings.NewReader("x"), 1, "", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ttl := time.Until(result.ExpiresAt)
		if ttl < 23*time.Hour || ttl > 25*time.Hour {
			t.Errorf("expected roughly 24h TTL, got %v", ttl)
		}
	})

	t.Run("filename is sanitized", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.CreateShare(ctx, "../../etc/passwd", strings.NewReader("x"), 1, "", time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Filename != "passwd" {
			t.Errorf("expected sanitized filename, got %q", result.Filename)
		}
	})
}

func TestShareService_PasswordPolicy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	result, err := svc.CreateShare(ctx, "secret.txt", strings.NewReader("classified"), 10, "hunter2", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := svc.Inspect(result.Code)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !info.PasswordProtected {
		t.Error("expected password protection reported")
	}

	t.Run("no password prompts for one", func(t *testing.T) {
		_, _, err := svc.Fetch(ctx, result.Code, "")
		if !errors.Is(err, share.ErrPasswordRequired) {
			t.Errorf("expected ErrPasswordRequired, got %v", err)
		}
	})

	t.Run("wrong password is rejected and not counted", func(t *testing.T) {
		_, _, err := svc.Fetch(ctx, result.Code, "wrong")
		if !errors.Is(err, share.ErrWrongPassword) {
			t.Errorf("expected ErrWrongPassword, got %v", err)
		}
		info, _ := svc.Inspect(result.Code)
		if info.Downloads != 0 {
			t.Errorf("denied fetch must not count, got %d downloads", info.Downloads)
		}
	})

	t.Run("correct password serves content and counts", func(t *testing.T) {
		path, _, err := svc.Fetch(ctx, result.Code, "hunter2")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		content, _ := os.ReadFile(path)
		if string(content) != "classified" {
			t.Errorf("unexpected content %q", content)
		}
		info, _ := svc.Inspect(result.Code)
		if info.Downloads != 1 {
			t.Errorf("expected 1 download, got %d", info.Downloads)
		}
	})
}

func TestShareService_Expiry(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	result, err := svc.CreateShare(ctx, "blink.txt", strings.NewReader("gone soon"), 9, "", time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The share becomes invisible the instant it expires, whether or not
	// the reclaimer has caught up.
	waitFor(t, 2*time.Second, func() bool {
		_, err := svc.Inspect(result.Code)
		return errors.Is(err, share.ErrNotFound)
	})
	if _, _, err := svc.Fetch(ctx, result.Code, ""); !errors.Is(err, share.ErrNotFound) {
		t.Errorf("expected ErrNotFound from fetch, got %v", err)
	}

	// The timer removes the entry and the backing blob.
	waitFor(t, 2*time.Second, func() bool {
		return store.Len() == 0
	})
	waitFor(t, 2*time.Second, func() bool {
		entries, err := os.ReadDir(svc.cfg.StoragePath)
		return err == nil && len(entries) == 0
	})
}

func TestShareService_Purge(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	result, err := svc.CreateShare(ctx, "a.txt", strings.NewReader("x"), 1, "", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("wrong token is rejected", func(t *testing.T) {
		if err := svc.Purge(result.Code, "del_bogus"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("valid token removes share and blob", func(t *testing.T) {
		if err := svc.Purge(result.Code, result.PurgeToken); err != nil {
			t.Fatalf("purge failed: %v", err)
		}
		if _, err := svc.Inspect(result.Code); !errors.Is(err, share.ErrNotFound) {
			t.Errorf("expected ErrNotFound after purge, got %v", err)
		}
		if store.Len() != 0 {
			t.Errorf("expected empty store, %d items remain", store.Len())
		}
		entries, err := os.ReadDir(svc.cfg.StoragePath)
		if err != nil {
			t.Fatalf("failed to list storage dir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty storage dir, %d blobs remain", len(entries))
		}
	})

	t.Run("purging an unknown code is not found", func(t *testing.T) {
		if err := svc.Purge("NOSUCH", "del_x"); !errors.Is(err, share.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestShareService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, _ := svc.CreateShare(ctx, "a.txt", strings.NewReader("0123456789"), 10, "", time.Hour)
	svc.CreateShare(ctx, "b.txt", strings.NewReader("01234"), 5, "", time.Hour)
	svc.Fetch(ctx, first.Code, "")

	stats := svc.Stats()
	if stats.ActiveShares != 2 {
		t.Errorf("expected 2 active shares, got %d", stats.ActiveShares)
	}
	if stats.TotalDownloads != 1 {
		t.Errorf("expected 1 download, got %d", stats.TotalDownloads)
	}
	if stats.BytesStored != 15 {
		t.Errorf("expected 15 bytes stored, got %d", stats.BytesStored)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "file.txt", "file.txt"},
		{"strips directory", "/path/to/file.txt", "file.txt"},
		{"strips windows path", "C:\\Users\\test\\file.txt", "file.txt"},
		{"empty name", "", "upload"},
		{"dot name", ".", "upload"},
		{"replaces slashes", "a/b/c.txt", "c.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
