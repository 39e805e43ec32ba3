package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"quickshare/internal/server/config"
	"quickshare/internal/server/share"
	"quickshare/internal/server/storage"

	qrcode "github.com/skip2/go-qrcode"
)

// Sentinel errors for the service layer. Core denials (not found, password
// required, wrong password, capacity exhausted) pass through from the share
// package unchanged.
var (
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
	ErrInvalidTTL     = errors.New("requested lifetime is out of range")
	ErrInvalidToken   = errors.New("invalid purge token")
	ErrStorageFailure = errors.New("blob storage failure")
)

// CreateResult is returned after a successful upload.
type CreateResult struct {
	Code        string    `json:"code"`
	DownloadURL string    `json:"download_url"`
	QRCode      string    `json:"qr_code,omitempty"`
	PurgeToken  string    `json:"purge_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
}

// ShareInfo is returned for metadata queries.
type ShareInfo struct {
	Code              string    `json:"code"`
	Filename          string    `json:"filename"`
	Size              int64     `json:"size"`
	UploadedAt        time.Time `json:"uploaded_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	Downloads         int       `json:"downloads"`
	PasswordProtected bool      `json:"password_protected"`
}

// ShareService contains the business logic for creating, inspecting,
// fetching and purging shares. It owns the ordering guarantees the core
// relies on: the blob is fully written before a code is published, and a
// failed creation after a partial write triggers a compensating delete.
type ShareService struct {
	store     *share.Store
	gate      *share.Gate
	reclaimer *share.Reclaimer
	blobs     storage.Store
	cfg       *config.Config
}

// NewShareService creates a new share service.
func NewShareService(store *share.Store, gate *share.Gate, reclaimer *share.Reclaimer, blobs storage.Store, cfg *config.Config) *ShareService {
	return &ShareService{
		store:     store,
		gate:      gate,
		reclaimer: reclaimer,
		blobs:     blobs,
		cfg:       cfg,
	}
}

// CreateShare stores the uploaded content, mints a code and arms the expiry
// timer. TTL of zero means the configured default; a TTL beyond the
// configured maximum is rejected.
func (s *ShareService) CreateShare(ctx context.Context, filename string, data io.Reader, size int64, password string, ttl time.Duration) (*CreateResult, error) {
	if size > s.cfg.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if ttl == 0 {
		ttl = s.cfg.DefaultTTL
	}
	if ttl < 0 || ttl > s.cfg.MaxTTL {
		return nil, ErrInvalidTTL
	}

	// Write the blob first. No code exists for a partially written blob, so
	// a lookup can never resolve to one.
	blobRef := storage.NewBlobRef(filename)
	written, err := s.blobs.Save(blobRef, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if written > s.cfg.MaxFileSize {
		s.blobs.Delete(blobRef)
		return nil, ErrFileTooLarge
	}

	var passwordHash *string
	if password != "" {
		hash, err := share.HashPassword(password)
		if err != nil {
			s.blobs.Delete(blobRef)
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = &hash
	}

	purgeToken, err := generateSecureToken(24)
	if err != nil {
		s.blobs.Delete(blobRef)
		return nil, fmt.Errorf("failed to generate purge token: %w", err)
	}
	purgeToken = "del_" + purgeToken

	now := time.Now().UTC()
	item := &share.Item{
		BlobRef:      blobRef,
		OriginalName: sanitizeFilename(filename),
		SizeBytes:    written,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		PurgeToken:   purgeToken,
	}

	code, err := s.store.Put(item)
	if err != nil {
		// Compensating delete: the blob must not outlive a failed insert.
		s.blobs.Delete(blobRef)
		return nil, err
	}
	s.reclaimer.Schedule(code, item.ExpiresAt)

	downloadURL := fmt.Sprintf("%s/download/%s", s.cfg.BaseURL, code)

	slog.Info("share created",
		"code", code,
		"filename", item.OriginalName,
		"size", written,
		"expires_at", item.ExpiresAt,
		"password_protected", passwordHash != nil,
	)

	return &CreateResult{
		Code:        code,
		DownloadURL: downloadURL,
		QRCode:      qrDataURL(downloadURL),
		PurgeToken:  purgeToken,
		ExpiresAt:   item.ExpiresAt,
		Filename:    item.OriginalName,
		Size:        written,
	}, nil
}

// Inspect returns metadata about a share without serving the file. Expired
// shares report as not found whether or not the reclaimer has run.
func (s *ShareService) Inspect(code string) (*ShareInfo, error) {
	item, err := s.gate.Lookup(code)
	if err != nil {
		return nil, err
	}

	return &ShareInfo{
		Code:              item.Code,
		Filename:          item.OriginalName,
		Size:              item.SizeBytes,
		UploadedAt:        item.CreatedAt,
		ExpiresAt:         item.ExpiresAt,
		Downloads:         item.DownloadCount,
		PasswordProtected: item.PasswordProtected(),
	}, nil
}

// Fetch authorizes the download, records it, and returns the path to the
// blob for streaming. The count is bumped before any bytes move, so an
// aborted stream still counts. A share deleted between authorization and
// the increment reports as not found.
func (s *ShareService) Fetch(ctx context.Context, code, password string) (filePath string, filename string, err error) {
	item, err := s.gate.Authorize(code, password)
	if err != nil {
		return "", "", err
	}

	path, err := s.blobs.Path(item.BlobRef)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	count, err := s.store.RecordDownload(code)
	if err != nil {
		return "", "", share.ErrNotFound
	}

	slog.Info("share downloaded",
		"code", item.Code,
		"filename", item.OriginalName,
		"downloads", count,
	)

	return path, item.OriginalName, nil
}

// Purge removes a share before its TTL using the token handed out at
// creation. It rides the reclaimer's claim path, so racing with an expiry
// timer cannot double-delete the blob.
func (s *ShareService) Purge(code, token string) error {
	item, err := s.gate.Lookup(code)
	if err != nil {
		return err
	}
	if item.PurgeToken != token {
		return ErrInvalidToken
	}

	if err := s.reclaimer.Reclaim(code); err != nil {
		return err
	}

	slog.Info("share purged", "code", item.Code, "filename", item.OriginalName)
	return nil
}

// Stats returns aggregate counters over all active shares.
func (s *ShareService) Stats() share.Stats {
	return s.store.Stats()
}

// --- Helpers ---

// generateSecureToken produces a cryptographically secure, URL-safe random string.
func generateSecureToken(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("crypto/rand failure: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// qrDataURL renders the download URL as a PNG data URL for display next to
// the code. QR rendering is cosmetic: on failure the result simply carries
// no image.
func qrDataURL(url string) string {
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr encoding failed", "url", url, "error", err)
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// sanitizeFilename strips directory components and limits length.
func sanitizeFilename(name string) string {
	// Normalize Windows-style backslashes to forward slashes before
	// calling filepath.Base, which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}

	if name == "" || name == "." || name == "/" {
		name = "upload"
	}

	return name
}
