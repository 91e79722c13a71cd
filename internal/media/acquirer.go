// Package media downloads remote images and turns them into durable references
// for podcast records.
package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	userAgent       = "podcast-app-image-fetcher/1.0"
	DefaultMaxBytes = 5 * 1024 * 1024
)

// Result never carries a Go error; callers decide whether a failure is fatal.
type Result struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

func failed(format string, args ...interface{}) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

type Acquirer struct {
	client   *http.Client
	store    Store
	fallback Store
	maxBytes int64
	log      logrus.FieldLogger
}

// NewAcquirer uploads through store and falls back to inline data URIs when the
// upload fails. A nil store means inline only.
func NewAcquirer(store Store, timeout time.Duration, maxBytes int64, log logrus.FieldLogger) *Acquirer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if store == nil {
		store = InlineStore{}
	}
	return &Acquirer{
		client:   &http.Client{Timeout: timeout},
		store:    store,
		fallback: InlineStore{},
		maxBytes: maxBytes,
		log:      log,
	}
}

func (a *Acquirer) DownloadAndStoreImage(ctx context.Context, rawURL string, ownerID uint, hint string) Result {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return failed("Invalid image URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return failed("Invalid image URL")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.WithError(err).WithField("url", u.String()).Warn("image download failed")
		return failed("Failed to download image")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed("Failed to download image: %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.HasPrefix(mediaType, "image/") {
		return failed("URL does not point to a valid image")
	}

	if resp.ContentLength > a.maxBytes {
		return failed("Image too large (max %d bytes)", a.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return failed("Failed to read image")
	}
	if int64(len(data)) > a.maxBytes {
		return failed("Image too large (max %d bytes)", a.maxBytes)
	}

	key := objectKey(ownerID, hint, mediaType)
	stored, err := a.store.Put(ctx, key, mediaType, data)
	if err != nil {
		a.log.WithError(err).WithField("key", key).Warn("image upload failed, storing inline")
		stored, err = a.fallback.Put(ctx, key, mediaType, data)
		if err != nil {
			return failed("Failed to store image: %v", errors.Cause(err))
		}
	}
	return Result{Success: true, ImageURL: stored}
}

func objectKey(ownerID uint, hint, mediaType string) string {
	return fmt.Sprintf("podcasts/%d/%s-%s%s", ownerID, slug(hint), uuid.NewString(), extension(mediaType))
}

func slug(hint string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(hint)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
		if b.Len() >= 40 {
			break
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "image"
	}
	return s
}

func extension(mediaType string) string {
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/avif":
		return ".avif"
	}
	return ""
}
