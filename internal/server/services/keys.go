package services

import (
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/idgate/internal/server/models"
)

const (
	proofKeyPrefix    = "identity-proof"
	documentKeyPrefix = "documents"
	defaultProofExt   = "jpg"
)

var proofExtByContentType = map[string]string{
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"image/heic":      "heic",
	"image/gif":       "gif",
	"application/pdf": "pdf",
}

// ProofKey is identity-proof/<userId>_<stamp>.<ext>.
func ProofKey(userID string, stamp int64, ext string) string {
	return fmt.Sprintf("%s/%s_%d.%s", proofKeyPrefix, userID, stamp, ext)
}

// DocumentKey is documents/<userId>/<type-lowercase>_<stamp>.
func DocumentKey(userID string, docType models.DocumentType, stamp int64) string {
	return fmt.Sprintf("%s/%s/%s_%d", documentKeyPrefix, userID, docType.KeyName(), stamp)
}

// proofExtension picks the key extension from the file name, then the
// content type, then falls back to jpg.
func proofExtension(fileName, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext != "" && len(ext) <= 5 && isAlnum(ext) {
		if ext == "jpeg" {
			return "jpg"
		}
		return ext
	}

	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if e, ok := proofExtByContentType[ct]; ok {
		return e
	}

	return defaultProofExt
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// stampClock hands out millisecond stamps that never repeat within the
// process, so two writes in the same millisecond still get distinct keys.
type stampClock struct {
	now  func() time.Time
	last atomic.Int64
}

func newStampClock(now func() time.Time) *stampClock {
	return &stampClock{now: now}
}

// Next returns the current instant and a stamp strictly greater than any
// previously returned one.
func (c *stampClock) Next() (time.Time, int64) {
	t := c.now()
	ms := t.UnixMilli()
	for {
		last := c.last.Load()
		next := ms
		if next <= last {
			next = last + 1
		}
		if c.last.CompareAndSwap(last, next) {
			return t, next
		}
	}
}
