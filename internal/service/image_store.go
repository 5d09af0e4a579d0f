package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "media"
	DefaultImageMaxUploadSizeMB = 10
	MaxImageSide                = 2048
	WebPQuality                 = 80
)

// ImageUpload is a raw image file received with a post form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageStore normalizes post images to WebP and keeps them under the media directory.
type ImageStore struct {
	dir      string
	maxBytes int64
}

// NewImageStore builds an ImageStore from MEDIA_DIR and IMAGE_MAX_UPLOAD_SIZE_MB.
func NewImageStore(cfg *config.Config) *ImageStore {
	dir := DefaultMediaDir
	maxMB := DefaultImageMaxUploadSizeMB
	if cfg != nil {
		if cfg.MediaDir != "" {
			dir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxMB = cfg.ImageMaxUploadSizeMB
		}
	}
	return &ImageStore{dir: dir, maxBytes: int64(maxMB) * 1024 * 1024}
}

// Dir is the filesystem root served under /media.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save validates and re-encodes the upload and returns its path relative to Dir.
// Every call writes a new file, so posts never share an image.
func (s *ImageStore) Save(in ImageUpload) (string, error) {
	if len(in.Content) == 0 {
		return "", imageFieldError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return "", imageFieldError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", imageFieldError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", imageFieldError("Invalid image file")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", imageFieldError("Image content type mismatch")
	}

	encoded, err := encodeWebP(resizeToFit(decoded, MaxImageSide, MaxImageSide), WebPQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := uuid.NewString()
	rel := filepath.ToSlash(filepath.Join("posts", name[:2], name+".webp"))
	if err := writeBytesToFile(filepath.Join(s.dir, filepath.FromSlash(rel)), encoded); err != nil {
		return "", models.NewInternalError(err)
	}
	return rel, nil
}

// Remove deletes a previously saved image. Paths outside Dir are ignored.
func (s *ImageStore) Remove(rel string) {
	if rel == "" {
		return
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, clean))
}

func imageFieldError(msg string) error {
	return models.NewFieldValidationError(map[string]string{"image": msg})
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
