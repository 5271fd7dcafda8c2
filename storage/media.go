package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
)

const (
	// MaxFileSize is the largest accepted upload (10MB)
	MaxFileSize = 10 * 1024 * 1024

	profileMaxWidth = 512
	thumbnailWidth  = 320
)

// Media kinds
const (
	KindImage = "image"
	KindVideo = "video"
)

var (
	allowedImageExts = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".svg":  "image/svg+xml",
		".webp": "image/webp",
	}
	allowedVideoExts = map[string]string{
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".avi":  "video/x-msvideo",
		".webm": "video/webm",
	}
)

// ErrInvalidFile wraps every rejection of an uploaded file
var ErrInvalidFile = errors.New("invalid file")

// File is an upload held in memory
type File struct {
	Name string
	Data []byte
}

// KindOf reports the media kind and content type implied by the extension
func KindOf(filename string) (kind, contentType string, err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := allowedImageExts[ext]; ok {
		return KindImage, ct, nil
	}
	if ct, ok := allowedVideoExts[ext]; ok {
		return KindVideo, ct, nil
	}
	return "", "", fmt.Errorf("%w: unsupported format %q. Allowed formats: jpg, jpeg, png, gif, svg, webp, mp4, mov, avi, webm", ErrInvalidFile, ext)
}

// ValidateFile checks size and extension. wantKind restricts the kind when not empty.
func ValidateFile(f File, wantKind string) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidFile, f.Name)
	}
	if len(f.Data) > MaxFileSize {
		return fmt.Errorf("%w: %s is too large. Maximum size is %d bytes", ErrInvalidFile, f.Name, MaxFileSize)
	}
	kind, _, err := KindOf(f.Name)
	if err != nil {
		return err
	}
	if wantKind != "" && kind != wantKind {
		return fmt.Errorf("%w: %s must be an %s", ErrInvalidFile, f.Name, wantKind)
	}
	return nil
}

// Thumbnailer extracts a still frame from a video as JPEG
type Thumbnailer interface {
	Thumbnail(ctx context.Context, video []byte, ext string) ([]byte, error)
}

// FFmpegThumbnailer grabs the frame at one second with the ffmpeg binary
type FFmpegThumbnailer struct{}

func (FFmpegThumbnailer) Thumbnail(ctx context.Context, video []byte, ext string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "nestfire-thumb-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	videoPath := filepath.Join(dir, "video"+ext)
	thumbnailPath := filepath.Join(dir, "thumbnail.jpg")
	if err := os.WriteFile(videoPath, video, 0600); err != nil {
		return nil, err
	}

	err = ffmpeg.Input(videoPath).
		Output(thumbnailPath, ffmpeg.KwArgs{"vframes": 1, "ss": "00:00:01"}).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("generate thumbnail: %w", err)
	}

	img, err := imaging.Open(thumbnailPath)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	resized := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Media validates, transforms and stores uploads on top of a MediaStore
type Media struct {
	store  MediaStore
	thumbs Thumbnailer
	logger *zap.Logger
}

func NewMedia(store MediaStore, thumbs Thumbnailer, logger *zap.Logger) *Media {
	return &Media{store: store, thumbs: thumbs, logger: logger.Named("media")}
}

// ThumbnailKey is the object key of the thumbnail generated for a video key
func ThumbnailKey(publicID string) string {
	base := strings.TrimSuffix(path.Base(publicID), path.Ext(publicID))
	return "thumbnails/" + base + ".jpg"
}

func objectKey(prefix, filename string) string {
	return prefix + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// UploadPostMedia stores every file of a post. Files must already be validated. On
// failure the objects stored so far are removed.
func (m *Media) UploadPostMedia(ctx context.Context, files []File) ([]models.MediaRef, error) {
	refs := make([]models.MediaRef, 0, len(files))
	for _, f := range files {
		ref, err := m.uploadOne(ctx, "posts", f)
		if err != nil {
			m.DeleteAll(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (m *Media) uploadOne(ctx context.Context, prefix string, f File) (models.MediaRef, error) {
	kind, contentType, err := KindOf(f.Name)
	if err != nil {
		return models.MediaRef{}, err
	}
	key := objectKey(prefix, f.Name)
	ref, err := m.store.Upload(ctx, key, contentType, bytes.NewReader(f.Data))
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	ref.Kind = kind

	if kind == KindVideo && m.thumbs != nil {
		thumb, err := m.thumbs.Thumbnail(ctx, f.Data, filepath.Ext(key))
		if err != nil {
			// a post without a preview frame is still usable
			m.logger.Warn("video thumbnail skipped", zap.String("key", key), zap.Error(err))
			return ref, nil
		}
		tref, err := m.store.Upload(ctx, ThumbnailKey(key), "image/jpeg", bytes.NewReader(thumb))
		if err != nil {
			m.logger.Warn("thumbnail upload failed", zap.String("key", key), zap.Error(err))
			return ref, nil
		}
		ref.ThumbnailURL = tref.URL
	}
	return ref, nil
}

// UploadProfileImage shrinks raster images wider than 512px and stores the result
func (m *Media) UploadProfileImage(ctx context.Context, f File) (models.MediaRef, error) {
	if err := ValidateFile(f, KindImage); err != nil {
		return models.MediaRef{}, err
	}
	data := f.Data
	if format, err := imaging.FormatFromFilename(f.Name); err == nil {
		if resized, ok := shrink(data, format, profileMaxWidth); ok {
			data = resized
		}
	}
	return m.uploadOne(ctx, "profiles", File{Name: f.Name, Data: data})
}

func shrink(data []byte, format imaging.Format, maxWidth int) ([]byte, bool) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil || img.Bounds().Dx() <= maxWidth {
		return nil, false
	}
	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// DeleteAll removes the objects and their thumbnails, logging failures
func (m *Media) DeleteAll(ctx context.Context, refs []models.MediaRef) {
	for _, ref := range refs {
		if ref.PublicID == "" {
			continue
		}
		if err := m.store.Delete(ctx, ref.PublicID); err != nil {
			m.logger.Warn("media delete failed", zap.String("publicId", ref.PublicID), zap.Error(err))
		}
		if ref.ThumbnailURL != "" {
			if err := m.store.Delete(ctx, ThumbnailKey(ref.PublicID)); err != nil {
				m.logger.Warn("thumbnail delete failed", zap.String("publicId", ref.PublicID), zap.Error(err))
			}
		}
	}
}
