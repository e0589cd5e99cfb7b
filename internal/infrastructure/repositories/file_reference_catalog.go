package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"tryon-storefront/internal/domain/valueobjects"
)

const DefaultURLPrefix = "/images/"

var ErrReferenceNotFound = errors.New("reference image not found")

// FileReferenceCatalog serves reference images from a local images
// directory. With no directory configured, every key resolves and the
// file is assumed to be hosted elsewhere under urlPrefix.
type FileReferenceCatalog struct {
	imagesDir string
	urlPrefix string
}

func NewFileReferenceCatalog(imagesDir, urlPrefix string) *FileReferenceCatalog {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &FileReferenceCatalog{
		imagesDir: imagesDir,
		urlPrefix: urlPrefix,
	}
}

func (c *FileReferenceCatalog) ImagesDir() string {
	return c.imagesDir
}

func (c *FileReferenceCatalog) Resolve(ctx context.Context, key valueobjects.ReferenceImageKey) (string, error) {
	if key.IsZero() {
		return "", fmt.Errorf("%w: empty key", ErrReferenceNotFound)
	}
	if c.imagesDir != "" {
		file, err := c.filePath(key)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(file); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrReferenceNotFound, key, err)
		}
	}
	return c.urlPrefix + path.Clean(key.Path()), nil
}

// filePath maps a key onto the images directory and refuses anything that
// would land outside it.
func (c *FileReferenceCatalog) filePath(key valueobjects.ReferenceImageKey) (string, error) {
	base, err := filepath.Abs(c.imagesDir)
	if err != nil {
		return "", fmt.Errorf("invalid images dir: %w", err)
	}
	full := filepath.Join(base, filepath.FromSlash(key.Path()))
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid reference image path: %s", key.Path())
	}
	return full, nil
}

type AuditEntry struct {
	Key       valueobjects.ReferenceImageKey
	File      string
	SizeBytes int64
	Format    valueobjects.ImageFormat
	Width     int
	Height    int
	Err       error
}

func (e AuditEntry) OK() bool {
	return e.Err == nil
}

// Audit checks that every body type and skin color combination has a
// decodable reference image for garment.
func (c *FileReferenceCatalog) Audit(ctx context.Context, garment string) ([]AuditEntry, error) {
	if c.imagesDir == "" {
		return nil, errors.New("images dir is not configured")
	}

	var entries []AuditEntry
	for _, bodyType := range valueobjects.BodyTypes {
		for _, skinColor := range valueobjects.SkinColors {
			if err := ctx.Err(); err != nil {
				return entries, err
			}
			key, err := valueobjects.NewReferenceImageKey(bodyType, skinColor, garment)
			if err != nil {
				return nil, err
			}
			entries = append(entries, c.auditKey(key))
		}
	}
	return entries, nil
}

func (c *FileReferenceCatalog) auditKey(key valueobjects.ReferenceImageKey) AuditEntry {
	entry := AuditEntry{Key: key}

	file, err := c.filePath(key)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.File = file

	data, err := os.ReadFile(file)
	if err != nil {
		entry.Err = fmt.Errorf("%w: %w", ErrReferenceNotFound, err)
		return entry
	}
	entry.SizeBytes = int64(len(data))

	config, format, err := valueobjects.DetectFormat(data)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Format = format
	entry.Width = config.Width
	entry.Height = config.Height
	return entry
}
