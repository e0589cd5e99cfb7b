package repositories

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-storefront/internal/domain/valueobjects"
)

func writeReference(t *testing.T, dir string, key valueobjects.ReferenceImageKey) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 5))))

	file := filepath.Join(dir, filepath.FromSlash(key.Path()))
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o644))
}

func mustKey(t *testing.T, bodyType valueobjects.BodyType, skinColor valueobjects.SkinColor) valueobjects.ReferenceImageKey {
	t.Helper()
	key, err := valueobjects.NewReferenceImageKey(bodyType, skinColor, "")
	require.NoError(t, err)
	return key
}

func TestFileReferenceCatalog_Resolve(t *testing.T) {
	dir := t.TempDir()
	present := mustKey(t, valueobjects.BodyAthletic, valueobjects.SkinOlive)
	writeReference(t, dir, present)

	catalog := NewFileReferenceCatalog(dir, "")

	url, err := catalog.Resolve(context.Background(), present)
	require.NoError(t, err)
	assert.Equal(t, "/images/bodytypes/headswapper/athletic/jordan_red_hoodie_reference_olive.png", url)

	_, err = catalog.Resolve(context.Background(), mustKey(t, valueobjects.BodySlim, valueobjects.SkinBrown))
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	_, err = catalog.Resolve(context.Background(), valueobjects.ReferenceImageKey{})
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestFileReferenceCatalog_ResolveWithoutDir(t *testing.T) {
	catalog := NewFileReferenceCatalog("", "https://cdn.example.com/images")

	url, err := catalog.Resolve(context.Background(), mustKey(t, valueobjects.BodySlim, valueobjects.SkinDarkBrown))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/images/bodytypes/headswapper/slim/jordan_red_hoodie_reference_dark-brown.png", url)
}

func TestFileReferenceCatalog_Audit(t *testing.T) {
	dir := t.TempDir()
	present := mustKey(t, valueobjects.BodyMuscular, valueobjects.SkinFairLight)
	writeReference(t, dir, present)

	corrupt := mustKey(t, valueobjects.BodyStocky, valueobjects.SkinBrown)
	file := filepath.Join(dir, filepath.FromSlash(corrupt.Path()))
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("not an image"), 0o644))

	entries, err := NewFileReferenceCatalog(dir, "").Audit(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, entries, len(valueobjects.BodyTypes)*len(valueobjects.SkinColors))

	var ok []AuditEntry
	for _, e := range entries {
		if e.OK() {
			ok = append(ok, e)
		}
	}
	require.Len(t, ok, 1)
	assert.Equal(t, present, ok[0].Key)
	assert.Equal(t, valueobjects.PNG, ok[0].Format)
	assert.Equal(t, 3, ok[0].Width)
	assert.Equal(t, 5, ok[0].Height)

	_, err = NewFileReferenceCatalog("", "").Audit(context.Background(), "")
	assert.Error(t, err)
}
