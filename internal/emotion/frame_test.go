package emotion

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeDataURL(t *testing.T) {
	raw := []byte("hello frame")
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"Plain base64", encoded, raw, false},
		{"Data URL", "data:image/png;base64," + encoded, raw, false},
		{"Unpadded", strings.TrimRight(encoded, "="), raw, false},
		{"Empty", "", nil, true},
		{"Prefix only", "data:image/png;base64,", nil, true},
		{"Garbage", "%%%not-base64%%%", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDataURL(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImageData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("Scales down the long side", func(t *testing.T) {
		img, err := Normalize(pngBytes(t, 448, 224))
		require.NoError(t, err)
		assert.Equal(t, 224, img.Bounds().Dx())
		assert.Equal(t, 112, img.Bounds().Dy())
	})

	t.Run("Leaves small frames alone", func(t *testing.T) {
		img, err := Normalize(pngBytes(t, 64, 48))
		require.NoError(t, err)
		assert.Equal(t, 64, img.Bounds().Dx())
		assert.Equal(t, 48, img.Bounds().Dy())
	})

	t.Run("Rejects non-images", func(t *testing.T) {
		_, err := Normalize([]byte("definitely not an image"))
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})
}

func TestEncodeJPEG(t *testing.T) {
	img, err := Normalize(pngBytes(t, 32, 32))
	require.NoError(t, err)
	out, err := EncodeJPEG(img)
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestArchive(t *testing.T) {
	assert.Nil(t, NewArchive(""))
	var disabled *Archive
	path, err := disabled.Save(1, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.Empty(t, path)

	root := t.TempDir()
	img, err := Normalize(pngBytes(t, 40, 30))
	require.NoError(t, err)

	path, err = NewArchive(root).Save(7, img)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".webp"))
	assert.Equal(t, filepath.Join(root, "7"), filepath.Dir(filepath.FromSlash(path)))

	data, err := os.ReadFile(filepath.FromSlash(path))
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
}
