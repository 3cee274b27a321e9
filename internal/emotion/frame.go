package emotion

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// MaxFrameSize bounds the long side of a frame sent to the classifier.
	MaxFrameSize = 224
	JPEGQuality  = 90
	WebPQuality  = 70
)

var (
	ErrInvalidImageData = errors.New("invalid base64 image data")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// DecodeDataURL accepts raw base64 or a data URL ("data:image/png;base64,...").
func DecodeDataURL(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if _, after, found := strings.Cut(data, ","); found {
		data = after
	}
	if data == "" {
		return nil, ErrInvalidImageData
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
		if err != nil {
			return nil, ErrInvalidImageData
		}
	}
	if len(raw) == 0 {
		return nil, ErrInvalidImageData
	}
	return raw, nil
}

// Normalize decodes png, jpeg, gif or webp and scales the frame down to MaxFrameSize.
func Normalize(raw []byte) (image.Image, error) {
	decoded, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrUnsupportedImage
	}
	switch format {
	case "png", "jpeg", "gif", "webp":
	default:
		return nil, ErrUnsupportedImage
	}
	return resizeToFit(decoded, MaxFrameSize, MaxFrameSize), nil
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

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// EncodeJPEG is the wire format sent to the classifier.
func EncodeJPEG(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Archive stores normalized frames as lossy webp under a root directory.
type Archive struct {
	root string
}

// NewArchive returns nil when root is empty, which disables archiving.
func NewArchive(root string) *Archive {
	if strings.TrimSpace(root) == "" {
		return nil
	}
	return &Archive{root: root}
}

// Save writes img under <root>/<userID>/<sha256>.webp and returns the path.
func (a *Archive) Save(userID uint, img image.Image) (string, error) {
	if a == nil {
		return "", nil
	}
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return "", fmt.Errorf("encode webp: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	path := filepath.Join(a.root, fmt.Sprintf("%d", userID), hex.EncodeToString(sum[:])+".webp")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", err
	}
	return filepath.ToSlash(path), nil
}
