// package media stores files uploaded through the micropub media endpoint.
package media

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

// MaxImageWidth is the widest an uploaded image is stored at. Anything
// wider is downscaled before it hits the disk.
const MaxImageWidth = 4096

// A Store writes uploaded files beneath a single directory. File names are
// derived from the content, so storing the same bytes twice is harmless.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory files are stored beneath.
func (s *Store) Dir() string {
	return s.dir
}

// Create stores data and returns the stored file's name. Images wider than
// MaxImageWidth are downscaled and re-encoded as JPEG.
func (s *Store) Create(name, contentType string, data []byte) (string, error) {
	if strings.HasPrefix(contentType, "image/") {
		scaled, scaledType, err := normalizeImage(data)
		if err == nil {
			data, contentType = scaled, scaledType
		}
		// an undecodable image is stored verbatim
	}

	filename := fmt.Sprintf("%x%s", sha1.Sum(data), extension(name, contentType))
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

// normalizeImage decodes data and downscales it if it is wider than
// MaxImageWidth. Untouched images come back byte for byte.
func normalizeImage(data []byte) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if img.Bounds().Dx() <= MaxImageWidth {
		return data, "image/" + format, nil
	}

	scaled := resize.Resize(MaxImageWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, nil); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}

// extension picks a file extension for the stored content type, falling
// back to the original name's extension. The content type wins because a
// downscaled image may no longer be in its uploaded format.
func extension(name, contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return filepath.Ext(name)
}
