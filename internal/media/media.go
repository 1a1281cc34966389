// Package media turns local files into wire-ready image attachments.
package media

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/prsnl/prsnl/internal/model"
)

// MaxImageBytes caps attachment size before base64 expansion.
const MaxImageBytes = 5 << 20

// LoadImage reads an image file, sniffs its MIME type from content and
// returns it base64-encoded. Non-image files and oversized files are
// rejected.
func LoadImage(path string) (*model.ImageData, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > MaxImageBytes {
		return nil, fmt.Errorf("image %s is %d bytes, limit is %d", path, info.Size(), MaxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%s is %s, not an image", path, mime.String())
	}

	return &model.ImageData{
		Data:     base64.StdEncoding.EncodeToString(data),
		Mimetype: mime.String(),
	}, nil
}
