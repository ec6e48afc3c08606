package files

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"

	"chat-node/internal/apperrors"
)

// Store is a byte-addressed blob store keyed by slash-separated paths.
// Read returns apperrors.ErrFileNotFound when nothing is stored at the path.
type Store interface {
	Write(ctx context.Context, p string, data []byte) error
	Read(ctx context.Context, p string) ([]byte, error)
	CreateDirAll(ctx context.Context, p string) error
}

const dirName = "files"

// Dir is the directory holding every attachment under root.
func Dir(root string) string {
	return path.Join(root, dirName)
}

// PathFor maps a file id to its location under root.
func PathFor(root, fileID string) string {
	return path.Join(Dir(root), fileID)
}

// NewFileID generates a fresh attachment id.
func NewFileID() string {
	return uuid.NewString()
}

// NormalizeFileID parses fileID and returns its canonical lowercase hyphenated
// form, the only form used to build paths.
func NormalizeFileID(fileID string) (string, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return "", apperrors.ErrInvalidFileID
	}
	id, err := uuid.Parse(fileID)
	if err != nil {
		return "", apperrors.WithCause(apperrors.ErrInvalidFileID, err)
	}
	return id.String(), nil
}

// ValidateFileID rejects ids that could escape the attachment directory.
func ValidateFileID(fileID string) error {
	_, err := NormalizeFileID(fileID)
	return err
}
