package files

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"chat-node/internal/apperrors"
)

// FSStore keeps attachments on a filesystem, the OS one in production and an
// in-memory one in tests.
type FSStore struct {
	fs afero.Fs
}

func NewFSStore(fs afero.Fs) *FSStore {
	return &FSStore{fs: fs}
}

// NewOSStore stores attachments on local disk.
func NewOSStore() *FSStore {
	return NewFSStore(afero.NewOsFs())
}

func (s *FSStore) Write(_ context.Context, p string, data []byte) error {
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return errors.Wrapf(err, "write file %s", p)
	}
	return nil
}

func (s *FSStore) Read(_ context.Context, p string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.WithCause(apperrors.ErrFileNotFound, err)
		}
		return nil, errors.Wrapf(err, "read file %s", p)
	}
	return data, nil
}

func (s *FSStore) CreateDirAll(_ context.Context, p string) error {
	if err := s.fs.MkdirAll(p, 0o755); err != nil {
		return errors.Wrapf(err, "create dir %s", p)
	}
	return nil
}
