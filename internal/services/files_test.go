package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/files"
	"chat-node/internal/mocks"
	"chat-node/internal/models"
)

func newFileService(t *testing.T) (*FileService, *files.FSStore, *mocks.TransportMock) {
	t.Helper()
	fileStore := files.NewFSStore(afero.NewMemMapFs())
	transport := new(mocks.TransportMock)
	return NewFileService(fileStore, transport, testSettings(), zap.NewNop()), fileStore, transport
}

func TestUploadStoresUnderFreshID(t *testing.T) {
	svc, fileStore, _ := newFileService(t)
	ctx := context.Background()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	info, err := svc.Upload(ctx, "pic.png", "", png)
	require.NoError(t, err)
	assert.Equal(t, "pic.png", info.FileName)
	assert.Equal(t, uint64(len(png)), info.FileSize)
	assert.Equal(t, "image/png", info.MimeType)
	assert.Equal(t, self, info.SenderNode)
	require.NoError(t, files.ValidateFileID(info.FileID))

	data, err := fileStore.Read(ctx, files.PathFor("/data", info.FileID))
	require.NoError(t, err)
	assert.Equal(t, png, data)

	_, err = svc.Upload(ctx, " ", "", png)
	assert.ErrorIs(t, err, apperrors.ErrEmptyFileName)
}

func TestResolveLocalHit(t *testing.T) {
	svc, _, transport := newFileService(t)
	ctx := context.Background()
	info, err := svc.Upload(ctx, "a.txt", "text/plain", []byte("local"))
	require.NoError(t, err)

	data, err := svc.Resolve(ctx, info.FileID, "bob.os")
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), data)
	transport.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveFetchesRemoteAndCaches(t *testing.T) {
	svc, _, transport := newFileService(t)
	ctx := context.Background()
	fileID := files.NewFileID()

	call := transport.On("Call", mock.Anything, "bob.os", models.OpGetRemoteFile,
		models.RemoteFileRequest{FileID: fileID}, mock.Anything).Return(nil, []byte("remote bytes")).Once()

	data, err := svc.Resolve(ctx, fileID, "bob.os")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote bytes"), data)

	call.Unset()
	transport.On("Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("transport disabled"))

	data, err = svc.Resolve(ctx, fileID, "bob.os")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote bytes"), data)
	transport.AssertNumberOfCalls(t, "Call", 1)
}

func TestResolveOwnFileMissingIsNotFound(t *testing.T) {
	svc, _, transport := newFileService(t)

	_, err := svc.Resolve(context.Background(), files.NewFileID(), self)
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
	transport.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveRemoteFailureIsNotFound(t *testing.T) {
	svc, _, transport := newFileService(t)
	transport.On("Call", mock.Anything, "bob.os", models.OpGetRemoteFile, mock.Anything, mock.Anything).
		Return(apperrors.Transport("bob.os", models.OpGetRemoteFile, context.DeadlineExceeded))

	_, err := svc.Resolve(context.Background(), files.NewFileID(), "bob.os")
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestResolveRejectsBadFileID(t *testing.T) {
	svc, _, _ := newFileService(t)

	_, err := svc.Resolve(context.Background(), "../secrets", "bob.os")
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileID)
}

func TestServeRemoteIsLocalOnly(t *testing.T) {
	svc, _, transport := newFileService(t)
	ctx := context.Background()

	_, err := svc.ServeRemote(ctx, files.NewFileID())
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
	transport.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	info, err := svc.Upload(ctx, "a.txt", "text/plain", []byte("x"))
	require.NoError(t, err)
	data, err := svc.ServeRemote(ctx, info.FileID)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestResolveUsesCanonicalFileID(t *testing.T) {
	svc, _, transport := newFileService(t)
	ctx := context.Background()
	info, err := svc.Upload(ctx, "a.txt", "text/plain", []byte("local"))
	require.NoError(t, err)

	data, err := svc.Resolve(ctx, " {"+strings.ToUpper(info.FileID)+"} ", "bob.os")
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), data)

	data, err = svc.ServeRemote(ctx, "urn:uuid:"+info.FileID)
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), data)

	missing := files.NewFileID()
	transport.On("Call", mock.Anything, "bob.os", models.OpGetRemoteFile,
		models.RemoteFileRequest{FileID: missing}, mock.Anything).Return(nil, []byte("remote")).Once()

	data, err = svc.Resolve(ctx, "  "+missing, "bob.os")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote"), data)
	transport.AssertExpectations(t)
}
