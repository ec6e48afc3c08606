package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/files"
	"chat-node/internal/models"
	"chat-node/internal/observability"
)

// FileService stores uploads and resolves attachments, local first and then
// from the node that holds them.
type FileService struct {
	files     files.Store
	transport Transport
	settings  Settings
	logger    *zap.Logger
}

func NewFileService(fileStore files.Store, transport Transport, settings Settings, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{
		files:     fileStore,
		transport: transport,
		settings:  settings.withDefaults(),
		logger:    logger,
	}
}

// Upload stores data under a fresh file id held by this node. An empty or
// generic mime type is replaced by content sniffing.
func (s *FileService) Upload(ctx context.Context, name, mimeType string, data []byte) (models.FileInfo, error) {
	ctx, span := tracer.Start(ctx, "file.upload")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return models.FileInfo{}, apperrors.ErrEmptyFileName
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(data).String()
	}

	fileID := files.NewFileID()
	span.SetAttributes(attribute.String("file_id", fileID))
	if err := s.files.CreateDirAll(ctx, files.Dir(s.settings.FilesRoot)); err != nil {
		return models.FileInfo{}, err
	}
	if err := s.files.Write(ctx, files.PathFor(s.settings.FilesRoot, fileID), data); err != nil {
		return models.FileInfo{}, err
	}
	s.logger.Info("file uploaded",
		zap.String("file_id", fileID),
		zap.String("file_name", name),
		zap.Int("size", len(data)),
	)

	return models.FileInfo{
		FileName:   name,
		FileSize:   uint64(len(data)),
		MimeType:   mimeType,
		FileID:     fileID,
		SenderNode: s.settings.NodeID,
	}, nil
}

// Resolve returns the bytes of fileID. On a local miss the sender node is asked
// once and a successful answer is cached locally.
func (s *FileService) Resolve(ctx context.Context, fileID, senderNode string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "file.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("file_id", fileID),
		attribute.String("sender_node", senderNode),
	)

	fileID, err := files.NormalizeFileID(fileID)
	if err != nil {
		return nil, err
	}
	p := files.PathFor(s.settings.FilesRoot, fileID)

	data, err := s.files.Read(ctx, p)
	if err == nil {
		observability.IncFileResolution("local")
		return data, nil
	}
	if !errors.Is(err, apperrors.ErrFileNotFound) {
		return nil, err
	}

	senderNode = strings.TrimSpace(senderNode)
	if senderNode == "" || senderNode == s.settings.NodeID {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.settings.FileTimeout)
	defer cancel()
	var resp models.RemoteFileResponse
	if err := s.transport.Call(callCtx, senderNode, models.OpGetRemoteFile, models.RemoteFileRequest{FileID: fileID}, &resp); err != nil {
		s.logger.Warn("remote file fetch failed",
			zap.String("file_id", fileID),
			zap.String("peer", senderNode),
			zap.Error(err),
		)
		return nil, apperrors.WithCause(apperrors.ErrFileNotFound, err)
	}

	if err := s.cache(ctx, p, resp.Data); err != nil {
		observability.IncPersistenceError("file_cache")
		s.logger.Error("file cache write failed", zap.String("file_id", fileID), zap.Error(err))
	}
	observability.IncFileResolution("remote")
	return resp.Data, nil
}

// ServeRemote answers a peer's fetch from the local store only.
func (s *FileService) ServeRemote(ctx context.Context, fileID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "file.serve_remote")
	defer span.End()
	span.SetAttributes(attribute.String("file_id", fileID))

	fileID, err := files.NormalizeFileID(fileID)
	if err != nil {
		return nil, err
	}
	return s.files.Read(ctx, files.PathFor(s.settings.FilesRoot, fileID))
}

func (s *FileService) cache(ctx context.Context, p string, data []byte) error {
	if err := s.files.CreateDirAll(ctx, files.Dir(s.settings.FilesRoot)); err != nil {
		return err
	}
	return s.files.Write(ctx, p, data)
}
