package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/askarov/filevault/internal/objectstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxFileSize = 100 * 1024 * 1024 // 100MB

// Service layers the upload/download flows, the trash lifecycle and the
// storage stats on top of a Store and the external object store. Byte
// release is best-effort: when the object store refuses to drop a key the
// metadata removal stands and the failure is logged, never surfaced as a
// failed user operation.
type Service struct {
	store       Store
	objects     objectstore.Client
	log         *zap.Logger
	quotaBytes  int64
	maxFileSize int64
}

// NewService wires the vault core together. quotaBytes is the per-user
// ceiling reported by Stats.
func NewService(store Store, objects objectstore.Client, log *zap.Logger, quotaBytes int64) *Service {
	return &Service{
		store:       store,
		objects:     objects,
		log:         log,
		quotaBytes:  quotaBytes,
		maxFileSize: defaultMaxFileSize,
	}
}

// CreateFolder validates and persists a new folder under an optional parent.
func (s *Service) CreateFolder(ctx context.Context, ownerID int64, name, color string, parentID *int64) (Folder, error) {
	return s.store.CreateFolder(ctx, ownerID, name, color, parentID)
}

// GetFolder enforces ownership on top of the store's unscoped lookup; a
// foreign folder is reported as not found.
func (s *Service) GetFolder(ctx context.Context, ownerID, id int64) (Folder, error) {
	folder, err := s.store.GetFolder(ctx, id)
	if err != nil {
		return Folder{}, err
	}
	if folder.OwnerID != ownerID {
		return Folder{}, ErrNotFound
	}
	return folder, nil
}

func (s *Service) ListFolders(ctx context.Context, ownerID int64, parentID *int64) ([]Folder, error) {
	return s.store.ListFolders(ctx, ownerID, parentID)
}

func (s *Service) UpdateFolder(ctx context.Context, id, ownerID int64, upd FolderUpdate) (Folder, error) {
	return s.store.UpdateFolder(ctx, id, ownerID, upd)
}

// DeleteFolder permanently removes a folder subtree and releases the bytes
// of every file it contained. Returns false when nothing was deleted.
func (s *Service) DeleteFolder(ctx context.Context, id, ownerID int64) (bool, error) {
	files, ok, err := s.store.DeleteFolder(ctx, id, ownerID)
	if err != nil {
		return false, err
	}
	if ok {
		s.releaseAll(ctx, files)
	}
	return ok, nil
}

// Upload stores the object bytes under a fresh key and registers the file
// metadata. The object is removed again if the metadata write fails.
func (s *Service) Upload(ctx context.Context, ownerID int64, folderID *int64, header *multipart.FileHeader) (File, error) {
	if header == nil {
		return File{}, fmt.Errorf("%w: missing file payload", ErrValidation)
	}
	if header.Size > s.maxFileSize {
		return File{}, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.maxFileSize)
	}

	key := fmt.Sprintf("%d/%s", ownerID, uuid.NewString())
	contentType := detectContentType(header)

	src, err := header.Open()
	if err != nil {
		return File{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := s.objects.Put(ctx, key, src, header.Size, contentType); err != nil {
		return File{}, fmt.Errorf("%w: store %s: %v", ErrObjectStore, key, err)
	}

	file, err := s.store.CreateFile(ctx, NewFile{
		OwnerID:    ownerID,
		FolderID:   folderID,
		Name:       header.Filename,
		MimeType:   contentType,
		Size:       header.Size,
		StorageKey: key,
	})
	if err != nil {
		if _, releaseErr := s.objects.Delete(ctx, key); releaseErr != nil {
			s.log.Warn("release orphaned upload", zap.String("key", key), zap.Error(releaseErr))
		}
		return File{}, err
	}
	return file, nil
}

// GetFile enforces ownership the same way GetFolder does.
func (s *Service) GetFile(ctx context.Context, ownerID, id int64) (File, error) {
	file, err := s.store.GetFile(ctx, id)
	if err != nil {
		return File{}, err
	}
	if file.OwnerID != ownerID {
		return File{}, ErrNotFound
	}
	return file, nil
}

// Download returns the file metadata together with a reader over its bytes.
func (s *Service) Download(ctx context.Context, ownerID, id int64) (File, io.ReadCloser, error) {
	file, err := s.GetFile(ctx, ownerID, id)
	if err != nil {
		return File{}, nil, err
	}

	reader, err := s.objects.Get(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			// Metadata without bytes means the stores diverged.
			s.log.Error("object missing for stored file",
				zap.Int64("file_id", file.ID),
				zap.String("key", file.StorageKey))
		}
		return File{}, nil, fmt.Errorf("%w: fetch %s: %v", ErrObjectStore, file.StorageKey, err)
	}
	return file, reader, nil
}

func (s *Service) ListFilesByFolder(ctx context.Context, ownerID int64, folderID *int64) ([]File, error) {
	return s.store.ListFilesByFolder(ctx, ownerID, folderID)
}

func (s *Service) ListRecentFiles(ctx context.Context, ownerID int64, limit int) ([]File, error) {
	return s.store.ListRecentFiles(ctx, ownerID, limit)
}

func (s *Service) ListSharedFiles(ctx context.Context, ownerID int64) ([]File, error) {
	return s.store.ListSharedFiles(ctx, ownerID)
}

func (s *Service) UpdateFile(ctx context.Context, id, ownerID int64, upd FileUpdate) (File, error) {
	return s.store.UpdateFile(ctx, id, ownerID, upd)
}

// DeleteFile permanently removes a file and releases its bytes. Idempotent:
// deleting an absent id reports false without error.
func (s *Service) DeleteFile(ctx context.Context, id, ownerID int64) (bool, error) {
	file, ok, err := s.store.DeleteFile(ctx, id, ownerID)
	if err != nil {
		return false, err
	}
	if ok {
		s.releaseAll(ctx, []File{file})
	}
	return ok, nil
}

func (s *Service) TrashFolder(ctx context.Context, id, ownerID int64) error {
	return s.store.TrashFolder(ctx, id, ownerID)
}

func (s *Service) RestoreFolder(ctx context.Context, id, ownerID int64) error {
	return s.store.RestoreFolder(ctx, id, ownerID)
}

func (s *Service) TrashFile(ctx context.Context, id, ownerID int64) error {
	return s.store.TrashFile(ctx, id, ownerID)
}

func (s *Service) RestoreFile(ctx context.Context, id, ownerID int64) error {
	return s.store.RestoreFile(ctx, id, ownerID)
}

// PurgeFolder permanently removes a trashed folder subtree.
func (s *Service) PurgeFolder(ctx context.Context, id, ownerID int64) error {
	files, err := s.store.PurgeFolder(ctx, id, ownerID)
	if err != nil {
		return err
	}
	s.releaseAll(ctx, files)
	return nil
}

// PurgeFile permanently removes a trashed file.
func (s *Service) PurgeFile(ctx context.Context, id, ownerID int64) error {
	file, err := s.store.PurgeFile(ctx, id, ownerID)
	if err != nil {
		return err
	}
	s.releaseAll(ctx, []File{file})
	return nil
}

// EmptyTrash purges everything the user has trashed. The retention timer
// that would call this automatically lives in an external scheduler; the
// vault only provides the mechanism.
func (s *Service) EmptyTrash(ctx context.Context, ownerID int64) error {
	files, err := s.store.EmptyTrash(ctx, ownerID)
	if err != nil {
		return err
	}
	s.releaseAll(ctx, files)
	return nil
}

// ListTrash returns the user's trashed folders and files.
func (s *Service) ListTrash(ctx context.Context, ownerID int64) ([]Folder, []File, error) {
	folders, err := s.store.ListTrashedFolders(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	files, err := s.store.ListTrashedFiles(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	return folders, files, nil
}

// Stats computes usage fresh on every call. Trashed files keep counting
// until purged.
func (s *Service) Stats(ctx context.Context, ownerID int64) (StorageStats, error) {
	used, err := s.store.UsedSpace(ctx, ownerID)
	if err != nil {
		return StorageStats{}, err
	}

	stats := StorageStats{UsedSpace: used, TotalSpace: s.quotaBytes}
	if s.quotaBytes > 0 {
		stats.Percent = float64(used) / float64(s.quotaBytes) * 100
	}
	return stats, nil
}

func (s *Service) releaseAll(ctx context.Context, files []File) {
	for _, file := range files {
		if _, err := s.objects.Delete(ctx, file.StorageKey); err != nil {
			s.log.Warn("release object bytes",
				zap.Int64("file_id", file.ID),
				zap.String("key", file.StorageKey),
				zap.Error(err))
		}
	}
}

func detectContentType(header *multipart.FileHeader) string {
	if contentType := header.Header.Get("Content-Type"); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}
