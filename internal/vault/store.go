package vault

import "context"

// Store is the metadata persistence contract. Two implementations exist: an
// in-memory arena for tests and single-node development, and a Postgres
// store for production. Both guarantee that cascading operations over a
// folder subtree are atomic with respect to concurrent readers.
//
// Get operations do not check ownership; callers compare OwnerID themselves
// and translate mismatches to ErrNotFound. Every other owner-scoped
// operation behaves as ErrNotFound when the record exists but belongs to
// someone else.
type Store interface {
	// Users.
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)

	// Folders.
	CreateFolder(ctx context.Context, ownerID int64, name, color string, parentID *int64) (Folder, error)
	GetFolder(ctx context.Context, id int64) (Folder, error)
	ListFolders(ctx context.Context, ownerID int64, parentID *int64) ([]Folder, error)
	UpdateFolder(ctx context.Context, id, ownerID int64, upd FolderUpdate) (Folder, error)
	// DeleteFolder permanently removes the folder and its entire subtree,
	// children before parents and files before their containing folder. The
	// removed files are returned so the caller can release their bytes.
	// Returns false when the folder does not exist or is not owned.
	DeleteFolder(ctx context.Context, id, ownerID int64) ([]File, bool, error)

	// Files.
	CreateFile(ctx context.Context, nf NewFile) (File, error)
	GetFile(ctx context.Context, id int64) (File, error)
	ListFilesByFolder(ctx context.Context, ownerID int64, folderID *int64) ([]File, error)
	ListRecentFiles(ctx context.Context, ownerID int64, limit int) ([]File, error)
	ListSharedFiles(ctx context.Context, ownerID int64) ([]File, error)
	UpdateFile(ctx context.Context, id, ownerID int64, upd FileUpdate) (File, error)
	// DeleteFile permanently removes the file record, returning it for byte
	// release. Idempotent: a missing or foreign id returns false, not an
	// error.
	DeleteFile(ctx context.Context, id, ownerID int64) (File, bool, error)

	// Trash lifecycle. Trashing or restoring a folder cascades over its
	// whole subtree as one atomic transition with a single timestamp.
	TrashFolder(ctx context.Context, id, ownerID int64) error
	RestoreFolder(ctx context.Context, id, ownerID int64) error
	TrashFile(ctx context.Context, id, ownerID int64) error
	RestoreFile(ctx context.Context, id, ownerID int64) error
	// PurgeFolder and PurgeFile remove trashed records permanently. Purging
	// an active record is ErrNotFound; active records go through DeleteFolder
	// or DeleteFile instead.
	PurgeFolder(ctx context.Context, id, ownerID int64) ([]File, error)
	PurgeFile(ctx context.Context, id, ownerID int64) (File, error)
	// EmptyTrash purges every trashed folder and file owned by ownerID and
	// returns all removed files for byte release.
	EmptyTrash(ctx context.Context, ownerID int64) ([]File, error)
	ListTrashedFolders(ctx context.Context, ownerID int64) ([]Folder, error)
	ListTrashedFiles(ctx context.Context, ownerID int64) ([]File, error)

	// UsedSpace sums sizes over all of the user's files, trashed included.
	UsedSpace(ctx context.Context, ownerID int64) (int64, error)
}
