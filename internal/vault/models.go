package vault

import "time"

// DefaultFolderColor is applied when a folder is created without a swatch.
const DefaultFolderColor = "gray"

// DefaultRecentLimit bounds listRecentFiles when the caller passes no limit.
const DefaultRecentLimit = 8

// User is the identity anchor every folder and file hangs off.
// The credential hash is opaque to the vault; only the auth layer reads it.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Folder is a named container owned by exactly one user. Folders nest via
// ParentID, forming a forest per user; nil means top level.
type Folder struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	ParentID  *int64     `json:"parent_id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	CreatedAt time.Time  `json:"created_at"`
	Deleted   bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// File carries the metadata of a stored object. The raw bytes live in the
// external object store under StorageKey; nil FolderID means top level.
type File struct {
	ID         int64      `json:"id"`
	OwnerID    int64      `json:"owner_id"`
	FolderID   *int64     `json:"folder_id"`
	Name       string     `json:"name"`
	MimeType   string     `json:"mime_type"`
	Size       int64      `json:"size"`
	StorageKey string     `json:"-"`
	Shared     bool       `json:"is_shared"`
	SharedBy   *string    `json:"shared_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Deleted    bool       `json:"is_deleted"`
	DeletedAt  *time.Time `json:"deleted_at"`
}

// NewFile groups the attributes needed to register an uploaded object.
type NewFile struct {
	OwnerID    int64
	FolderID   *int64
	Name       string
	MimeType   string
	Size       int64
	StorageKey string
	Shared     bool
	SharedBy   *string
}

// FolderUpdate enumerates the mutable folder fields. Identity and ownership
// are not part of the command; deletion state moves only through the
// lifecycle operations so cascades cannot be bypassed.
type FolderUpdate struct {
	Name     *string
	Color    *string
	ParentID *int64
	// ToRoot moves the folder to the top level. Ignored when ParentID is set.
	ToRoot bool
}

// FileUpdate enumerates the mutable file fields.
type FileUpdate struct {
	Name     *string
	MimeType *string
	FolderID *int64
	// ToRoot moves the file to the top level. Ignored when FolderID is set.
	ToRoot bool
	Shared *bool
	// SharedBy attributes the share. Cleared automatically whenever the
	// file ends up unshared.
	SharedBy *string
}

// StorageStats reports a user's usage against the configured quota.
// Trashed-but-not-purged files still count toward UsedSpace; only a purge
// frees quota.
type StorageStats struct {
	UsedSpace  int64 `json:"used_space"`
	TotalSpace int64 `json:"total_space"`
	// Percent is the raw used/total ratio times 100. It may exceed 100 when
	// a user is over quota; clamping for display is left to callers.
	Percent float64 `json:"percent_used"`
}
