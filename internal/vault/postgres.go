package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const uniqueViolation = "23505"

const folderColumns = "id, owner_id, parent_id, name, color, created_at, is_deleted, deleted_at"

const fileColumns = "id, owner_id, folder_id, name, mime_type, size_bytes, storage_key, is_shared, shared_by, created_at, updated_at, is_deleted, deleted_at"

// subtreeCTE expands a folder id into the id set of its whole subtree. The
// anchor enforces ownership so a foreign root yields an empty set.
const subtreeCTE = `
WITH RECURSIVE subtree AS (
	SELECT id FROM folders WHERE id = $1 AND owner_id = $2
	UNION ALL
	SELECT f.id FROM folders f JOIN subtree s ON f.parent_id = s.id
)`

// PostgresStore is the production Store backed by pgx. Every cascading
// operation runs inside one transaction so subtree transitions commit
// atomically; BIGSERIAL sequences guarantee ids are never reused.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds a store over an established pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	username, err := validateName(username)
	if err != nil {
		return User{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO users (username, password_hash)
VALUES ($1, $2)
RETURNING id, username, password_hash, created_at;`

	var user User
	err = s.pool.QueryRow(ctx, query, username, passwordHash).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var user User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1;`, id).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var user User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1;`, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) CreateFolder(ctx context.Context, ownerID int64, name, color string, parentID *int64) (Folder, error) {
	name, err := validateName(name)
	if err != nil {
		return Folder{}, err
	}
	color, err = validateColor(color)
	if err != nil {
		return Folder{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Folder{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if parentID != nil {
		if err := s.checkFolderTarget(ctx, tx, *parentID, ownerID); err != nil {
			return Folder{}, err
		}
	}

	query := `
INSERT INTO folders (owner_id, parent_id, name, color)
VALUES ($1, $2, $3, $4)
RETURNING ` + folderColumns + `;`

	folder, err := scanFolder(tx.QueryRow(ctx, query, ownerID, parentID, name, color))
	if err != nil {
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}

	// A fresh folder cannot be its own ancestor, but the check is cheap and
	// the acyclicity invariant is load-bearing. A hit rolls the insert back.
	if parentID != nil {
		cycles, err := s.wouldCycle(ctx, tx, folder.ID, *parentID)
		if err != nil {
			return Folder{}, err
		}
		if cycles {
			return Folder{}, ErrCycle
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Folder{}, fmt.Errorf("commit: %w", err)
	}
	return folder, nil
}

func (s *PostgresStore) GetFolder(ctx context.Context, id int64) (Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	folder, err := scanFolder(s.pool.QueryRow(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Folder{}, ErrNotFound
		}
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

func (s *PostgresStore) ListFolders(ctx context.Context, ownerID int64, parentID *int64) ([]Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + folderColumns + `
FROM folders
WHERE owner_id = $1 AND NOT is_deleted AND parent_id IS NOT DISTINCT FROM $2
ORDER BY id;`

	rows, err := s.pool.Query(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

func (s *PostgresStore) UpdateFolder(ctx context.Context, id, ownerID int64, upd FolderUpdate) (Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Folder{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	folder, err := scanFolder(tx.QueryRow(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE id = $1 AND owner_id = $2 FOR UPDATE;`, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Folder{}, ErrNotFound
		}
		return Folder{}, fmt.Errorf("lock folder: %w", err)
	}

	if upd.Name != nil {
		name, err := validateName(*upd.Name)
		if err != nil {
			return Folder{}, err
		}
		folder.Name = name
	}
	if upd.Color != nil {
		color, err := validateColor(*upd.Color)
		if err != nil {
			return Folder{}, err
		}
		folder.Color = color
	}
	if upd.ParentID != nil {
		if err := s.checkFolderTarget(ctx, tx, *upd.ParentID, ownerID); err != nil {
			return Folder{}, err
		}
		cycles, err := s.wouldCycle(ctx, tx, id, *upd.ParentID)
		if err != nil {
			return Folder{}, err
		}
		if cycles {
			return Folder{}, ErrCycle
		}
		parentID := *upd.ParentID
		folder.ParentID = &parentID
	} else if upd.ToRoot {
		folder.ParentID = nil
	}

	query := `
UPDATE folders SET name = $3, color = $4, parent_id = $5
WHERE id = $1 AND owner_id = $2
RETURNING ` + folderColumns + `;`

	folder, err = scanFolder(tx.QueryRow(ctx, query, id, ownerID, folder.Name, folder.Color, folder.ParentID))
	if err != nil {
		return Folder{}, fmt.Errorf("update folder: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Folder{}, fmt.Errorf("commit: %w", err)
	}
	return folder, nil
}

func (s *PostgresStore) DeleteFolder(ctx context.Context, id, ownerID int64) ([]File, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	files, err := s.subtreeFiles(ctx, tx, id, ownerID)
	if err != nil {
		return nil, false, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM folders WHERE id = $1 AND owner_id = $2;`, id, ownerID)
	if err != nil {
		return nil, false, fmt.Errorf("delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return files, true, nil
}

func (s *PostgresStore) CreateFile(ctx context.Context, nf NewFile) (File, error) {
	name, err := validateName(nf.Name)
	if err != nil {
		return File{}, err
	}
	if !ValidSize(nf.Size) {
		return File{}, errNegativeSize(nf.Size)
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return File{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if nf.FolderID != nil {
		if err := s.checkFolderTarget(ctx, tx, *nf.FolderID, nf.OwnerID); err != nil {
			return File{}, err
		}
	}

	query := `
INSERT INTO files (owner_id, folder_id, name, mime_type, size_bytes, storage_key, is_shared, shared_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + fileColumns + `;`

	file, err := scanFile(tx.QueryRow(ctx, query,
		nf.OwnerID, nf.FolderID, name, nf.MimeType, nf.Size, nf.StorageKey, nf.Shared, nf.SharedBy))
	if err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return File{}, fmt.Errorf("commit: %w", err)
	}
	return file, nil
}

func (s *PostgresStore) GetFile(ctx context.Context, id int64) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	file, err := scanFile(s.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, fmt.Errorf("get file: %w", err)
	}
	return file, nil
}

func (s *PostgresStore) ListFilesByFolder(ctx context.Context, ownerID int64, folderID *int64) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + fileColumns + `
FROM files
WHERE owner_id = $1 AND NOT is_deleted AND folder_id IS NOT DISTINCT FROM $2
ORDER BY id;`

	rows, err := s.pool.Query(ctx, query, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func (s *PostgresStore) ListRecentFiles(ctx context.Context, ownerID int64, limit int) ([]File, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + fileColumns + `
FROM files
WHERE owner_id = $1 AND NOT is_deleted
ORDER BY updated_at DESC, id DESC
LIMIT $2;`

	rows, err := s.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func (s *PostgresStore) ListSharedFiles(ctx context.Context, ownerID int64) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + fileColumns + `
FROM files
WHERE owner_id = $1 AND NOT is_deleted AND is_shared
ORDER BY id;`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list shared files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func (s *PostgresStore) UpdateFile(ctx context.Context, id, ownerID int64, upd FileUpdate) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return File{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	file, err := scanFile(tx.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1 AND owner_id = $2 FOR UPDATE;`, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, fmt.Errorf("lock file: %w", err)
	}

	if upd.Name != nil {
		name, err := validateName(*upd.Name)
		if err != nil {
			return File{}, err
		}
		file.Name = name
	}
	if upd.MimeType != nil {
		file.MimeType = *upd.MimeType
	}
	if upd.FolderID != nil {
		if err := s.checkFolderTarget(ctx, tx, *upd.FolderID, ownerID); err != nil {
			return File{}, err
		}
		folderID := *upd.FolderID
		file.FolderID = &folderID
	} else if upd.ToRoot {
		file.FolderID = nil
	}
	if upd.Shared != nil {
		file.Shared = *upd.Shared
	}
	if upd.SharedBy != nil {
		sharedBy := *upd.SharedBy
		file.SharedBy = &sharedBy
	}
	// The attribution only makes sense while the file is shared.
	if !file.Shared {
		file.SharedBy = nil
	}

	query := `
UPDATE files SET name = $3, mime_type = $4, folder_id = $5, is_shared = $6, shared_by = $7, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + fileColumns + `;`

	file, err = scanFile(tx.QueryRow(ctx, query,
		id, ownerID, file.Name, file.MimeType, file.FolderID, file.Shared, file.SharedBy))
	if err != nil {
		return File{}, fmt.Errorf("update file: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return File{}, fmt.Errorf("commit: %w", err)
	}
	return file, nil
}

func (s *PostgresStore) DeleteFile(ctx context.Context, id, ownerID int64) (File, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
DELETE FROM files WHERE id = $1 AND owner_id = $2
RETURNING ` + fileColumns + `;`

	file, err := scanFile(s.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, false, nil
		}
		return File{}, false, fmt.Errorf("delete file: %w", err)
	}
	return file, true, nil
}

func (s *PostgresStore) TrashFolder(ctx context.Context, id, ownerID int64) error {
	return s.setSubtreeDeleted(ctx, id, ownerID, true)
}

func (s *PostgresStore) RestoreFolder(ctx context.Context, id, ownerID int64) error {
	return s.setSubtreeDeleted(ctx, id, ownerID, false)
}

func (s *PostgresStore) TrashFile(ctx context.Context, id, ownerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
UPDATE files SET is_deleted = TRUE, deleted_at = now(), updated_at = now()
WHERE id = $1 AND owner_id = $2;`, id, ownerID)
	if err != nil {
		return fmt.Errorf("trash file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RestoreFile(ctx context.Context, id, ownerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
UPDATE files SET is_deleted = FALSE, deleted_at = NULL, updated_at = now()
WHERE id = $1 AND owner_id = $2;`, id, ownerID)
	if err != nil {
		return fmt.Errorf("restore file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) PurgeFolder(ctx context.Context, id, ownerID int64) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	files, err := s.subtreeFiles(ctx, tx, id, ownerID)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM folders WHERE id = $1 AND owner_id = $2 AND is_deleted;`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("purge folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return files, nil
}

func (s *PostgresStore) PurgeFile(ctx context.Context, id, ownerID int64) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
DELETE FROM files WHERE id = $1 AND owner_id = $2 AND is_deleted
RETURNING ` + fileColumns + `;`

	file, err := scanFile(s.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, fmt.Errorf("purge file: %w", err)
	}
	return file, nil
}

func (s *PostgresStore) EmptyTrash(ctx context.Context, ownerID int64) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Every folder inside a trashed subtree plus every individually trashed
	// file goes. UNION instead of UNION ALL keeps nested trashed folders
	// from being visited twice.
	const trashedSubtree = `
WITH RECURSIVE subtree AS (
	SELECT id FROM folders WHERE owner_id = $1 AND is_deleted
	UNION
	SELECT f.id FROM folders f JOIN subtree s ON f.parent_id = s.id
)`

	rows, err := tx.Query(ctx, trashedSubtree+`
SELECT `+fileColumns+`
FROM files
WHERE folder_id IN (SELECT id FROM subtree) OR (owner_id = $1 AND is_deleted)
ORDER BY id;`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("collect trash: %w", err)
	}
	files, err := collectFiles(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, trashedSubtree+`
DELETE FROM files
WHERE folder_id IN (SELECT id FROM subtree) OR (owner_id = $1 AND is_deleted);`, ownerID); err != nil {
		return nil, fmt.Errorf("purge trashed files: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM folders WHERE owner_id = $1 AND is_deleted;`, ownerID); err != nil {
		return nil, fmt.Errorf("purge trashed folders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return files, nil
}

func (s *PostgresStore) ListTrashedFolders(ctx context.Context, ownerID int64) ([]Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE owner_id = $1 AND is_deleted ORDER BY id;`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trashed folders: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

func (s *PostgresStore) ListTrashedFiles(ctx context.Context, ownerID int64) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = $1 AND is_deleted ORDER BY id;`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trashed files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func (s *PostgresStore) UsedSpace(ctx context.Context, ownerID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var used int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE owner_id = $1;`, ownerID).
		Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("used space: %w", err)
	}
	return used, nil
}

// setSubtreeDeleted flips the trash state of a folder subtree in one
// transaction, stamping every record with the same instant.
func (s *PostgresStore) setSubtreeDeleted(ctx context.Context, id, ownerID int64, deleted bool) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var at *time.Time
	if deleted {
		now := time.Now()
		at = &now
	}

	tag, err := tx.Exec(ctx, subtreeCTE+`
UPDATE folders SET is_deleted = $3, deleted_at = $4
WHERE id IN (SELECT id FROM subtree);`, id, ownerID, deleted, at)
	if err != nil {
		return fmt.Errorf("update folder subtree: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, subtreeCTE+`
UPDATE files SET is_deleted = $3, deleted_at = $4, updated_at = COALESCE($4, now())
WHERE folder_id IN (SELECT id FROM subtree);`, id, ownerID, deleted, at); err != nil {
		return fmt.Errorf("update file subtree: %w", err)
	}

	return tx.Commit(ctx)
}

// subtreeFiles returns every file in the subtree rooted at id, ordered by
// id, for byte release after the delete commits.
func (s *PostgresStore) subtreeFiles(ctx context.Context, tx pgx.Tx, id, ownerID int64) ([]File, error) {
	rows, err := tx.Query(ctx, subtreeCTE+`
SELECT `+fileColumns+`
FROM files
WHERE folder_id IN (SELECT id FROM subtree)
ORDER BY id;`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("collect subtree files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// checkFolderTarget verifies a referenced folder exists, belongs to ownerID
// and is not trashed. Trashed folders are invisible, so a reference to one
// behaves as not found.
func (s *PostgresStore) checkFolderTarget(ctx context.Context, tx pgx.Tx, id, ownerID int64) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM folders WHERE id = $1 AND owner_id = $2 AND NOT is_deleted);`,
		id, ownerID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check folder: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// wouldCycle walks the ancestor chain of the proposed parent; hitting the
// folder itself means the reparent closes a loop.
func (s *PostgresStore) wouldCycle(ctx context.Context, tx pgx.Tx, folderID, parentID int64) (bool, error) {
	const query = `
WITH RECURSIVE ancestors AS (
	SELECT id, parent_id FROM folders WHERE id = $1
	UNION ALL
	SELECT f.id, f.parent_id FROM folders f JOIN ancestors a ON f.id = a.parent_id
)
SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2);`

	var cycles bool
	if err := tx.QueryRow(ctx, query, parentID, folderID).Scan(&cycles); err != nil {
		return false, fmt.Errorf("cycle check: %w", err)
	}
	return cycles, nil
}

func scanFolder(row pgx.Row) (Folder, error) {
	var f Folder
	err := row.Scan(&f.ID, &f.OwnerID, &f.ParentID, &f.Name, &f.Color, &f.CreatedAt, &f.Deleted, &f.DeletedAt)
	return f, err
}

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(&f.ID, &f.OwnerID, &f.FolderID, &f.Name, &f.MimeType, &f.Size, &f.StorageKey,
		&f.Shared, &f.SharedBy, &f.CreatedAt, &f.UpdatedAt, &f.Deleted, &f.DeletedAt)
	return f, err
}

func collectFolders(rows pgx.Rows) ([]Folder, error) {
	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.ParentID, &f.Name, &f.Color, &f.CreatedAt, &f.Deleted, &f.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

func collectFiles(rows pgx.Rows) ([]File, error) {
	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.FolderID, &f.Name, &f.MimeType, &f.Size, &f.StorageKey,
			&f.Shared, &f.SharedBy, &f.CreatedAt, &f.UpdatedAt, &f.Deleted, &f.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}
