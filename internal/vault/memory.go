package vault

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps all metadata in process memory: one map per collection
// plus a monotonic id counter per collection. Ids are never reused after
// deletion. A single RWMutex guards the arena; every cascading operation
// runs under one write-lock acquisition, so a subtree transition is either
// fully visible to readers or not at all.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[int64]User
	usersByName map[string]int64
	folders     map[int64]Folder
	files       map[int64]File

	nextUserID   int64
	nextFolderID int64
	nextFileID   int64

	now func() time.Time
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[int64]User),
		usersByName: make(map[string]int64),
		folders:     make(map[int64]Folder),
		files:       make(map[int64]File),
		now:         time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	username = strings.TrimSpace(username)
	if _, err := validateName(username); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[username]; exists {
		return User{}, ErrUsernameTaken
	}

	s.nextUserID++
	user := User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.users[user.ID] = user
	s.usersByName[username] = user.ID
	return user, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[strings.TrimSpace(username)]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) CreateFolder(ctx context.Context, ownerID int64, name, color string, parentID *int64) (Folder, error) {
	name, err := validateName(name)
	if err != nil {
		return Folder{}, err
	}
	color, err = validateColor(color)
	if err != nil {
		return Folder{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != nil {
		parent, ok := s.folders[*parentID]
		if !ok || parent.OwnerID != ownerID || parent.Deleted {
			return Folder{}, ErrNotFound
		}
	}

	s.nextFolderID++
	folder := Folder{
		ID:        s.nextFolderID,
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		Color:     color,
		CreatedAt: s.now(),
	}

	// A fresh folder cannot be its own ancestor, but the check is cheap and
	// the acyclicity invariant is load-bearing.
	if parentID != nil && s.wouldCycle(folder.ID, *parentID) {
		return Folder{}, ErrCycle
	}

	s.folders[folder.ID] = folder
	return folder, nil
}

func (s *MemoryStore) GetFolder(ctx context.Context, id int64) (Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folders[id]
	if !ok {
		return Folder{}, ErrNotFound
	}
	return folder, nil
}

func (s *MemoryStore) ListFolders(ctx context.Context, ownerID int64, parentID *int64) ([]Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var folders []Folder
	for _, f := range s.folders {
		if f.OwnerID != ownerID || f.Deleted || !sameParent(f.ParentID, parentID) {
			continue
		}
		folders = append(folders, f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].ID < folders[j].ID })
	return folders, nil
}

func (s *MemoryStore) UpdateFolder(ctx context.Context, id, ownerID int64, upd FolderUpdate) (Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return Folder{}, ErrNotFound
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
		parent, ok := s.folders[*upd.ParentID]
		if !ok || parent.OwnerID != ownerID || parent.Deleted {
			return Folder{}, ErrNotFound
		}
		if s.wouldCycle(id, *upd.ParentID) {
			return Folder{}, ErrCycle
		}
		parentID := *upd.ParentID
		folder.ParentID = &parentID
	} else if upd.ToRoot {
		folder.ParentID = nil
	}

	s.folders[id] = folder
	return folder, nil
}

func (s *MemoryStore) DeleteFolder(ctx context.Context, id, ownerID int64) ([]File, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return nil, false, nil
	}
	return s.removeFolderTree(id), true, nil
}

func (s *MemoryStore) CreateFile(ctx context.Context, nf NewFile) (File, error) {
	name, err := validateName(nf.Name)
	if err != nil {
		return File{}, err
	}
	if !ValidSize(nf.Size) {
		return File{}, errNegativeSize(nf.Size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if nf.FolderID != nil {
		folder, ok := s.folders[*nf.FolderID]
		if !ok || folder.OwnerID != nf.OwnerID || folder.Deleted {
			return File{}, ErrNotFound
		}
	}

	s.nextFileID++
	now := s.now()
	file := File{
		ID:         s.nextFileID,
		OwnerID:    nf.OwnerID,
		FolderID:   nf.FolderID,
		Name:       name,
		MimeType:   nf.MimeType,
		Size:       nf.Size,
		StorageKey: nf.StorageKey,
		Shared:     nf.Shared,
		SharedBy:   nf.SharedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.files[file.ID] = file
	return file, nil
}

func (s *MemoryStore) GetFile(ctx context.Context, id int64) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return file, nil
}

func (s *MemoryStore) ListFilesByFolder(ctx context.Context, ownerID int64, folderID *int64) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []File
	for _, f := range s.files {
		if f.OwnerID != ownerID || f.Deleted || !sameParent(f.FolderID, folderID) {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

func (s *MemoryStore) ListRecentFiles(ctx context.Context, ownerID int64, limit int) ([]File, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []File
	for _, f := range s.files {
		if f.OwnerID != ownerID || f.Deleted {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].UpdatedAt.Equal(files[j].UpdatedAt) {
			return files[i].UpdatedAt.After(files[j].UpdatedAt)
		}
		return files[i].ID > files[j].ID
	})
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (s *MemoryStore) ListSharedFiles(ctx context.Context, ownerID int64) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []File
	for _, f := range s.files {
		if f.OwnerID != ownerID || f.Deleted || !f.Shared {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

func (s *MemoryStore) UpdateFile(ctx context.Context, id, ownerID int64, upd FileUpdate) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok || file.OwnerID != ownerID {
		return File{}, ErrNotFound
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
		folder, ok := s.folders[*upd.FolderID]
		if !ok || folder.OwnerID != ownerID || folder.Deleted {
			return File{}, ErrNotFound
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

	file.UpdatedAt = s.now()
	s.files[id] = file
	return file, nil
}

func (s *MemoryStore) DeleteFile(ctx context.Context, id, ownerID int64) (File, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok || file.OwnerID != ownerID {
		return File{}, false, nil
	}
	delete(s.files, id)
	return file, true, nil
}

func (s *MemoryStore) TrashFolder(ctx context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return ErrNotFound
	}
	at := s.now()
	s.setFolderTreeDeleted(id, true, &at)
	return nil
}

func (s *MemoryStore) RestoreFolder(ctx context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return ErrNotFound
	}
	s.setFolderTreeDeleted(id, false, nil)
	return nil
}

func (s *MemoryStore) TrashFile(ctx context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok || file.OwnerID != ownerID {
		return ErrNotFound
	}
	at := s.now()
	file.Deleted = true
	file.DeletedAt = &at
	file.UpdatedAt = at
	s.files[id] = file
	return nil
}

// RestoreFile reactivates a trashed file even when its containing folder is
// still trashed: the file becomes active but stays orphaned under the
// trashed folder until that folder is restored too.
func (s *MemoryStore) RestoreFile(ctx context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok || file.OwnerID != ownerID {
		return ErrNotFound
	}
	file.Deleted = false
	file.DeletedAt = nil
	file.UpdatedAt = s.now()
	s.files[id] = file
	return nil
}

func (s *MemoryStore) PurgeFolder(ctx context.Context, id, ownerID int64) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok || folder.OwnerID != ownerID || !folder.Deleted {
		return nil, ErrNotFound
	}
	return s.removeFolderTree(id), nil
}

func (s *MemoryStore) PurgeFile(ctx context.Context, id, ownerID int64) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok || file.OwnerID != ownerID || !file.Deleted {
		return File{}, ErrNotFound
	}
	delete(s.files, id)
	return file, nil
}

func (s *MemoryStore) EmptyTrash(ctx context.Context, ownerID int64) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var trashedFolders []int64
	for id, f := range s.folders {
		if f.OwnerID == ownerID && f.Deleted {
			trashedFolders = append(trashedFolders, id)
		}
	}
	sort.Slice(trashedFolders, func(i, j int) bool { return trashedFolders[i] < trashedFolders[j] })

	var removed []File
	for _, id := range trashedFolders {
		// A subtree removal may already have taken out a deeper trashed
		// folder from this list.
		if _, ok := s.folders[id]; !ok {
			continue
		}
		removed = append(removed, s.removeFolderTree(id)...)
	}

	var trashedFiles []File
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.Deleted {
			trashedFiles = append(trashedFiles, f)
		}
	}
	sort.Slice(trashedFiles, func(i, j int) bool { return trashedFiles[i].ID < trashedFiles[j].ID })
	for _, f := range trashedFiles {
		delete(s.files, f.ID)
		removed = append(removed, f)
	}
	return removed, nil
}

func (s *MemoryStore) ListTrashedFolders(ctx context.Context, ownerID int64) ([]Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var folders []Folder
	for _, f := range s.folders {
		if f.OwnerID == ownerID && f.Deleted {
			folders = append(folders, f)
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].ID < folders[j].ID })
	return folders, nil
}

func (s *MemoryStore) ListTrashedFiles(ctx context.Context, ownerID int64) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []File
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.Deleted {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

func (s *MemoryStore) UsedSpace(ctx context.Context, ownerID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var used int64
	for _, f := range s.files {
		if f.OwnerID == ownerID {
			used += f.Size
		}
	}
	return used, nil
}

// wouldCycle reports whether making parentID the parent of folderID would
// close a loop in the tree. Callers hold the lock.
func (s *MemoryStore) wouldCycle(folderID, parentID int64) bool {
	for cursor := &parentID; cursor != nil; {
		if *cursor == folderID {
			return true
		}
		folder, ok := s.folders[*cursor]
		if !ok {
			return false
		}
		cursor = folder.ParentID
	}
	return false
}

// removeFolderTree permanently deletes a folder subtree in post-order:
// child folders are fully removed before the parent, and at every level the
// folder's files go before the folder itself. Removed files are returned in
// deletion order. Callers hold the write lock.
func (s *MemoryStore) removeFolderTree(id int64) []File {
	var removed []File
	for _, childID := range s.childFolderIDs(id) {
		removed = append(removed, s.removeFolderTree(childID)...)
	}
	for _, file := range s.filesInFolder(id) {
		delete(s.files, file.ID)
		removed = append(removed, file)
	}
	delete(s.folders, id)
	return removed
}

// setFolderTreeDeleted flips the trash state of a whole subtree. One
// timestamp is shared across every record so the cascade reads as a single
// logical instant. Callers hold the write lock.
func (s *MemoryStore) setFolderTreeDeleted(id int64, deleted bool, at *time.Time) {
	for _, childID := range s.childFolderIDs(id) {
		s.setFolderTreeDeleted(childID, deleted, at)
	}
	for _, file := range s.filesInFolder(id) {
		file.Deleted = deleted
		file.DeletedAt = at
		if at != nil {
			file.UpdatedAt = *at
		} else {
			file.UpdatedAt = s.now()
		}
		s.files[file.ID] = file
	}
	folder := s.folders[id]
	folder.Deleted = deleted
	folder.DeletedAt = at
	s.folders[id] = folder
}

func (s *MemoryStore) childFolderIDs(parentID int64) []int64 {
	var ids []int64
	for id, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == parentID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *MemoryStore) filesInFolder(folderID int64) []File {
	var files []File
	for _, f := range s.files {
		if f.FolderID != nil && *f.FolderID == folderID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
