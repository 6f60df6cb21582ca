package vault

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore() *MemoryStore {
	store := NewMemoryStore()
	// Deterministic, strictly increasing clock.
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	store.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	return store
}

func mustUser(t *testing.T, store *MemoryStore, username string) User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func mustFolder(t *testing.T, store *MemoryStore, ownerID int64, name string, parentID *int64) Folder {
	t.Helper()
	folder, err := store.CreateFolder(context.Background(), ownerID, name, "", parentID)
	if err != nil {
		t.Fatalf("create folder %s: %v", name, err)
	}
	return folder
}

func mustFile(t *testing.T, store *MemoryStore, ownerID int64, name string, folderID *int64, size int64) File {
	t.Helper()
	file, err := store.CreateFile(context.Background(), NewFile{
		OwnerID:    ownerID,
		FolderID:   folderID,
		Name:       name,
		MimeType:   "application/octet-stream",
		Size:       size,
		StorageKey: "key-" + name,
	})
	if err != nil {
		t.Fatalf("create file %s: %v", name, err)
	}
	return file
}

func TestCreateFolderValidation(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	if _, err := store.CreateFolder(ctx, owner.ID, "  ", "", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty name, got %v", err)
	}
	if _, err := store.CreateFolder(ctx, owner.ID, "docs", "chartreuse", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown color, got %v", err)
	}

	folder, err := store.CreateFolder(ctx, owner.ID, "docs", "", nil)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if folder.Color != DefaultFolderColor {
		t.Fatalf("expected default color, got %q", folder.Color)
	}
	if folder.Deleted {
		t.Fatalf("fresh folder must not be trashed")
	}

	parent := folder.ID
	missing := int64(999)
	if _, err := store.CreateFolder(ctx, owner.ID, "sub", "#00ff00", &missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing parent, got %v", err)
	}
	sub, err := store.CreateFolder(ctx, owner.ID, "sub", "#00ff00", &parent)
	if err != nil {
		t.Fatalf("create nested folder: %v", err)
	}
	if sub.ParentID == nil || *sub.ParentID != parent {
		t.Fatalf("expected parent %d, got %v", parent, sub.ParentID)
	}
}

func TestCreateFileValidation(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	if _, err := store.CreateFile(ctx, NewFile{OwnerID: owner.ID, Name: "", Size: 1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty name, got %v", err)
	}
	if _, err := store.CreateFile(ctx, NewFile{OwnerID: owner.ID, Name: "a.txt", Size: -1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative size, got %v", err)
	}

	stranger := mustUser(t, store, "bob")
	folder := mustFolder(t, store, stranger.ID, "theirs", nil)
	if _, err := store.CreateFile(ctx, NewFile{OwnerID: owner.ID, Name: "a.txt", Size: 1, FolderID: &folder.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign folder, got %v", err)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	store := newTestStore()
	alice := mustUser(t, store, "alice")
	bob := mustUser(t, store, "bob")
	ctx := context.Background()

	folder := mustFolder(t, store, alice.ID, "docs", nil)
	file := mustFile(t, store, alice.ID, "a.txt", &folder.ID, 10)

	newName := "stolen"
	if _, err := store.UpdateFolder(ctx, folder.ID, bob.ID, FolderUpdate{Name: &newName}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating foreign folder, got %v", err)
	}
	if _, err := store.UpdateFile(ctx, file.ID, bob.ID, FileUpdate{Name: &newName}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating foreign file, got %v", err)
	}
	if err := store.TrashFolder(ctx, folder.ID, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound trashing foreign folder, got %v", err)
	}
	if _, ok, _ := store.DeleteFile(ctx, file.ID, bob.ID); ok {
		t.Fatalf("foreign delete must report false")
	}
	if _, ok, _ := store.DeleteFolder(ctx, folder.ID, bob.ID); ok {
		t.Fatalf("foreign folder delete must report false")
	}

	// Nothing leaked, nothing changed.
	got, err := store.GetFolder(ctx, folder.ID)
	if err != nil || got.Name != "docs" {
		t.Fatalf("folder mutated by foreign calls: %+v %v", got, err)
	}
}

func TestListFoldersScopedAndOrdered(t *testing.T) {
	store := newTestStore()
	alice := mustUser(t, store, "alice")
	bob := mustUser(t, store, "bob")
	ctx := context.Background()

	f1 := mustFolder(t, store, alice.ID, "b", nil)
	f2 := mustFolder(t, store, alice.ID, "a", nil)
	mustFolder(t, store, bob.ID, "c", nil)
	sub := mustFolder(t, store, alice.ID, "sub", &f1.ID)

	root, err := store.ListFolders(ctx, alice.ID, nil)
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	if len(root) != 2 || root[0].ID != f1.ID || root[1].ID != f2.ID {
		t.Fatalf("unexpected root listing: %+v", root)
	}

	nested, err := store.ListFolders(ctx, alice.ID, &f1.ID)
	if err != nil {
		t.Fatalf("list nested folders: %v", err)
	}
	if len(nested) != 1 || nested[0].ID != sub.ID {
		t.Fatalf("unexpected nested listing: %+v", nested)
	}
}

func TestCyclePrevention(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	a := mustFolder(t, store, owner.ID, "a", nil)
	b := mustFolder(t, store, owner.ID, "b", &a.ID)
	c := mustFolder(t, store, owner.ID, "c", &b.ID)

	if _, err := store.UpdateFolder(ctx, a.ID, owner.ID, FolderUpdate{ParentID: &c.ID}); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle reparenting under descendant, got %v", err)
	}
	if _, err := store.UpdateFolder(ctx, a.ID, owner.ID, FolderUpdate{ParentID: &a.ID}); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle self-parenting, got %v", err)
	}

	// The failed reparent left a untouched.
	got, err := store.GetFolder(ctx, a.ID)
	if err != nil {
		t.Fatalf("get folder: %v", err)
	}
	if got.ParentID != nil {
		t.Fatalf("expected a to stay at root, got parent %v", got.ParentID)
	}

	// A legal reparent still works.
	if _, err := store.UpdateFolder(ctx, c.ID, owner.ID, FolderUpdate{ParentID: &a.ID}); err != nil {
		t.Fatalf("legal reparent failed: %v", err)
	}
}

func TestCascadingTrashAndRestore(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	f := mustFolder(t, store, owner.ID, "f", nil)
	c := mustFolder(t, store, owner.ID, "c", &f.ID)
	x := mustFile(t, store, owner.ID, "x.txt", &c.ID, 100)

	if err := store.TrashFolder(ctx, f.ID, owner.ID); err != nil {
		t.Fatalf("trash folder: %v", err)
	}

	gotF, _ := store.GetFolder(ctx, f.ID)
	gotC, _ := store.GetFolder(ctx, c.ID)
	gotX, _ := store.GetFile(ctx, x.ID)
	if !gotF.Deleted || !gotC.Deleted || !gotX.Deleted {
		t.Fatalf("expected whole subtree trashed: %v %v %v", gotF.Deleted, gotC.Deleted, gotX.Deleted)
	}
	if gotF.DeletedAt == nil || gotC.DeletedAt == nil || gotX.DeletedAt == nil {
		t.Fatalf("expected deletedAt set on all records")
	}
	if !gotF.DeletedAt.Equal(*gotC.DeletedAt) || !gotF.DeletedAt.Equal(*gotX.DeletedAt) {
		t.Fatalf("expected one cascade timestamp, got %v %v %v", gotF.DeletedAt, gotC.DeletedAt, gotX.DeletedAt)
	}

	// The subtree structure survives: only visibility changed.
	if gotC.ParentID == nil || *gotC.ParentID != f.ID {
		t.Fatalf("trash must not reparent")
	}

	// Trashed records disappear from the regular listings.
	folders, _ := store.ListFolders(ctx, owner.ID, nil)
	if len(folders) != 0 {
		t.Fatalf("trashed folder still listed: %+v", folders)
	}
	files, _ := store.ListFilesByFolder(ctx, owner.ID, &c.ID)
	if len(files) != 0 {
		t.Fatalf("trashed file still listed: %+v", files)
	}

	// And appear in the trash listings.
	trashedFolders, _ := store.ListTrashedFolders(ctx, owner.ID)
	trashedFiles, _ := store.ListTrashedFiles(ctx, owner.ID)
	if len(trashedFolders) != 2 || len(trashedFiles) != 1 {
		t.Fatalf("unexpected trash contents: %d folders %d files", len(trashedFolders), len(trashedFiles))
	}

	if err := store.RestoreFolder(ctx, f.ID, owner.ID); err != nil {
		t.Fatalf("restore folder: %v", err)
	}
	gotF, _ = store.GetFolder(ctx, f.ID)
	gotC, _ = store.GetFolder(ctx, c.ID)
	gotX, _ = store.GetFile(ctx, x.ID)
	if gotF.Deleted || gotC.Deleted || gotX.Deleted {
		t.Fatalf("expected whole subtree restored")
	}
	if gotF.DeletedAt != nil || gotC.DeletedAt != nil || gotX.DeletedAt != nil {
		t.Fatalf("expected deletedAt cleared after restore")
	}
}

func TestRestoreFileUnderTrashedFolder(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	folder := mustFolder(t, store, owner.ID, "docs", nil)
	file := mustFile(t, store, owner.ID, "a.txt", &folder.ID, 10)

	if err := store.TrashFolder(ctx, folder.ID, owner.ID); err != nil {
		t.Fatalf("trash folder: %v", err)
	}
	if err := store.RestoreFile(ctx, file.ID, owner.ID); err != nil {
		t.Fatalf("restore file: %v", err)
	}

	got, _ := store.GetFile(ctx, file.ID)
	if got.Deleted || got.DeletedAt != nil {
		t.Fatalf("expected file active, got %+v", got)
	}
	parent, _ := store.GetFolder(ctx, folder.ID)
	if !parent.Deleted {
		t.Fatalf("restoring a file must not restore its folder")
	}
	// The active orphan is reachable through the recent listing.
	recent, _ := store.ListRecentFiles(ctx, owner.ID, 0)
	if len(recent) != 1 || recent[0].ID != file.ID {
		t.Fatalf("expected orphaned file in recent listing, got %+v", recent)
	}
}

func TestDeleteFolderPostOrder(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	root := mustFolder(t, store, owner.ID, "root", nil)
	child := mustFolder(t, store, owner.ID, "child", &root.ID)
	deep := mustFile(t, store, owner.ID, "deep.txt", &child.ID, 1)
	shallow := mustFile(t, store, owner.ID, "shallow.txt", &root.ID, 1)

	removed, ok, err := store.DeleteFolder(ctx, root.ID, owner.ID)
	if err != nil || !ok {
		t.Fatalf("delete folder: ok=%v err=%v", ok, err)
	}
	// Children are emptied before the parent, so the deep file comes first.
	if len(removed) != 2 || removed[0].ID != deep.ID || removed[1].ID != shallow.ID {
		t.Fatalf("unexpected removal order: %+v", removed)
	}

	if _, err := store.GetFolder(ctx, child.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected child folder gone, got %v", err)
	}
	if _, err := store.GetFile(ctx, deep.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected file gone, got %v", err)
	}
}

func TestIdempotentDeleteFile(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	file := mustFile(t, store, owner.ID, "a.txt", nil, 5)

	if _, ok, err := store.DeleteFile(ctx, file.ID, owner.ID); err != nil || !ok {
		t.Fatalf("first delete: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.DeleteFile(ctx, file.ID, owner.ID); err != nil || ok {
		t.Fatalf("second delete must report false without error: ok=%v err=%v", ok, err)
	}
}

func TestIDsNeverReused(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	first := mustFolder(t, store, owner.ID, "one", nil)
	if _, ok, _ := store.DeleteFolder(ctx, first.ID, owner.ID); !ok {
		t.Fatalf("delete failed")
	}
	second := mustFolder(t, store, owner.ID, "two", nil)
	if second.ID <= first.ID {
		t.Fatalf("id %d reused after deleting %d", second.ID, first.ID)
	}
}

func TestPurgeRequiresTrashed(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	folder := mustFolder(t, store, owner.ID, "docs", nil)
	file := mustFile(t, store, owner.ID, "a.txt", nil, 5)

	if _, err := store.PurgeFolder(ctx, folder.ID, owner.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("purging an active folder must be not found, got %v", err)
	}
	if _, err := store.PurgeFile(ctx, file.ID, owner.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("purging an active file must be not found, got %v", err)
	}

	if err := store.TrashFile(ctx, file.ID, owner.ID); err != nil {
		t.Fatalf("trash file: %v", err)
	}
	purged, err := store.PurgeFile(ctx, file.ID, owner.ID)
	if err != nil {
		t.Fatalf("purge trashed file: %v", err)
	}
	if purged.ID != file.ID {
		t.Fatalf("unexpected purged file: %+v", purged)
	}
	if _, err := store.GetFile(ctx, file.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected purged file gone, got %v", err)
	}
}

func TestEmptyTrashOnlyTouchesOwner(t *testing.T) {
	store := newTestStore()
	alice := mustUser(t, store, "alice")
	bob := mustUser(t, store, "bob")
	ctx := context.Background()

	aliceFolder := mustFolder(t, store, alice.ID, "docs", nil)
	aliceFile := mustFile(t, store, alice.ID, "a.txt", &aliceFolder.ID, 10)
	looseFile := mustFile(t, store, alice.ID, "loose.txt", nil, 20)
	bobFile := mustFile(t, store, bob.ID, "b.txt", nil, 30)

	if err := store.TrashFolder(ctx, aliceFolder.ID, alice.ID); err != nil {
		t.Fatalf("trash folder: %v", err)
	}
	if err := store.TrashFile(ctx, looseFile.ID, alice.ID); err != nil {
		t.Fatalf("trash file: %v", err)
	}
	if err := store.TrashFile(ctx, bobFile.ID, bob.ID); err != nil {
		t.Fatalf("trash bob file: %v", err)
	}

	removed, err := store.EmptyTrash(ctx, alice.ID)
	if err != nil {
		t.Fatalf("empty trash: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed files, got %d", len(removed))
	}
	for _, f := range removed {
		if f.ID != aliceFile.ID && f.ID != looseFile.ID {
			t.Fatalf("unexpected removal: %+v", f)
		}
	}

	// Bob's trash is untouched.
	bobTrash, _ := store.ListTrashedFiles(ctx, bob.ID)
	if len(bobTrash) != 1 {
		t.Fatalf("bob's trash was touched: %+v", bobTrash)
	}
}

func TestListRecentFilesOrdering(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	a := mustFile(t, store, owner.ID, "a.txt", nil, 1)
	b := mustFile(t, store, owner.ID, "b.txt", nil, 1)
	c := mustFile(t, store, owner.ID, "c.txt", nil, 1)
	_ = a

	recent, err := store.ListRecentFiles(ctx, owner.ID, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != c.ID || recent[1].ID != b.ID {
		t.Fatalf("expected [c b], got %+v", recent)
	}

	// Touching a file moves it to the front.
	shared := true
	if _, err := store.UpdateFile(ctx, a.ID, owner.ID, FileUpdate{Shared: &shared}); err != nil {
		t.Fatalf("update file: %v", err)
	}
	recent, _ = store.ListRecentFiles(ctx, owner.ID, 2)
	if len(recent) != 2 || recent[0].ID != a.ID {
		t.Fatalf("expected a first after update, got %+v", recent)
	}

	// Default limit applies when the caller passes none.
	for i := 0; i < 10; i++ {
		mustFile(t, store, owner.ID, "extra.txt", nil, 1)
	}
	recent, _ = store.ListRecentFiles(ctx, owner.ID, 0)
	if len(recent) != DefaultRecentLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultRecentLimit, len(recent))
	}
}

func TestListSharedFiles(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	plain := mustFile(t, store, owner.ID, "plain.txt", nil, 1)
	_ = plain
	sharedFile := mustFile(t, store, owner.ID, "shared.txt", nil, 1)
	shared := true
	sharedBy := "alice"
	if _, err := store.UpdateFile(ctx, sharedFile.ID, owner.ID, FileUpdate{Shared: &shared, SharedBy: &sharedBy}); err != nil {
		t.Fatalf("update file: %v", err)
	}

	files, err := store.ListSharedFiles(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list shared: %v", err)
	}
	if len(files) != 1 || files[0].ID != sharedFile.ID {
		t.Fatalf("unexpected shared listing: %+v", files)
	}
	if files[0].SharedBy == nil || *files[0].SharedBy != "alice" {
		t.Fatalf("expected sharedBy alice, got %v", files[0].SharedBy)
	}
}

func TestUnshareClearsSharedBy(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	file := mustFile(t, store, owner.ID, "a.txt", nil, 1)
	shared := true
	sharedBy := "alice"
	if _, err := store.UpdateFile(ctx, file.ID, owner.ID, FileUpdate{Shared: &shared, SharedBy: &sharedBy}); err != nil {
		t.Fatalf("share file: %v", err)
	}

	unshared := false
	updated, err := store.UpdateFile(ctx, file.ID, owner.ID, FileUpdate{Shared: &unshared})
	if err != nil {
		t.Fatalf("unshare file: %v", err)
	}
	if updated.Shared {
		t.Fatalf("expected file unshared")
	}
	if updated.SharedBy != nil {
		t.Fatalf("stale attribution after unshare: %v", *updated.SharedBy)
	}

	// An attribution sent alongside an unshare does not stick either.
	if _, err := store.UpdateFile(ctx, file.ID, owner.ID, FileUpdate{Shared: &unshared, SharedBy: &sharedBy}); err != nil {
		t.Fatalf("update file: %v", err)
	}
	got, _ := store.GetFile(ctx, file.ID)
	if got.SharedBy != nil {
		t.Fatalf("attribution must not persist on an unshared file: %v", *got.SharedBy)
	}
}

func TestUpdateFileRefreshesUpdatedAt(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	file := mustFile(t, store, owner.ID, "a.txt", nil, 1)
	newName := "b.txt"
	updated, err := store.UpdateFile(ctx, file.ID, owner.ID, FileUpdate{Name: &newName})
	if err != nil {
		t.Fatalf("update file: %v", err)
	}
	if !updated.UpdatedAt.After(file.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance: %v -> %v", file.UpdatedAt, updated.UpdatedAt)
	}
	if updated.Name != "b.txt" {
		t.Fatalf("unexpected name: %s", updated.Name)
	}

	// Reads do not refresh updatedAt.
	got, _ := store.GetFile(ctx, file.ID)
	if !got.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Fatalf("read mutated updatedAt")
	}
}

func TestUsedSpaceCountsTrashed(t *testing.T) {
	store := newTestStore()
	owner := mustUser(t, store, "alice")
	ctx := context.Background()

	file := mustFile(t, store, owner.ID, "a.bin", nil, 1000)

	used, _ := store.UsedSpace(ctx, owner.ID)
	if used != 1000 {
		t.Fatalf("expected 1000 used, got %d", used)
	}

	if err := store.TrashFile(ctx, file.ID, owner.ID); err != nil {
		t.Fatalf("trash file: %v", err)
	}
	used, _ = store.UsedSpace(ctx, owner.ID)
	if used != 1000 {
		t.Fatalf("trashed file must still count, got %d", used)
	}

	if _, err := store.PurgeFile(ctx, file.ID, owner.ID); err != nil {
		t.Fatalf("purge file: %v", err)
	}
	used, _ = store.UsedSpace(ctx, owner.ID)
	if used != 0 {
		t.Fatalf("expected 0 after purge, got %d", used)
	}
}
