package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/askarov/filevault/internal/auth"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the vault surface under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}

	folders := group.Group("/folders")
	{
		folders.POST("", handler.createFolder)
		folders.GET("", handler.listFolders)
		folders.GET("/:folderID", handler.getFolder)
		folders.PATCH("/:folderID", handler.updateFolder)
		folders.DELETE("/:folderID", handler.deleteFolder)
		folders.GET("/:folderID/files", handler.listFolderFiles)
		folders.POST("/:folderID/trash", handler.trashFolder)
		folders.POST("/:folderID/restore", handler.restoreFolder)
		folders.DELETE("/:folderID/purge", handler.purgeFolder)
	}

	files := group.Group("/files")
	{
		files.POST("", handler.uploadFile)
		files.GET("", handler.listRootFiles)
		files.GET("/:fileID", handler.getFile)
		files.GET("/:fileID/download", handler.downloadFile)
		files.PATCH("/:fileID", handler.updateFile)
		files.DELETE("/:fileID", handler.deleteFile)
		files.POST("/:fileID/trash", handler.trashFile)
		files.POST("/:fileID/restore", handler.restoreFile)
		files.DELETE("/:fileID/purge", handler.purgeFile)
	}

	group.GET("/recent", handler.listRecent)
	group.GET("/shared", handler.listShared)
	group.GET("/trash", handler.listTrash)
	group.DELETE("/trash", handler.emptyTrash)
	group.GET("/stats", handler.stats)
}

type httpHandler struct {
	service *Service
}

type createFolderRequest struct {
	Name     string `json:"name" binding:"required"`
	Color    string `json:"color"`
	ParentID *int64 `json:"parent_id"`
}

type updateFolderRequest struct {
	Name     *string `json:"name"`
	Color    *string `json:"color"`
	ParentID *int64  `json:"parent_id"`
	ToRoot   bool    `json:"to_root"`
}

type updateFileRequest struct {
	Name     *string `json:"name"`
	MimeType *string `json:"mime_type"`
	FolderID *int64  `json:"folder_id"`
	ToRoot   bool    `json:"to_root"`
	Shared   *bool   `json:"is_shared"`
	SharedBy *string `json:"shared_by"`
}

func (h *httpHandler) createFolder(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	folder, err := h.service.CreateFolder(c.Request.Context(), ownerID, req.Name, req.Color, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

func (h *httpHandler) listFolders(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var parentID *int64
	if raw := c.Query("parent"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent id"})
			return
		}
		parentID = &id
	}

	folders, err := h.service.ListFolders(c.Request.Context(), ownerID, parentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (h *httpHandler) getFolder(c *gin.Context) {
	ownerID, folderID, ok := requireOwnerAndID(c, "folderID")
	if !ok {
		return
	}

	folder, err := h.service.GetFolder(c.Request.Context(), ownerID, folderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (h *httpHandler) updateFolder(c *gin.Context) {
	ownerID, folderID, ok := requireOwnerAndID(c, "folderID")
	if !ok {
		return
	}

	var req updateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	folder, err := h.service.UpdateFolder(c.Request.Context(), folderID, ownerID, FolderUpdate{
		Name:     req.Name,
		Color:    req.Color,
		ParentID: req.ParentID,
		ToRoot:   req.ToRoot,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (h *httpHandler) deleteFolder(c *gin.Context) {
	ownerID, folderID, ok := requireOwnerAndID(c, "folderID")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteFolder(c.Request.Context(), folderID, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) listFolderFiles(c *gin.Context) {
	ownerID, folderID, ok := requireOwnerAndID(c, "folderID")
	if !ok {
		return
	}

	files, err := h.service.ListFilesByFolder(c.Request.Context(), ownerID, &folderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *httpHandler) trashFolder(c *gin.Context) {
	h.folderLifecycle(c, h.service.TrashFolder)
}

func (h *httpHandler) restoreFolder(c *gin.Context) {
	h.folderLifecycle(c, h.service.RestoreFolder)
}

func (h *httpHandler) purgeFolder(c *gin.Context) {
	h.folderLifecycle(c, h.service.PurgeFolder)
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	var folderID *int64
	if raw := c.PostForm("folder_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
			return
		}
		folderID = &id
	}

	file, err := h.service.Upload(c.Request.Context(), ownerID, folderID, header)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (h *httpHandler) listRootFiles(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	files, err := h.service.ListFilesByFolder(c.Request.Context(), ownerID, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *httpHandler) getFile(c *gin.Context) {
	ownerID, fileID, ok := requireOwnerAndID(c, "fileID")
	if !ok {
		return
	}

	file, err := h.service.GetFile(c.Request.Context(), ownerID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	ownerID, fileID, ok := requireOwnerAndID(c, "fileID")
	if !ok {
		return
	}

	file, reader, err := h.service.Download(c.Request.Context(), ownerID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Name),
	}
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, reader, headers)
}

func (h *httpHandler) updateFile(c *gin.Context) {
	ownerID, fileID, ok := requireOwnerAndID(c, "fileID")
	if !ok {
		return
	}

	var req updateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := h.service.UpdateFile(c.Request.Context(), fileID, ownerID, FileUpdate{
		Name:     req.Name,
		MimeType: req.MimeType,
		FolderID: req.FolderID,
		ToRoot:   req.ToRoot,
		Shared:   req.Shared,
		SharedBy: req.SharedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	ownerID, fileID, ok := requireOwnerAndID(c, "fileID")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteFile(c.Request.Context(), fileID, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) trashFile(c *gin.Context) {
	h.fileLifecycle(c, h.service.TrashFile)
}

func (h *httpHandler) restoreFile(c *gin.Context) {
	h.fileLifecycle(c, h.service.RestoreFile)
}

func (h *httpHandler) purgeFile(c *gin.Context) {
	h.fileLifecycle(c, h.service.PurgeFile)
}

func (h *httpHandler) listRecent(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	files, err := h.service.ListRecentFiles(c.Request.Context(), ownerID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *httpHandler) listShared(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	files, err := h.service.ListSharedFiles(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *httpHandler) listTrash(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	folders, files, err := h.service.ListTrash(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders, "files": files})
}

func (h *httpHandler) emptyTrash(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.service.EmptyTrash(c.Request.Context(), ownerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) stats(c *gin.Context) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type lifecycleFunc func(ctx context.Context, id, ownerID int64) error

func (h *httpHandler) folderLifecycle(c *gin.Context, fn lifecycleFunc) {
	ownerID, folderID, ok := requireOwnerAndID(c, "folderID")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), folderID, ownerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) fileLifecycle(c *gin.Context, fn lifecycleFunc) {
	ownerID, fileID, ok := requireOwnerAndID(c, "fileID")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), fileID, ownerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func requireOwnerAndID(c *gin.Context, param string) (int64, int64, bool) {
	ownerID, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, 0, false
	}
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, 0, false
	}
	return ownerID, id, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrCycle):
		c.JSON(http.StatusConflict, gin.H{"error": "folder cannot become its own ancestor"})
	case errors.Is(err, ErrObjectStore):
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage backend failure"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
