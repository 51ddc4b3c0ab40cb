package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/voxaccess/voxaccess-api/internal/database"
	"github.com/voxaccess/voxaccess-api/internal/models"
	"github.com/voxaccess/voxaccess-api/internal/storage"
)

// UploadDocument accepts a multipart file, validates its media type, stores
// the bytes, and registers the document
func (h *Handler) UploadDocument(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "file is required")
	}

	contentType := file.Header.Get("Content-Type")
	mediaKind, ok := models.MediaKindForContentType(contentType)
	if !ok {
		return Error(c, fiber.StatusBadRequest, "unsupported file type. Supported: JPEG, PNG, PDF")
	}

	if file.Size > h.cfg.MaxUploadBytes {
		return Error(c, fiber.StatusBadRequest,
			fmt.Sprintf("file too large. Maximum size is %dMB", h.cfg.MaxUploadBytes/(1024*1024)))
	}

	id := uuid.NewString()
	storageKey := storage.UploadKey(id, file.Filename)

	src, err := file.Open()
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}
	defer src.Close()

	if err := h.store.Save(c.Context(), storageKey, src, file.Size, contentType); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to store file")
	}

	doc, err := h.db.CreateDocument(c.Context(), &models.CreateDocumentRequest{
		ID:          id,
		Filename:    file.Filename,
		ContentType: contentType,
		MediaKind:   mediaKind,
		SizeBytes:   file.Size,
		StorageKey:  storageKey,
	})
	if err != nil {
		// Clean up the stored object on failure
		if removeErr := h.store.Remove(c.Context(), storageKey); removeErr != nil {
			log.Printf("Warning: failed to clean up object %s after registration failure: %v", storageKey, removeErr)
		}
		return Error(c, fiber.StatusInternalServerError, "failed to register document")
	}

	return Success(c, doc)
}

// ProcessDocument runs the extraction pipeline for a document
func (h *Handler) ProcessDocument(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Query("file_id"))
	if id == "" {
		return Error(c, fiber.StatusBadRequest, "file_id is required")
	}

	mode, ok := models.ParseProcessMode(c.Query("process_type"))
	if !ok {
		return Error(c, fiber.StatusBadRequest, "invalid process_type. Supported: text, description, audio, all")
	}

	result, err := h.pipeline.Process(c.Context(), id, mode)
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			return Error(c, fiber.StatusNotFound, "document not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to process document")
	}

	return Success(c, result)
}

// GetAudio streams the synthesized audio artifact for a document
func (h *Handler) GetAudio(c *fiber.Ctx) error {
	id := c.Params("id")

	doc, err := h.db.GetDocumentByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			return Error(c, fiber.StatusNotFound, "document not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get document")
	}

	if doc.AudioKey == nil {
		return Error(c, fiber.StatusNotFound, "no audio has been generated for this document")
	}

	rc, err := h.store.Open(c.Context(), *doc.AudioKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Error(c, fiber.StatusNotFound, "no audio has been generated for this document")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to open audio")
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.SendStream(rc)
}

// ExportRequest is the body of an export call
type ExportRequest struct {
	FileID  string `json:"file_id"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

// ExportDocument renders literal content as txt or srt, persists the
// artifact, and returns it as a download
func (h *Handler) ExportDocument(c *fiber.Ctx) error {
	var req ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.FileID) == "" {
		return Error(c, fiber.StatusBadRequest, "file_id is required")
	}

	if _, err := h.db.GetDocumentByID(c.Context(), req.FileID); err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			return Error(c, fiber.StatusNotFound, "document not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get document")
	}

	data, contentType, err := h.formatter.Format(req.Content, req.Format)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	ext := strings.ToLower(req.Format)
	key := storage.ExportKey(req.FileID, ext)
	if err := h.store.Save(c.Context(), key, strings.NewReader(string(data)), int64(len(data)), contentType); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to store export")
	}

	filename := fmt.Sprintf("voxaccess_%s.%s", req.FileID, ext)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename=`+filename)
	return c.Send(data)
}

// DeleteDocument removes a document and every derived artifact. Deleting an
// unknown identifier succeeds.
func (h *Handler) DeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")

	doc, err := h.db.GetDocumentByID(c.Context(), id)
	if err != nil && !errors.Is(err, database.ErrDocumentNotFound) {
		return Error(c, fiber.StatusInternalServerError, "failed to get document")
	}

	keys := storage.DerivedKeys(id)
	if doc != nil {
		keys = append(keys, doc.StorageKey)
	}
	if err := h.store.RemoveAll(c.Context(), keys); err != nil {
		log.Printf("Warning: failed to delete artifacts for document %s: %v", id, err)
	}

	if err := h.db.DeleteDocument(c.Context(), id); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to delete document")
	}

	return Success(c, fiber.Map{"deleted": true})
}

// GetDocument returns a single document's metadata
func (h *Handler) GetDocument(c *fiber.Ctx) error {
	doc, err := h.db.GetDocumentByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			return Error(c, fiber.StatusNotFound, "document not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get document")
	}

	return Success(c, doc)
}

// ListDocuments returns a paginated list of uploaded documents
func (h *Handler) ListDocuments(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	docs, total, err := h.db.ListDocuments(c.Context(), limit, offset)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list documents")
	}

	return SuccessWithMeta(c, docs, total, limit, offset)
}
