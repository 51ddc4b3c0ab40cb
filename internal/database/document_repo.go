package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/voxaccess/voxaccess-api/internal/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// CreateDocument registers an uploaded document
func (db *DB) CreateDocument(ctx context.Context, req *models.CreateDocumentRequest) (*models.Document, error) {
	doc := &models.Document{}

	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO documents (id, filename, content_type, media_kind, size_bytes, storage_key)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, filename, content_type, media_kind, size_bytes, storage_key, audio_key, uploaded_at
	`, req.ID, req.Filename, req.ContentType, string(req.MediaKind), req.SizeBytes, req.StorageKey).Scan(
		&doc.ID, &doc.Filename, &doc.ContentType, &doc.MediaKind,
		&doc.SizeBytes, &doc.StorageKey, &doc.AudioKey, &doc.UploadedAt,
	)

	if err != nil {
		return nil, err
	}

	return doc, nil
}

// GetDocumentByID retrieves a document by ID
func (db *DB) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	doc := &models.Document{}

	err := db.conn.QueryRowContext(ctx, `
		SELECT id, filename, content_type, media_kind, size_bytes, storage_key, audio_key, uploaded_at
		FROM documents
		WHERE id = ?
	`, id).Scan(
		&doc.ID, &doc.Filename, &doc.ContentType, &doc.MediaKind,
		&doc.SizeBytes, &doc.StorageKey, &doc.AudioKey, &doc.UploadedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	return doc, nil
}

// ListDocuments returns documents ordered by upload time, newest first
func (db *DB) ListDocuments(ctx context.Context, limit, offset int) ([]models.Document, int, error) {
	var total int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, filename, content_type, media_kind, size_bytes, storage_key, audio_key, uploaded_at
		FROM documents
		ORDER BY uploaded_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.ContentType, &doc.MediaKind,
			&doc.SizeBytes, &doc.StorageKey, &doc.AudioKey, &doc.UploadedAt,
		); err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}

	return docs, total, rows.Err()
}

// SetAudioKey records (or clears, with nil) the audio artifact key for a
// document
func (db *DB) SetAudioKey(ctx context.Context, id string, audioKey *string) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE documents SET audio_key = ? WHERE id = ?",
		audioKey, id,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

// DeleteDocument removes the registry row. Deleting a missing document is
// not an error.
func (db *DB) DeleteDocument(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	return err
}
