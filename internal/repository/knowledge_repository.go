package repository

import (
	"context"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type KnowledgeRepository struct {
	db *pgxpool.Pool
}

func NewKnowledgeRepository(db *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

func (r *KnowledgeRepository) ListBases(ctx context.Context) ([]entities.KnowledgeBase, error) {
	rows, err := r.db.Query(ctx, `
		SELECT kb.id, kb.name, kb.description, COUNT(d.id), kb.created_at
		FROM knowledge_bases kb
		LEFT JOIN knowledge_documents d ON d.knowledge_base_id = kb.id
		GROUP BY kb.id
		ORDER BY kb.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bases := []entities.KnowledgeBase{}
	for rows.Next() {
		var kb entities.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.Name, &kb.Description, &kb.DocumentCount, &kb.CreatedAt); err != nil {
			return nil, err
		}
		bases = append(bases, kb)
	}
	return bases, rows.Err()
}

func (r *KnowledgeRepository) GetBase(ctx context.Context, id int64) (*entities.KnowledgeBase, error) {
	var kb entities.KnowledgeBase
	err := r.db.QueryRow(ctx, `
		SELECT kb.id, kb.name, kb.description,
		       (SELECT COUNT(*) FROM knowledge_documents d WHERE d.knowledge_base_id = kb.id),
		       kb.created_at
		FROM knowledge_bases kb WHERE kb.id = $1
	`, id).Scan(&kb.ID, &kb.Name, &kb.Description, &kb.DocumentCount, &kb.CreatedAt)
	if err != nil {
		return nil, mapError(err, "get knowledge base")
	}
	return &kb, nil
}

func (r *KnowledgeRepository) CreateBase(ctx context.Context, kb *entities.KnowledgeBase) error {
	err := r.db.QueryRow(ctx,
		"INSERT INTO knowledge_bases (name, description) VALUES ($1, $2) RETURNING id, created_at",
		kb.Name, kb.Description).Scan(&kb.ID, &kb.CreatedAt)
	return mapError(err, "create knowledge base")
}

// DeleteBase removes the base and returns the object keys of its documents.
func (r *KnowledgeRepository) DeleteBase(ctx context.Context, id int64) ([]string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, "SELECT object_key FROM knowledge_documents WHERE knowledge_base_id = $1 AND object_key <> ''", id)
	if err != nil {
		return nil, err
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, err
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, "DELETE FROM knowledge_bases WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if err := requireRow(tag, "delete knowledge base"); err != nil {
		return nil, err
	}
	return keys, tx.Commit(ctx)
}

func (r *KnowledgeRepository) ListDocuments(ctx context.Context, kbID int64) ([]entities.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, knowledge_base_id, title, content, object_key, created_at
		FROM knowledge_documents WHERE knowledge_base_id = $1 ORDER BY id
	`, kbID)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// SearchDocuments matches query case-insensitively against title and content.
func (r *KnowledgeRepository) SearchDocuments(ctx context.Context, kbID int64, query string, limit int) ([]entities.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, knowledge_base_id, title, content, object_key, created_at
		FROM knowledge_documents
		WHERE knowledge_base_id = $1 AND (title ILIKE $2 OR content ILIKE $2)
		ORDER BY (title ILIKE $2) DESC, id
		LIMIT $3
	`, kbID, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

func (r *KnowledgeRepository) CreateDocument(ctx context.Context, d *entities.Document) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO knowledge_documents (knowledge_base_id, title, content, object_key)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at
	`, d.KnowledgeBaseID, d.Title, d.Content, d.ObjectKey).Scan(&d.ID, &d.CreatedAt)
	return mapError(err, "create document")
}

// DeleteDocument returns the deleted document's object key.
func (r *KnowledgeRepository) DeleteDocument(ctx context.Context, kbID, id int64) (string, error) {
	var key string
	err := r.db.QueryRow(ctx,
		"DELETE FROM knowledge_documents WHERE id = $1 AND knowledge_base_id = $2 RETURNING object_key",
		id, kbID).Scan(&key)
	if err != nil {
		return "", mapError(err, "delete document")
	}
	return key, nil
}

func collectDocuments(rows pgx.Rows) ([]entities.Document, error) {
	defer rows.Close()
	docs := []entities.Document{}
	for rows.Next() {
		var d entities.Document
		if err := rows.Scan(&d.ID, &d.KnowledgeBaseID, &d.Title, &d.Content, &d.ObjectKey, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
