package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"supportdesk/internal/entities"
	"supportdesk/internal/interfaces"

	"github.com/google/uuid"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

type KnowledgeUsecase struct {
	store   KnowledgeStore
	objects interfaces.ObjectStore // optional
	logger  *slog.Logger
}

func NewKnowledgeUsecase(store KnowledgeStore, objects interfaces.ObjectStore, logger *slog.Logger) *KnowledgeUsecase {
	return &KnowledgeUsecase{store: store, objects: objects, logger: logger}
}

func (uc *KnowledgeUsecase) ListBases(ctx context.Context) ([]entities.KnowledgeBase, error) {
	return uc.store.ListBases(ctx)
}

func (uc *KnowledgeUsecase) GetBase(ctx context.Context, id int64) (*entities.KnowledgeBase, error) {
	return uc.store.GetBase(ctx, id)
}

func (uc *KnowledgeUsecase) CreateBase(ctx context.Context, kb *entities.KnowledgeBase) error {
	var err error
	if kb.Name, err = requireText("name", kb.Name, MaxTitleLength); err != nil {
		return err
	}
	if kb.Description, err = optionalText("description", kb.Description, MaxMessageLength); err != nil {
		return err
	}
	return uc.store.CreateBase(ctx, kb)
}

// DeleteBase removes a knowledge base, its documents and their stored originals.
func (uc *KnowledgeUsecase) DeleteBase(ctx context.Context, id int64) error {
	keys, err := uc.store.DeleteBase(ctx, id)
	if err != nil {
		return err
	}
	for _, key := range keys {
		uc.removeObject(ctx, key)
	}
	return nil
}

func (uc *KnowledgeUsecase) ListDocuments(ctx context.Context, kbID int64) ([]entities.Document, error) {
	if _, err := uc.store.GetBase(ctx, kbID); err != nil {
		return nil, err
	}
	return uc.store.ListDocuments(ctx, kbID)
}

// AddDocument stores a document; with object storage configured the original
// body is uploaded as well.
func (uc *KnowledgeUsecase) AddDocument(ctx context.Context, kbID int64, title, content string) (*entities.Document, error) {
	var err error
	if title, err = requireText("title", title, MaxTitleLength); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(SanitizeString(content))
	if !ValidateLength(content, 1, MaxDocumentLength) {
		return nil, fmt.Errorf("%w: content must be 1-%d characters", entities.ErrInvalidInput, MaxDocumentLength)
	}
	if _, err := uc.store.GetBase(ctx, kbID); err != nil {
		return nil, err
	}

	doc := &entities.Document{KnowledgeBaseID: kbID, Title: title, Content: content}
	if uc.objects != nil {
		key := fmt.Sprintf("kb/%d/%s.md", kbID, uuid.NewString())
		if err := uc.objects.Put(ctx, key, strings.NewReader(content), int64(len(content)), "text/markdown"); err != nil {
			return nil, err
		}
		doc.ObjectKey = key
	}

	if err := uc.store.CreateDocument(ctx, doc); err != nil {
		if doc.ObjectKey != "" {
			uc.removeObject(ctx, doc.ObjectKey)
		}
		return nil, err
	}
	return doc, nil
}

func (uc *KnowledgeUsecase) DeleteDocument(ctx context.Context, kbID, id int64) error {
	key, err := uc.store.DeleteDocument(ctx, kbID, id)
	if err != nil {
		return err
	}
	uc.removeObject(ctx, key)
	return nil
}

// Search is a case-insensitive substring match over title and content.
func (uc *KnowledgeUsecase) Search(ctx context.Context, kbID int64, query string, limit int) ([]entities.Document, error) {
	query = strings.TrimSpace(SanitizeString(query))
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", entities.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if _, err := uc.store.GetBase(ctx, kbID); err != nil {
		return nil, err
	}
	return uc.store.SearchDocuments(ctx, kbID, query, limit)
}

func (uc *KnowledgeUsecase) removeObject(ctx context.Context, key string) {
	if key == "" || uc.objects == nil {
		return
	}
	if err := uc.objects.Remove(ctx, key); err != nil {
		uc.logger.Warn("failed to remove document object", "key", key, "error", err)
	}
}
