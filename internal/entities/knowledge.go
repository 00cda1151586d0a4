package entities

import "time"

type KnowledgeBase struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type Document struct {
	ID              int64     `json:"id"`
	KnowledgeBaseID int64     `json:"knowledge_base_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	ObjectKey       string    `json:"object_key,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
