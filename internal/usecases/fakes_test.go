package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"supportdesk/internal/entities"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings(kv ...string) *fakeSettings {
	s := &fakeSettings{values: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[kv[i]] = kv[i+1]
	}
	return s
}

func (s *fakeSettings) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *fakeSettings) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *fakeSettings) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return entities.ErrNotFound
	}
	delete(s.values, key)
	return nil
}

func (s *fakeSettings) ListSettings(_ context.Context) ([]entities.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entities.Setting{}
	for k, v := range s.values {
		out = append(out, entities.Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type fakeCustomers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entities.Customer
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{rows: map[int64]*entities.Customer{}}
}

func (f *fakeCustomers) List(_ context.Context, _ entities.CustomerFilter) ([]entities.Customer, int, error) {
	out, _ := f.ListForBoard(context.Background())
	return out, len(out), nil
}

func (f *fakeCustomers) ListForBoard(_ context.Context) ([]entities.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entities.Customer{}
	for _, c := range f.rows {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeCustomers) Get(_ context.Context, id int64) (*entities.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("get customer: %w", entities.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomers) FindByContact(_ context.Context, email, phone string) (*entities.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if (email != "" && c.Email == email) || (phone != "" && c.Phone == phone) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCustomers) Create(_ context.Context, c *entities.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCustomers) CreateMany(ctx context.Context, customers []entities.Customer) (int, error) {
	for i := range customers {
		if err := f.Create(ctx, &customers[i]); err != nil {
			return 0, err
		}
	}
	return len(customers), nil
}

func (f *fakeCustomers) Update(_ context.Context, id int64, p entities.CustomerPatch) (*entities.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Company != nil {
		c.Company = *p.Company
	}
	if p.Stage != nil {
		c.Stage = *p.Stage
	}
	if p.ValueCents != nil {
		c.ValueCents = *p.ValueCents
	}
	if p.Tags != nil {
		c.Tags = *p.Tags
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomers) Move(_ context.Context, id int64, stage entities.Stage, position int) (*entities.Customer, entities.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, "", entities.ErrNotFound
	}
	from := c.Stage
	for _, other := range f.rows {
		if other.ID != id && other.Stage == stage && other.Position >= position {
			other.Position++
		}
	}
	c.Stage = stage
	c.Position = position
	cp := *c
	return &cp, from, nil
}

func (f *fakeCustomers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return entities.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeConversations struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entities.Conversation
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{rows: map[int64]*entities.Conversation{}}
}

func (f *fakeConversations) List(_ context.Context, _ entities.ConversationFilter) ([]entities.Conversation, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entities.Conversation{}
	for _, c := range f.rows {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (f *fakeConversations) Get(_ context.Context, id int64) (*entities.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("get conversation: %w", entities.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversations) FindActiveByRef(_ context.Context, channel entities.Channel, ref string) (*entities.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.Channel == channel && c.ExternalRef == ref && c.Status != entities.StatusClosed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeConversations) Create(_ context.Context, c *entities.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeConversations) Update(_ context.Context, id int64, p entities.ConversationPatch) (*entities.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.AssigneeID != nil {
		c.AssigneeID = p.AssigneeID
	}
	if p.ClearAssignee {
		c.AssigneeID = nil
	}
	if p.AgentID != nil {
		c.AgentID = p.AgentID
	}
	if p.Subject != nil {
		c.Subject = *p.Subject
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversations) SetAIResult(_ context.Context, id int64, confidence float64, status entities.ConversationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return entities.ErrNotFound
	}
	c.AIConfidence = &confidence
	if status != "" {
		c.Status = status
	}
	return nil
}

func (f *fakeConversations) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type fakeMessages struct {
	mu     sync.Mutex
	nextID int64
	rows   []entities.Message
}

func (f *fakeMessages) Create(_ context.Context, m *entities.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Now()
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMessages) ListByConversation(_ context.Context, conversationID int64) ([]entities.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entities.Message{}
	for _, m := range f.rows {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeAgents struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entities.Agent
}

func newFakeAgents() *fakeAgents {
	return &fakeAgents{rows: map[int64]*entities.Agent{}}
}

func (f *fakeAgents) List(_ context.Context) ([]entities.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entities.Agent{}
	for _, a := range f.rows {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAgents) Get(_ context.Context, id int64) (*entities.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("get agent: %w", entities.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAgents) Create(_ context.Context, a *entities.Agent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAgents) Update(_ context.Context, a *entities.Agent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[a.ID]; !ok {
		return entities.ErrNotFound
	}
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAgents) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return entities.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeKnowledge struct {
	mu     sync.Mutex
	nextID int64
	bases  map[int64]*entities.KnowledgeBase
	docs   []entities.Document
}

func newFakeKnowledge() *fakeKnowledge {
	return &fakeKnowledge{bases: map[int64]*entities.KnowledgeBase{}}
}

func (f *fakeKnowledge) ListBases(_ context.Context) ([]entities.KnowledgeBase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entities.KnowledgeBase{}
	for _, kb := range f.bases {
		out = append(out, *kb)
	}
	return out, nil
}

func (f *fakeKnowledge) GetBase(_ context.Context, id int64) (*entities.KnowledgeBase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kb, ok := f.bases[id]
	if !ok {
		return nil, fmt.Errorf("get knowledge base: %w", entities.ErrNotFound)
	}
	cp := *kb
	return &cp, nil
}

func (f *fakeKnowledge) CreateBase(_ context.Context, kb *entities.KnowledgeBase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	kb.ID = f.nextID
	cp := *kb
	f.bases[kb.ID] = &cp
	return nil
}

func (f *fakeKnowledge) DeleteBase(_ context.Context, id int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bases[id]; !ok {
		return nil, entities.ErrNotFound
	}
	delete(f.bases, id)
	var keys []string
	kept := f.docs[:0]
	for _, d := range f.docs {
		if d.KnowledgeBaseID == id {
			if d.ObjectKey != "" {
				keys = append(keys, d.ObjectKey)
			}
			continue
		}
		kept = append(kept, d)
	}
	f.docs = kept
	return keys, nil
}

func (f *fakeKnowledge) ListDocuments(_ context.Context, kbID int64) ([]entities.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entities.Document{}
	for _, d := range f.docs {
		if d.KnowledgeBaseID == kbID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeKnowledge) SearchDocuments(_ context.Context, kbID int64, query string, limit int) ([]entities.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := strings.ToLower(query)
	out := []entities.Document{}
	for _, d := range f.docs {
		if d.KnowledgeBaseID != kbID {
			continue
		}
		if strings.Contains(strings.ToLower(d.Title), q) || strings.Contains(strings.ToLower(d.Content), q) {
			out = append(out, d)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeKnowledge) CreateDocument(_ context.Context, d *entities.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	d.ID = f.nextID
	f.docs = append(f.docs, *d)
	return nil
}

func (f *fakeKnowledge) DeleteDocument(_ context.Context, kbID, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.docs {
		if d.ID == id && d.KnowledgeBaseID == kbID {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return d.ObjectKey, nil
		}
	}
	return "", entities.ErrNotFound
}

type fakeWebhooks struct {
	mu   sync.Mutex
	rows map[string]*entities.WebhookEvent
}

func newFakeWebhooks() *fakeWebhooks {
	return &fakeWebhooks{rows: map[string]*entities.WebhookEvent{}}
}

func (f *fakeWebhooks) Create(_ context.Context, e *entities.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.CreatedAt = time.Now()
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeWebhooks) Get(_ context.Context, id string) (*entities.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("get webhook event: %w", entities.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (f *fakeWebhooks) List(_ context.Context, status entities.WebhookStatus, limit int) ([]entities.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entities.WebhookEvent{}
	for _, e := range f.rows {
		if status == "" || e.Status == status {
			out = append(out, *e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeWebhooks) RecordAttempt(_ context.Context, id string, res entities.DeliveryResult) (*entities.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	e.Attempts++
	e.Status = entities.WebhookFailed
	if res.Delivered {
		e.Status = entities.WebhookDelivered
		now := time.Now()
		e.DeliveredAt = &now
	}
	e.ResponseStatus = nil
	if res.ResponseStatus != 0 {
		rs := res.ResponseStatus
		e.ResponseStatus = &rs
	}
	e.LastError = res.Error
	cp := *e
	return &cp, nil
}

func (f *fakeWebhooks) byType(eventType string) []entities.WebhookEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.WebhookEvent
	for _, e := range f.rows {
		if e.EventType == eventType {
			out = append(out, *e)
		}
	}
	return out
}

func payloadOf(e entities.WebhookEvent) map[string]any {
	var m map[string]any
	_ = json.Unmarshal(e.Payload, &m)
	return m
}

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entities.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: map[int64]*entities.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.Username == u.Username {
			return entities.ErrConflict
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.rows[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetAllUsers(_ context.Context) ([]entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entities.User{}
	for _, u := range f.rows {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) UpdateUserStatus(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) GetStats(_ context.Context) (entities.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s entities.UserStats
	for _, u := range f.rows {
		s.TotalUsers++
		if u.IsActive {
			s.ActiveUsers++
		}
		if u.Role == entities.RoleAdmin {
			s.AdminCount++
		}
	}
	return s, nil
}

// fakeLocks reports busy for the ids in busy and a repeat for the ids in
// repeated.
type fakeLocks struct {
	mu       sync.Mutex
	busy     map[int64]bool
	repeated map[int64]bool
	held     map[int64]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{busy: map[int64]bool{}, repeated: map[int64]bool{}, held: map[int64]bool{}}
}

func (l *fakeLocks) TryAcquire(id int64, _ string) (bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.repeated[id] {
		return false, true
	}
	if l.busy[id] || l.held[id] {
		return false, false
	}
	l.held[id] = true
	return true, false
}

func (l *fakeLocks) Release(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string]string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string]string{}}
}

func (o *memoryObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = string(b)
	return nil
}

func (o *memoryObjects) Remove(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMessenger) SendMessage(_ context.Context, to, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+":"+content)
	return nil
}
