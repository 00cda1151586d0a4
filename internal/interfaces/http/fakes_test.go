package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"supportdesk/internal/entities"
	"supportdesk/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memSettings struct {
	mu sync.Mutex
	kv map[string]string
}

func newMemSettings() *memSettings { return &memSettings{kv: map[string]string{}} }

func (s *memSettings) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv[key], nil
}

func (s *memSettings) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

func (s *memSettings) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.kv[key]; !ok {
		return entities.ErrNotFound
	}
	delete(s.kv, key)
	return nil
}

func (s *memSettings) ListSettings(_ context.Context) ([]entities.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entities.Setting{}
	for k, v := range s.kv {
		out = append(out, entities.Setting{Key: k, Value: v})
	}
	return out, nil
}

type memEvents struct {
	mu   sync.Mutex
	rows map[string]*entities.WebhookEvent
}

func newMemEvents() *memEvents { return &memEvents{rows: map[string]*entities.WebhookEvent{}} }

func (m *memEvents) Create(_ context.Context, e *entities.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memEvents) Get(_ context.Context, id string) (*entities.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get webhook event: %w", entities.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m *memEvents) List(_ context.Context, _ entities.WebhookStatus, _ int) ([]entities.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entities.WebhookEvent{}
	for _, e := range m.rows {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memEvents) RecordAttempt(_ context.Context, id string, res entities.DeliveryResult) (*entities.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	e.Attempts++
	e.Status = entities.WebhookFailed
	if res.Delivered {
		e.Status = entities.WebhookDelivered
	}
	e.LastError = res.Error
	cp := *e
	return &cp, nil
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entities.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[int64]*entities.User{}} }

func (m *memUsers) Create(_ context.Context, u *entities.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetAllUsers(_ context.Context) ([]entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entities.User{}
	for _, u := range m.rows {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUsers) UpdateUserStatus(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) GetStats(_ context.Context) (entities.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s entities.UserStats
	for _, u := range m.rows {
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

type recordingMessenger struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMessenger) SendMessage(_ context.Context, to, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+":"+content)
	return nil
}

type memCustomers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entities.Customer
}

func newMemCustomers() *memCustomers { return &memCustomers{rows: map[int64]*entities.Customer{}} }

func (m *memCustomers) sorted() []entities.Customer {
	out := []entities.Customer{}
	for _, c := range m.rows {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memCustomers) List(_ context.Context, f entities.CustomerFilter) ([]entities.Customer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entities.Customer{}
	for _, c := range m.sorted() {
		if f.Stage != "" && c.Stage != f.Stage {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memCustomers) ListForBoard(_ context.Context) ([]entities.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memCustomers) Get(_ context.Context, id int64) (*entities.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get customer: %w", entities.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomers) FindByContact(_ context.Context, email, phone string) (*entities.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.sorted() {
		if (email != "" && c.Email == email) || (phone != "" && c.Phone == phone) {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memCustomers) insert(c *entities.Customer) {
	m.nextID++
	c.ID = m.nextID
	c.Position = 0
	for _, other := range m.rows {
		if other.Stage == c.Stage && other.Position >= c.Position {
			c.Position = other.Position + 1
		}
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.rows[c.ID] = &cp
}

func (m *memCustomers) Create(_ context.Context, c *entities.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(c)
	return nil
}

func (m *memCustomers) CreateMany(_ context.Context, customers []entities.Customer) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range customers {
		m.insert(&customers[i])
	}
	return len(customers), nil
}

func (m *memCustomers) Update(_ context.Context, id int64, p entities.CustomerPatch) (*entities.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Stage != nil {
		c.Stage = *p.Stage
	}
	if p.ValueCents != nil {
		c.ValueCents = *p.ValueCents
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomers) Move(_ context.Context, id int64, stage entities.Stage, position int) (*entities.Customer, entities.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, "", fmt.Errorf("move customer: %w", entities.ErrNotFound)
	}
	from := c.Stage
	c.Stage = stage
	c.Position = position
	cp := *c
	return &cp, from, nil
}

func (m *memCustomers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return entities.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memConversations struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entities.Conversation
}

func newMemConversations() *memConversations {
	return &memConversations{rows: map[int64]*entities.Conversation{}}
}

func (m *memConversations) List(_ context.Context, f entities.ConversationFilter) ([]entities.Conversation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entities.Conversation{}
	for _, c := range m.rows {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Channel != "" && c.Channel != f.Channel {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memConversations) Get(_ context.Context, id int64) (*entities.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get conversation: %w", entities.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *memConversations) FindActiveByRef(_ context.Context, channel entities.Channel, ref string) (*entities.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.Channel == channel && c.ExternalRef == ref && c.Status != entities.StatusClosed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memConversations) Create(_ context.Context, c *entities.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.LastMessageAt = c.CreatedAt
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memConversations) Update(_ context.Context, id int64, p entities.ConversationPatch) (*entities.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
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

func (m *memConversations) SetAIResult(_ context.Context, id int64, confidence float64, status entities.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return entities.ErrNotFound
	}
	c.AIConfidence = &confidence
	if status != "" {
		c.Status = status
	}
	return nil
}

func (m *memConversations) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return entities.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memMessages struct {
	mu     sync.Mutex
	nextID int64
	rows   []entities.Message
}

func (m *memMessages) Create(_ context.Context, msg *entities.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	msg.CreatedAt = time.Now()
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) ListByConversation(_ context.Context, conversationID int64) ([]entities.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entities.Message{}
	for _, msg := range m.rows {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memAgents struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entities.Agent
}

func newMemAgents() *memAgents { return &memAgents{rows: map[int64]*entities.Agent{}} }

func (m *memAgents) List(_ context.Context) ([]entities.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entities.Agent{}
	for _, a := range m.rows {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAgents) Get(_ context.Context, id int64) (*entities.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get agent: %w", entities.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *memAgents) Create(_ context.Context, a *entities.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memAgents) Update(_ context.Context, a *entities.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.ID]; !ok {
		return entities.ErrNotFound
	}
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memAgents) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// memAnalytics returns fixed aggregates and remembers the last window start.
type memAnalytics struct {
	mu    sync.Mutex
	since time.Time
}

func (m *memAnalytics) ConversationBreakdown(_ context.Context, since time.Time) (map[entities.ConversationStatus]int, map[entities.Channel]int, *float64, error) {
	m.mu.Lock()
	m.since = since
	m.mu.Unlock()
	avg := 0.75
	return map[entities.ConversationStatus]int{entities.StatusOpen: 3, entities.StatusResolved: 1},
		map[entities.Channel]int{entities.ChannelWeb: 3, entities.ChannelTelegram: 1}, &avg, nil
}

func (m *memAnalytics) CountEvents(_ context.Context, _ string, _ time.Time) (int, error) {
	return 2, nil
}

func (m *memAnalytics) DailyMessages(_ context.Context, since time.Time) ([]entities.DailyVolume, error) {
	return []entities.DailyVolume{{Date: since, Customer: 4, AI: 4}}, nil
}

func (m *memAnalytics) FunnelSummary(_ context.Context) ([]entities.StageSummary, error) {
	return []entities.StageSummary{{Stage: entities.StageWon, Count: 1, ValueCents: 5000}}, nil
}

func (m *memAnalytics) NewCustomers(_ context.Context, _ time.Time) (int, error) {
	return 5, nil
}

// memRows keeps rows per table and validates requests with the gateway's
// whitelist and statement builders.
type memRows struct {
	mu     sync.Mutex
	nextID int64
	tables map[string][]map[string]any
}

func newMemRows() *memRows { return &memRows{tables: map[string][]map[string]any{}} }

func rowKey(row map[string]any, pk string) string { return fmt.Sprint(row[pk]) }

func (m *memRows) Select(_ context.Context, table string, q repository.RowQuery) ([]map[string]any, error) {
	spec, err := repository.LookupTable(table)
	if err != nil {
		return nil, err
	}
	if _, _, err := repository.BuildSelect(spec, q); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []map[string]any{}
	for _, row := range m.tables[table] {
		match := true
		for col, want := range q.Filters {
			if fmt.Sprint(row[col]) != want {
				match = false
			}
		}
		if match {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memRows) Insert(_ context.Context, table string, data map[string]any) (map[string]any, error) {
	spec, err := repository.LookupTable(table)
	if err != nil {
		return nil, err
	}
	if _, _, err := repository.BuildInsert(spec, data); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row := map[string]any{}
	for k, v := range data {
		row[k] = v
	}
	if spec.PrimaryKey == "id" {
		m.nextID++
		row["id"] = m.nextID
	}
	m.tables[table] = append(m.tables[table], row)
	return row, nil
}

func (m *memRows) Update(_ context.Context, table, key string, data map[string]any) (map[string]any, error) {
	spec, err := repository.LookupTable(table)
	if err != nil {
		return nil, err
	}
	if _, _, err := repository.BuildUpdate(spec, key, data); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.tables[table] {
		if rowKey(row, spec.PrimaryKey) == key {
			for k, v := range data {
				row[k] = v
			}
			return row, nil
		}
	}
	return nil, fmt.Errorf("update %s: %w", table, entities.ErrNotFound)
}

func (m *memRows) Delete(_ context.Context, table, key string) error {
	spec, err := repository.LookupTable(table)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[table]
	for i, row := range rows {
		if rowKey(row, spec.PrimaryKey) == key {
			m.tables[table] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s: %w", table, entities.ErrNotFound)
}

func (m *memEvents) count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.rows {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}
