package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go-landing-studio/internal/model"
)

// Memory 在极简模式（SIMPLE_MODE）下保存记录，避免落库；也用于测试。
// 写入时做一次 JSON 往返，读出时与 SQLite 一样经过 DecodeTranslations。
type Memory struct {
	mu      sync.Mutex
	records map[string]memRecord // key: id
	users   map[string]model.User
}

type memRecord struct {
	rec          model.LandingRecord
	translations []byte
	owner        string
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]memRecord),
		users:   make(map[string]model.User),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	m.records = make(map[string]memRecord)
	m.users = make(map[string]model.User)
	m.mu.Unlock()
	return nil
}

// ListAll 返回副本，按 createdAt 倒序（相同时间按 id 排序）。
func (m *Memory) ListAll(ctx context.Context) ([]model.LandingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.LandingRecord, 0, len(m.records))
	for _, v := range m.records {
		out = append(out, v.materialize())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (model.LandingRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.LandingRecord{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[id]
	if !ok {
		return model.LandingRecord{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return v.materialize(), nil
}

func (m *Memory) Insert(ctx context.Context, rec model.LandingRecord, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("record.id required")
	}
	tr, err := EncodeTranslations(rec.Translations)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return fmt.Errorf("insert %s: %w", rec.ID, ErrDuplicate)
	}
	rec.CreatedAt = nowOr(rec.CreatedAt)
	rec.AdditionalImages = append([]string(nil), rec.AdditionalImages...)
	rec.Translations = nil
	m.records[rec.ID] = memRecord{rec: rec, translations: tr, owner: ownerID}
	return nil
}

func (m *Memory) Update(ctx context.Context, id string, u model.RecordUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var tr []byte
	if u.Translations != nil {
		b, err := EncodeTranslations(u.Translations)
		if err != nil {
			return err
		}
		tr = b
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	u.Translations = nil
	v.rec = u.Apply(v.rec)
	if tr != nil {
		v.translations = tr
	}
	m.records[id] = v
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(m.records, id)
	return nil
}

// Owner 返回记录的所有者 id（仅内存实现提供，便于测试）。
func (m *Memory) Owner(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].owner
}

func (m *Memory) CreateUser(ctx context.Context, u model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.ToLower(u.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[key]; ok {
		return fmt.Errorf("create user %s: %w", u.Email, ErrDuplicate)
	}
	u.Email = key
	u.CreatedAt = nowOr(u.CreatedAt)
	m.users[key] = u
	return nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, nil
}

func (v memRecord) materialize() model.LandingRecord {
	r := v.rec
	r.AdditionalImages = append([]string{}, v.rec.AdditionalImages...)
	r.Translations = DecodeTranslations(v.translations)
	return r
}

func encodeImages(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode additional_images: %w", err)
	}
	return b, nil
}

func decodeImages(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
