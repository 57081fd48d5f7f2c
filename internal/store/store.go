// 包 store 提供落地页记录与运营账号的存储：SQLite 实现与极简模式下的内存实现。
// 两者遵循同一契约：ListAll 按 createdAt 倒序；读出的 translations 一律经过 content.Migrate。
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-landing-studio/internal/content"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/model"
)

var (
	// ErrNotFound 表示 id（或邮箱）不存在。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 表示唯一键冲突（记录 id 或账号邮箱）。
	ErrDuplicate = errors.New("duplicate key")
)

// Store 为落地页记录存储契约。
type Store interface {
	ListAll(ctx context.Context) ([]model.LandingRecord, error)
	Get(ctx context.Context, id string) (model.LandingRecord, error)
	Insert(ctx context.Context, rec model.LandingRecord, ownerID string) error
	Update(ctx context.Context, id string, u model.RecordUpdate) error
	Delete(ctx context.Context, id string) error
	Reset(ctx context.Context) error
	Close() error
}

// UserStore 为运营账号存储契约（auth 使用）。
type UserStore interface {
	CreateUser(ctx context.Context, u model.User) error
	UserByEmail(ctx context.Context, email string) (model.User, error)
}

// Backend 同时提供记录与账号存储，SQLite 与 Memory 都满足。
type Backend interface {
	Store
	UserStore
}

var (
	_ Backend = (*SQLite)(nil)
	_ Backend = (*Memory)(nil)
)

// DecodeTranslations 解析持久化的 translations：
// 先按结构化 JSON 解析；若得到的是 JSON 字符串（二次编码）则再解析一次；
// 仍失败时返回空映射，不让单条坏数据拖垮整个列表。
func DecodeTranslations(raw []byte) map[string]model.ContentBlock {
	m, err := decodeRaw(raw, 2)
	if err != nil {
		logx.Warnf("translations 解析失败，使用空映射: %v", err)
		return map[string]model.ContentBlock{}
	}
	return content.Migrate(m)
}

// decodeRaw 逐个语言解析；某个语言的内容形态错误时只丢弃该语言。
func decodeRaw(raw []byte, depth int) (map[string]model.RawContent, error) {
	if len(raw) == 0 {
		return map[string]model.RawContent{}, nil
	}
	var blocks map[string]json.RawMessage
	err := json.Unmarshal(raw, &blocks)
	if err != nil {
		var s string
		if depth > 0 && json.Unmarshal(raw, &s) == nil {
			return decodeRaw([]byte(s), depth-1)
		}
		return nil, fmt.Errorf("decode translations: %w", err)
	}
	m := make(map[string]model.RawContent, len(blocks))
	for tag, b := range blocks {
		var rc model.RawContent
		if err := json.Unmarshal(b, &rc); err != nil {
			logx.Warnf("translations[%s] 解析失败，已跳过: %v", tag, err)
			continue
		}
		m[tag] = rc
	}
	return m, nil
}

// EncodeTranslations 将内容块映射序列化为结构化 JSON。
func EncodeTranslations(t map[string]model.ContentBlock) ([]byte, error) {
	if t == nil {
		t = map[string]model.ContentBlock{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode translations: %w", err)
	}
	return b, nil
}
