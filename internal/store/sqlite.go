package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go-landing-studio/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	// 说明：modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空业务数据表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM landing_pages`); err != nil {
		return fmt.Errorf("delete landing_pages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
// created_at 存 Unix 纳秒，保证同一秒内创建的记录也能稳定排序。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS landing_pages (
            id TEXT PRIMARY KEY,
            slug TEXT NOT NULL,
            product_name TEXT NOT NULL,
            image_url TEXT,
            additional_images TEXT,
            buy_link TEXT,
            base_language TEXT,
            niche TEXT,
            target_audience TEXT,
            tone TEXT,
            translations TEXT,
            user_id TEXT,
            created_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_landing_pages_created ON landing_pages(created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            created_at INTEGER NOT NULL
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

const recordColumns = `id, slug, product_name, COALESCE(image_url,''), COALESCE(additional_images,''), COALESCE(buy_link,''),
    COALESCE(base_language,''), COALESCE(niche,''), COALESCE(target_audience,''), COALESCE(tone,''), COALESCE(translations,''), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc rowScanner) (model.LandingRecord, error) {
	var r model.LandingRecord
	var images, translations string
	var created int64
	if err := sc.Scan(&r.ID, &r.Slug, &r.ProductName, &r.ImageURL, &images, &r.BuyLink,
		&r.BaseLanguage, &r.Niche, &r.TargetAudience, &r.Tone, &translations, &created); err != nil {
		return r, err
	}
	r.AdditionalImages = decodeImages(images)
	r.Translations = DecodeTranslations([]byte(translations))
	r.CreatedAt = time.Unix(0, created)
	return r, nil
}

// ListAll 返回全部记录，按 created_at 倒序。
func (s *SQLite) ListAll(ctx context.Context) ([]model.LandingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM landing_pages ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query landing_pages: %w", err)
	}
	defer rows.Close()
	out := []model.LandingRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan landing_pages: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate landing_pages: %w", err)
	}
	return out, nil
}

// Get 按 id 读取单条记录。
func (s *SQLite) Get(ctx context.Context, id string) (model.LandingRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM landing_pages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("get %s: %w", id, err)
	}
	return r, nil
}

// Insert 写入新记录；ownerID 只落在 user_id 列。
func (s *SQLite) Insert(ctx context.Context, rec model.LandingRecord, ownerID string) error {
	if rec.ID == "" {
		return errors.New("record.id required")
	}
	images, err := encodeImages(rec.AdditionalImages)
	if err != nil {
		return err
	}
	tr, err := EncodeTranslations(rec.Translations)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO landing_pages(id, slug, product_name, image_url, additional_images, buy_link,
        base_language, niche, target_audience, tone, translations, user_id, created_at)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Slug, rec.ProductName, rec.ImageURL, string(images), rec.BuyLink,
		rec.BaseLanguage, rec.Niche, rec.TargetAudience, rec.Tone, string(tr), ownerID, nowOr(rec.CreatedAt).UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s: %w", rec.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert %s: %w", rec.ID, err)
	}
	return nil
}

// Update 只更新非 nil 字段；translations 整体替换。
func (s *SQLite) Update(ctx context.Context, id string, u model.RecordUpdate) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.Slug != nil {
		add("slug", *u.Slug)
	}
	if u.ProductName != nil {
		add("product_name", *u.ProductName)
	}
	if u.ImageURL != nil {
		add("image_url", *u.ImageURL)
	}
	if u.AdditionalImages != nil {
		b, err := encodeImages(*u.AdditionalImages)
		if err != nil {
			return err
		}
		add("additional_images", string(b))
	}
	if u.BuyLink != nil {
		add("buy_link", *u.BuyLink)
	}
	if u.BaseLanguage != nil {
		add("base_language", *u.BaseLanguage)
	}
	if u.Niche != nil {
		add("niche", *u.Niche)
	}
	if u.TargetAudience != nil {
		add("target_audience", *u.TargetAudience)
	}
	if u.Tone != nil {
		add("tone", *u.Tone)
	}
	if u.Translations != nil {
		b, err := EncodeTranslations(u.Translations)
		if err != nil {
			return err
		}
		add("translations", string(b))
	}
	if len(sets) == 0 {
		// 空更新也要确认 id 存在
		_, err := s.Get(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE landing_pages SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	return affected(res, "update", id)
}

// Delete 按 id 删除。
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM landing_pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return affected(res, "delete", id)
}

// CreateUser 新建运营账号（邮箱唯一）。
func (s *SQLite) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, email, password_hash, created_at) VALUES(?,?,?,?)`,
		u.ID, strings.ToLower(u.Email), u.PasswordHash, nowOr(u.CreatedAt).UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return nil
}

// UserByEmail 按邮箱（不区分大小写）查找账号。
func (s *SQLite) UserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(email)).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return u, fmt.Errorf("query user %s: %w", email, err)
	}
	u.CreatedAt = time.Unix(0, created)
	return u, nil
}

func affected(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
