// Package index は、アーカイブ済み記事のメタデータを SQLite に記録するインデックスです。
// 保存済みの記事を一覧したり、検証モードで照合したりするために使います。
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout は文字列のまま時系列順にソートできる固定長の形式です。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound は、指定したロケータのレコードが存在しないことを示します。
var ErrNotFound = errors.New("index record not found")

// Record は、アーカイブ済み記事一件分のレコードです。
type Record struct {
	Locator     string
	Title       string
	Kind        string
	Length      int
	ImagesSaved int
	Tags        []string
	SavePath    string
	ArchivedAt  time.Time
}

// Index は、SQLite によるアーカイブインデックスです。
type Index struct {
	db   *sql.DB
	path string
}

// Open は、指定されたパスのインデックスDBを開きます。存在しない場合は作成します。
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("インデックスのディレクトリ作成に失敗しました: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("インデックスDBのオープンに失敗しました: %w", err)
	}
	// SQLite は書き込みが一つに限られるため接続は一本にする
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	idx := &Index{db: db, path: path}
	if err := idx.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("インデックスのテーブル作成に失敗しました: %w", err)
	}
	return idx, nil
}

// Path は、DBファイルのパスを返します。
func (idx *Index) Path() string {
	return idx.path
}

// Close は、DB接続を閉じます。
func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		locator TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		kind TEXT,
		length INTEGER NOT NULL DEFAULT 0,
		images_saved INTEGER NOT NULL DEFAULT 0,
		tags TEXT,
		save_path TEXT,
		archived_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_archived_at ON articles(archived_at);
	`
	_, err := idx.db.ExecContext(ctx, schema)
	return err
}

// Upsert は、レコードを追加、または同じロケータのレコードを更新します。
// ArchivedAt がゼロ値の場合は現在時刻を使います。
func (idx *Index) Upsert(ctx context.Context, r Record) error {
	if r.Locator == "" {
		return errors.New("ロケータが空のレコードは登録できません")
	}
	if r.ArchivedAt.IsZero() {
		r.ArchivedAt = time.Now()
	}
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return fmt.Errorf("タグのシリアライズに失敗しました: %w", err)
	}

	query := `
	INSERT INTO articles (locator, title, kind, length, images_saved, tags, save_path, archived_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(locator) DO UPDATE SET
		title = excluded.title,
		kind = excluded.kind,
		length = excluded.length,
		images_saved = excluded.images_saved,
		tags = excluded.tags,
		save_path = excluded.save_path,
		archived_at = excluded.archived_at
	`
	_, err = idx.db.ExecContext(ctx, query,
		r.Locator, r.Title, r.Kind, r.Length, r.ImagesSaved, string(tags), r.SavePath,
		r.ArchivedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("レコード '%s' の登録に失敗しました: %w", r.Locator, err)
	}
	return nil
}

// Get は、ロケータに一致するレコードを返します。存在しない場合は ErrNotFound を返します。
func (idx *Index) Get(ctx context.Context, locator string) (Record, error) {
	row := idx.db.QueryRowContext(ctx, `
	SELECT locator, title, kind, length, images_saved, tags, save_path, archived_at
	FROM articles WHERE locator = ?`, locator)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	if err != nil {
		return Record{}, fmt.Errorf("レコード '%s' の取得に失敗しました: %w", locator, err)
	}
	return r, nil
}

// List は、全レコードをアーカイブ日時の新しい順に返します。
func (idx *Index) List(ctx context.Context) ([]Record, error) {
	rows, err := idx.db.QueryContext(ctx, `
	SELECT locator, title, kind, length, images_saved, tags, save_path, archived_at
	FROM articles ORDER BY archived_at DESC, locator`)
	if err != nil {
		return nil, fmt.Errorf("レコード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("レコードの読み込みに失敗しました: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		r          Record
		kind, tags sql.NullString
		savePath   sql.NullString
		archivedAt string
	)
	if err := s.Scan(&r.Locator, &r.Title, &kind, &r.Length, &r.ImagesSaved, &tags, &savePath, &archivedAt); err != nil {
		return Record{}, err
	}
	r.Kind = kind.String
	r.SavePath = savePath.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &r.Tags); err != nil {
			return Record{}, fmt.Errorf("タグのデシリアライズに失敗しました: %w", err)
		}
	}
	t, err := time.Parse(timeLayout, archivedAt)
	if err != nil {
		return Record{}, fmt.Errorf("アーカイブ日時の解析に失敗しました: %w", err)
	}
	r.ArchivedAt = t
	return r, nil
}
