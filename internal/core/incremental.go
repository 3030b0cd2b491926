// Package core は、GGEアプリケーションの中核となるアーカイブ処理を実装します。
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const snapshotFileName = ".snapshot.json"

// ArticleSnapshot は、アーカイブ済み記事の状態スナップショットを表します。
type ArticleSnapshot struct {
	Locator      string    `json:"locator"`
	Title        string    `json:"title"`
	LastChecked  time.Time `json:"last_checked"`
	Length       int       `json:"length"`
	ImagesSaved  int       `json:"images_saved"`
	CommentCount int       `json:"comment_count"`
}

// IsComplete は、記事の全画像が保存済みであればtrueを返します。
func (s *ArticleSnapshot) IsComplete() bool {
	return s.Length > 0 && s.ImagesSaved >= s.Length
}

// LoadArticleSnapshot は、既存のスナップショットファイルを読み込みます。
// ファイルが存在しない場合は (nil, nil) を返します。
func LoadArticleSnapshot(articleSavePath string) (*ArticleSnapshot, error) {
	snapshotPath := filepath.Join(articleSavePath, snapshotFileName)
	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // 初回アーカイブ
		}
		return nil, fmt.Errorf("スナップショットファイルの読み込みに失敗しました (path=%s): %w", snapshotPath, err)
	}

	var snapshot ArticleSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("スナップショットのパースに失敗しました (path=%s): %w", snapshotPath, err)
	}
	return &snapshot, nil
}

// SaveArticleSnapshot は、記事の現在の状態をスナップショットとして保存します。
func SaveArticleSnapshot(articleSavePath string, snapshot *ArticleSnapshot) error {
	snapshotPath := filepath.Join(articleSavePath, snapshotFileName)
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("スナップショットのシリアライズに失敗しました: %w", err)
	}
	if err := os.WriteFile(snapshotPath, data, 0644); err != nil {
		return fmt.Errorf("スナップショットファイルの書き込みに失敗しました (path=%s): %w", snapshotPath, err)
	}
	return nil
}

// NeedsUpdate は、記事を再アーカイブする必要があるかどうかを判定します。
func NeedsUpdate(snapshot *ArticleSnapshot, currentLength int) bool {
	if snapshot == nil {
		return true
	}
	// ページ数が増えた (更新された) 記事
	if currentLength > snapshot.Length {
		return true
	}
	// 前回のアーカイブが途中で終わっている
	return !snapshot.IsComplete()
}
