package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStats はセッション統計情報を管理します。
// 複数のゴルーチンから同時に更新されます。
type SessionStats struct {
	ID        uuid.UUID // ログとインデックスでセッションを識別するためのID
	StartTime time.Time // 起動時刻

	mu                sync.Mutex
	articlesArchived  int
	articlesSkipped   int
	articlesFailed    int
	filesDownloaded   int
	totalBytesWritten int64
}

// NewSessionStats は新しいセッションを開始します。
func NewSessionStats() *SessionStats {
	return &SessionStats{ID: uuid.New(), StartTime: time.Now()}
}

func (s *SessionStats) AddArticle() {
	s.mu.Lock()
	s.articlesArchived++
	s.mu.Unlock()
}

func (s *SessionStats) AddSkipped() {
	s.mu.Lock()
	s.articlesSkipped++
	s.mu.Unlock()
}

func (s *SessionStats) AddFailed() {
	s.mu.Lock()
	s.articlesFailed++
	s.mu.Unlock()
}

// AddFile は、保存したファイル1件とそのサイズを記録します。
func (s *SessionStats) AddFile(size int64) {
	s.mu.Lock()
	s.filesDownloaded++
	s.totalBytesWritten += size
	s.mu.Unlock()
}

// Counts は現在の集計値を返します。
func (s *SessionStats) Counts() (archived, skipped, failed, files int, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.articlesArchived, s.articlesSkipped, s.articlesFailed, s.filesDownloaded, s.totalBytesWritten
}

// FormatSessionInfo はセッション統計情報を文字列にフォーマットします。
func (s *SessionStats) FormatSessionInfo() string {
	archived, skipped, failed, files, bytes := s.Counts()

	uptime := time.Since(s.StartTime)
	hours := int(uptime.Hours())
	minutes := int(uptime.Minutes()) % 60

	// サイズをMB単位に変換
	sizeMB := float64(bytes) / (1024 * 1024)

	return fmt.Sprintf("セッション: %s | 経過: %dh%dm | 記事: %d (スキップ %d, 失敗 %d) | ファイル: %d | %.1fMB",
		s.ID.String()[:8], hours, minutes, archived, skipped, failed, files, sizeMB)
}
