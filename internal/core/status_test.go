package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStats(t *testing.T) {
	stats := NewSessionStats()
	other := NewSessionStats()
	assert.NotEqual(t, stats.ID, other.ID)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.AddFile(1024 * 1024)
			stats.AddArticle()
		}()
	}
	wg.Wait()
	stats.AddSkipped()
	stats.AddFailed()

	archived, skipped, failed, files, bytes := stats.Counts()
	assert.Equal(t, 10, archived)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 10, files)
	assert.Equal(t, int64(10*1024*1024), bytes)

	info := stats.FormatSessionInfo()
	assert.Contains(t, info, stats.ID.String()[:8])
	assert.Contains(t, info, "記事: 10")
	assert.Contains(t, info, "10.0MB")
}
