package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/explorer"
	"GoGalleryExplorer/internal/index"
	"GoGalleryExplorer/internal/model"
)

// TaskResult は、1回のタスク実行の集計です。
type TaskResult struct {
	PagesFetched int
	Candidates   int
	Targets      int
	Failed       int
}

// ExecuteTask は、単一のタスクの全ライフサイクルを管理・実行します。
// 検索結果を StartPage から MaxPages ページ分 (0は無制限) 読み進め、空のページに達した時点で終了します。
func ExecuteTask(ctx context.Context, task config.Task, ex *explorer.Explorer, idx *index.Index, stats *SessionStats, logger *log.Logger) (TaskResult, error) {
	var result TaskResult
	logger.Println("タスクを開始します。")

	kinds := parseCategories(task.Categories)
	search := ex.SearchWithFilter(task.SearchKeyword, kinds...).Skip(task.StartPage)

	maxConcurrent := task.MaxConcurrentArticles
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	semaphore := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var failedMu sync.Mutex

	var searchErr error
	for batch, err := range explorer.TakeWhileNonEmpty(ctx, search) {
		if err != nil {
			searchErr = fmt.Errorf("検索結果の取得に失敗しました (query=%s, page=%d): %w", search.Query(), search.Page(), err)
			break
		}
		result.PagesFetched++
		result.Candidates += len(batch)

		targets := primaryFiltering(batch, task)
		result.Targets += len(targets)
		logger.Printf("ページ %d: 候補 %d 件中 %d 件が対象です。", search.Page()-1, len(batch), len(targets))

		for _, summary := range targets {
			if ctx.Err() != nil {
				logger.Println("シャットダウンシグナルにより、新規記事の処理を中止します。")
				break
			}

			wg.Add(1)
			semaphore <- struct{}{}
			go func(s model.ResultSummary) {
				defer wg.Done()
				defer func() { <-semaphore }()
				err := ArchiveSingleArticle(ctx, ex, task, s.Locator, idx, stats, logger)
				if err != nil && !errors.Is(err, ErrSkipped) {
					logger.Printf("ERROR: 記事 %s のアーカイブに失敗しました: %v", s.Locator, err)
					stats.AddFailed()
					failedMu.Lock()
					result.Failed++
					failedMu.Unlock()
				}
			}(summary)
		}

		if ctx.Err() != nil {
			break
		}
		if task.MaxPages > 0 && result.PagesFetched >= task.MaxPages {
			break
		}
	}

	wg.Wait()
	logger.Printf("タスクを終了します。 (pages=%d, targets=%d, failed=%d)", result.PagesFetched, result.Targets, result.Failed)

	if searchErr != nil {
		return result, searchErr
	}
	return result, ctx.Err()
}

// primaryFiltering は、検索結果の概要だけで判定できる条件で記事を絞り込みます。
// ページ数が一覧に表示されていない記事は、記事ページ取得後の二次フィルタで判定されます。
func primaryFiltering(batch []model.ResultSummary, task config.Task) []model.ResultSummary {
	var targets []model.ResultSummary
	for _, summary := range batch {
		if task.MinimumPages > 0 && summary.Length > 0 && summary.Length < task.MinimumPages {
			continue
		}
		if containsAnyTag(summary.Tags, task.ExcludeTags) {
			continue
		}
		targets = append(targets, summary)
	}
	return targets
}

func containsAnyTag(tags model.TagMap, exclude []string) bool {
	for _, tag := range exclude {
		if tags.HasString(tag) {
			return true
		}
	}
	return false
}

// parseCategories は、設定のカテゴリ名を ArticleKind に変換します。未知の名前は Misc として扱われます。
func parseCategories(names []string) []model.ArticleKind {
	kinds := make([]model.ArticleKind, 0, len(names))
	for _, name := range names {
		kinds = append(kinds, model.ParseArticleKind(name))
	}
	return kinds
}
