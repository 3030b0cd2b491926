package commands

import (
	"context"
	"fmt"
	"log"
	"sync"

	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/core"
	"GoGalleryExplorer/internal/explorer"
	"GoGalleryExplorer/internal/index"
	"GoGalleryExplorer/internal/network"

	"github.com/spf13/cobra"
)

func newArchiveCmd() *cobra.Command {
	var taskName string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "設定ファイルのタスクを実行し、記事をアーカイブします。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runTasks(cmd.Context(), cfg, taskName)
		},
	}

	cmd.Flags().StringVarP(&taskName, "task", "t", "", "実行するタスク名 (既定: 有効な全タスク)")
	return cmd
}

// runTasks は、有効なタスクを GlobalMaxConcurrentTasks 個まで並行に実行します。
func runTasks(ctx context.Context, cfg *config.Config, taskName string) error {
	var tasks []config.Task
	for _, task := range cfg.Tasks {
		if taskName != "" && task.TaskName != taskName {
			continue
		}
		if taskName == "" && !task.IsEnabled() {
			continue
		}
		tasks = append(tasks, task)
	}
	if len(tasks) == 0 {
		if taskName != "" {
			return fmt.Errorf("タスク '%s' が見つかりません", taskName)
		}
		log.Println("有効なタスクがありません。終了します。")
		return nil
	}

	idx, err := openIndexIfNeeded(cfg, tasks)
	if err != nil {
		return err
	}
	if idx != nil {
		defer idx.Close()
	}

	explorers, err := newExplorers(cfg, tasks)
	if err != nil {
		return err
	}

	stats := core.NewSessionStats()
	log.Printf("INFO: セッション %s を開始します", stats.ID)

	// 並行実行数の制限 (グローバル設定)
	maxConcurrent := max(cfg.GlobalMaxConcurrentTasks, 1)
	taskSemaphore := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	log.Printf("タスク数: %d, 最大並行数: %d", len(tasks), maxConcurrent)

loop:
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			log.Println("コンテキストがキャンセルされたため、新規タスクの開始を中断します。")
			break loop
		case taskSemaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(task config.Task) {
			defer wg.Done()
			defer func() { <-taskSemaphore }()

			logger := newTaskLogger(task.TaskName)
			if _, err := core.ExecuteTask(ctx, task, explorers[task.SiteAdapter], idx, stats, logger); err != nil {
				logger.Printf("ERROR: タスクの実行に失敗しました: %v", err)
			}
		}(task)
	}
	wg.Wait()

	log.Printf("全てのタスクが完了しました。 %s", stats.FormatSessionInfo())
	return ctx.Err()
}

// newExplorers は、タスクが使うアダプタごとに Explorer を作成します。
// 全ての Explorer は一つのネットワーククライアントを共有するため、ホストごとのレート制限はタスク全体で守られます。
func newExplorers(cfg *config.Config, tasks []config.Task) (map[string]*explorer.Explorer, error) {
	client, err := network.NewClient(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("ネットワーククライアントの初期化に失敗しました: %w", err)
	}

	explorers := make(map[string]*explorer.Explorer)
	for _, task := range tasks {
		if _, ok := explorers[task.SiteAdapter]; ok {
			continue
		}
		ex, err := core.NewExplorerWithClient(client, cfg, task.SiteAdapter)
		if err != nil {
			return nil, err
		}
		explorers[task.SiteAdapter] = ex
	}
	return explorers, nil
}

func openIndexIfNeeded(cfg *config.Config, tasks []config.Task) (*index.Index, error) {
	for _, task := range tasks {
		if task.EnableMetadataIndex {
			idx, err := index.Open(cfg.IndexPath)
			if err != nil {
				return nil, fmt.Errorf("アーカイブインデックスを開けませんでした: %w", err)
			}
			return idx, nil
		}
	}
	return nil, nil
}
