package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/explorer"
	"GoGalleryExplorer/internal/model"
)

const verificationHistoryFileName = ".verification_history.json"

// VerificationResult は検証結果を表します。
type VerificationResult struct {
	TotalChecked   int
	TotalMissing   int
	TotalRepaired  int
	TotalFailed    int
	MissingDetails []string
}

func (r *VerificationResult) merge(other VerificationResult) {
	r.TotalChecked += other.TotalChecked
	r.TotalMissing += other.TotalMissing
	r.TotalRepaired += other.TotalRepaired
	r.TotalFailed += other.TotalFailed
	r.MissingDetails = append(r.MissingDetails, other.MissingDetails...)
}

// RunVerification は指定されたタスク（または全タスク）の保存済み記事を検証し、
// repair が true の場合は欠損画像を再ダウンロードします。
// force が false の場合、24時間以内に問題なしと判定された記事はスキップします。
func RunVerification(ctx context.Context, cfg *config.Config, ex *explorer.Explorer, targetTaskName string, repair bool, force bool) (VerificationResult, error) {
	log.Println("検証モードを開始します...")
	if repair {
		log.Println("修復モード: 有効 (欠損ファイルを再ダウンロードします)")
	} else {
		log.Println("修復モード: 無効 (検証のみ行います)")
	}

	total := VerificationResult{}
	for _, task := range cfg.Tasks {
		if targetTaskName != "" && task.TaskName != targetTaskName {
			continue
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		log.Printf("タスク '%s' の検証を開始します...", task.TaskName)
		result, err := verifyTask(ctx, task, ex, repair, force)
		total.merge(result)
		if err != nil {
			log.Printf("ERROR: タスク '%s' の検証中にエラーが発生しました: %v", task.TaskName, err)
		}
	}

	log.Println("========================================")
	log.Println("検証完了")
	log.Printf("チェック済み記事数: %d", total.TotalChecked)
	log.Printf("欠損あり: %d", total.TotalMissing)
	if repair {
		log.Printf("修復成功: %d", total.TotalRepaired)
		log.Printf("修復失敗: %d", total.TotalFailed)
	}
	for _, detail := range total.MissingDetails {
		log.Println(detail)
	}
	log.Println("========================================")

	return total, nil
}

func verifyTask(ctx context.Context, task config.Task, ex *explorer.Explorer, repair bool, force bool) (VerificationResult, error) {
	result := VerificationResult{}

	if task.SaveRootDirectory == "" {
		return result, fmt.Errorf("タスク '%s' の save_root_directory が設定されていません", task.TaskName)
	}

	historyPath := filepath.Join(task.SaveRootDirectory, verificationHistoryFileName)
	history, err := loadVerificationHistory(historyPath)
	if err != nil {
		log.Printf("WARNING: 検証履歴の読み込みに失敗しました: %v", err)
		history = make(map[string]time.Time)
	}

	articleDirs, err := findArticleDirs(task.SaveRootDirectory)
	if err != nil {
		return result, fmt.Errorf("タスクディレクトリ '%s' の走査に失敗しました: %w", task.SaveRootDirectory, err)
	}

	for _, dir := range articleDirs {
		if ctx.Err() != nil {
			break
		}

		snapshot, err := LoadArticleSnapshot(dir)
		if err != nil || snapshot == nil {
			log.Printf("WARNING: スナップショットを読み込めません (%s): %v", dir, err)
			continue
		}
		result.TotalChecked++

		// forceフラグがない場合、最近検証済みの記事はスキップ
		if !force {
			if lastVerified, ok := history[snapshot.Locator]; ok && time.Since(lastVerified) < 24*time.Hour {
				continue
			}
		}

		length := snapshot.Length
		if meta, err := loadArticleMeta(dir); err == nil && meta.Length > 0 {
			length = meta.Length
		}

		imgDir := filepath.Join(dir, imageDirName)
		missing := findMissingImages(imgDir, length, snapshot.Locator, repair, &result)
		if len(missing) == 0 {
			history[snapshot.Locator] = time.Now()
			continue
		}

		result.TotalMissing++
		result.MissingDetails = append(result.MissingDetails, fmt.Sprintf("[%s] 欠損画像: %d/%d", snapshot.Locator, len(missing), length))
		if !repair {
			continue
		}

		saved, err := repairArticle(ctx, ex, task, snapshot.Locator, imgDir, missing)
		snapshot.ImagesSaved = countSavedImages(imgDir, length)
		snapshot.LastChecked = time.Now()
		if serr := SaveArticleSnapshot(dir, snapshot); serr != nil {
			log.Printf("WARNING: スナップショットの保存に失敗しました: %v", serr)
		}
		if err != nil || saved < len(missing) {
			log.Printf("ERROR: 記事 %s の修復に失敗しました (%d/%d): %v", snapshot.Locator, saved, len(missing), err)
			result.TotalFailed++
			continue
		}
		result.TotalRepaired++
		history[snapshot.Locator] = time.Now()
	}

	if err := saveVerificationHistory(historyPath, history); err != nil {
		log.Printf("ERROR: 検証履歴の保存に失敗しました: %v", err)
	}
	return result, ctx.Err()
}

// findArticleDirs は、root 以下でスナップショットを持つディレクトリを列挙します。
func findArticleDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == snapshotFileName {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	return dirs, err
}

// findMissingImages は、保存されていない画像のインデックスを返します。
// サイズ0の破損ファイルは欠損として扱い、repair が有効なら削除します。
func findMissingImages(imgDir string, length int, locator string, repair bool, result *VerificationResult) []int {
	var missing []int
	for i := range length {
		if _, ok := findSavedImage(imgDir, i); ok {
			continue
		}
		matches, _ := filepath.Glob(filepath.Join(imgDir, fmt.Sprintf("%04d.*", i+1)))
		for _, m := range matches {
			log.Printf("WARNING: 記事 %s のファイル %s がサイズ0です", locator, m)
			result.MissingDetails = append(result.MissingDetails, fmt.Sprintf("[%s] 破損ファイル: %s", locator, filepath.Base(m)))
			if repair {
				os.Remove(m)
			}
		}
		missing = append(missing, i)
	}
	return missing
}

// repairArticle は、記事を再取得して欠損画像をダウンロードし直します。
func repairArticle(ctx context.Context, ex *explorer.Explorer, task config.Task, locator string, imgDir string, missing []int) (int, error) {
	if ex == nil {
		return 0, fmt.Errorf("修復にはクライアントが必要です")
	}
	article, err := ex.Article(ctx, locator)
	if err != nil {
		return 0, err
	}
	if err := article.LoadImageList(ctx); err != nil {
		return 0, fmt.Errorf("画像一覧の読み込みに失敗しました: %w", err)
	}
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		return 0, err
	}

	saved := 0
	var lastErr error
	for _, i := range missing {
		if _, err := downloadImage(ctx, article, i, imgDir, task.RetryCount, task.RetryWaitMillis, log.Default()); err != nil {
			log.Printf("WARNING: 画像 %d の再ダウンロードに失敗しました: %v", i+1, err)
			lastErr = err
			continue
		}
		saved++
	}
	return saved, lastErr
}

func loadArticleMeta(dir string) (model.ArticleMeta, error) {
	var meta model.ArticleMeta
	data, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

func loadVerificationHistory(path string) (map[string]time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]time.Time), nil
		}
		return nil, err
	}
	var history map[string]time.Time
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = make(map[string]time.Time)
	}
	return history, nil
}

func saveVerificationHistory(path string, history map[string]time.Time) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
