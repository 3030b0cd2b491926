package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/explorer"
	"GoGalleryExplorer/internal/index"
	"GoGalleryExplorer/internal/model"
	"GoGalleryExplorer/internal/network"
)

const (
	metadataFileName = "metadata.json"
	commentsFileName = "comments.json"
	resumeFileName   = ".resume.json"
	imageDirName     = "img"
)

// "/g/{gid}/{token}/"
var galleryPathPattern = regexp.MustCompile(`/g/(\d+)/([0-9a-f]+)`)

// ErrSkipped は、フィルタやスナップショットにより記事がアーカイブ対象外になったことを示します。
var ErrSkipped = errors.New("article skipped")

// ArchiveSingleArticle は、単一の記事を完全にアーカイブします。
// 記事ページの取得、二次フィルタ、画像一覧とコメントの読み込み、画像のダウンロード
// (リトライとレジューム対応)、スナップショットとインデックスの更新を行います。
func ArchiveSingleArticle(ctx context.Context, ex *explorer.Explorer, task config.Task, locator string, idx *index.Index, stats *SessionStats, logger *log.Logger) error {
	logger.Printf("Processing article: %s", locator)

	// STEP 1: 記事ページの取得と二次フィルタリング（ディレクトリ作成前に実行）
	article, err := ex.Article(ctx, locator)
	if err != nil {
		return err
	}
	meta := article.Meta()

	if passes, reason := applyArticleFilters(meta, task); !passes {
		logger.Printf("Skipped by secondary filter: %s. Reason: %s", locator, reason)
		stats.AddSkipped()
		return ErrSkipped
	}

	// STEP 2: 保存先の決定とスナップショット確認
	savePath := generateDirectoryPath(task.SaveRootDirectory, task.DirectoryFormat, meta)
	snapshot, err := LoadArticleSnapshot(savePath)
	if err != nil {
		logger.Printf("WARNING: スナップショットの読み込みに失敗しました: %v", err)
	}
	if !NeedsUpdate(snapshot, meta.Length) {
		logger.Printf("Skipped: article %s has no updates (length=%d)", locator, meta.Length)
		stats.AddSkipped()
		return ErrSkipped
	}

	// STEP 3: 画像一覧とコメントの読み込み
	if err := article.LoadImageList(ctx); err != nil {
		return fmt.Errorf("画像一覧の読み込みに失敗しました (locator=%s, loaded=%d/%d): %w", locator, article.ImageCount(), meta.Length, err)
	}

	imgSavePath := filepath.Join(savePath, imageDirName)
	if err := os.MkdirAll(imgSavePath, 0755); err != nil {
		return fmt.Errorf("imgディレクトリの作成に失敗しました (path=%s): %w", imgSavePath, err)
	}
	if err := writeJSON(filepath.Join(savePath, metadataFileName), meta); err != nil {
		return fmt.Errorf("metadata.jsonの保存に失敗しました: %w", err)
	}

	if task.SaveComments {
		if err := article.LoadAllComments(ctx); err != nil {
			logger.Printf("WARNING: 全コメントの取得に失敗したため、既定のコメントのみ保存します: %v", err)
		}
		if err := writeJSON(filepath.Join(savePath, commentsFileName), article.Comments()); err != nil {
			logger.Printf("WARNING: comments.jsonの保存に失敗しました: %v", err)
		}
	}

	// STEP 4: レジューム処理
	resumeFilePath := filepath.Join(savePath, resumeFileName)
	pending, err := handleResumeLogic(task.EnableResumeSupport, resumeFilePath, article.ImageCount(), imgSavePath)
	if err != nil {
		return fmt.Errorf("レジューム処理に失敗しました (locator=%s, resume_file=%s): %w", locator, resumeFilePath, err)
	}

	// STEP 5: 画像のダウンロード
	if len(pending) > 0 {
		logger.Printf("Starting image download. Files to download: %d", len(pending))
		downloadImages(ctx, article, task, pending, imgSavePath, resumeFilePath, stats, logger)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// STEP 6: スナップショットの更新
	saved := countSavedImages(imgSavePath, meta.Length)
	newSnapshot := &ArticleSnapshot{
		Locator:      locator,
		Title:        meta.Title,
		LastChecked:  time.Now(),
		Length:       meta.Length,
		ImagesSaved:  saved,
		CommentCount: len(article.Comments()),
	}
	if err := SaveArticleSnapshot(savePath, newSnapshot); err != nil {
		logger.Printf("WARNING: スナップショットの保存に失敗しました: %v", err)
	}

	// STEP 7: 完了処理
	if task.EnableMetadataIndex && idx != nil {
		record := index.Record{
			Locator:     locator,
			Title:       meta.Title,
			Kind:        meta.Kind.String(),
			Length:      meta.Length,
			ImagesSaved: saved,
			Tags:        meta.Tags.Strings(),
			SavePath:    savePath,
		}
		if err := idx.Upsert(ctx, record); err != nil {
			logger.Printf("WARNING: Failed to append to metadata index: %v", err)
		}
	}

	if saved < meta.Length {
		return fmt.Errorf("一部の画像を保存できませんでした (locator=%s, saved=%d/%d)", locator, saved, meta.Length)
	}
	if task.EnableResumeSupport {
		os.Remove(resumeFilePath)
	}

	stats.AddArticle()
	logger.Printf("Successfully archived article %s (images=%d)", locator, saved)
	return nil
}

// applyArticleFilters は、記事のメタデータに対してタスクのフィルタ条件を適用します。
func applyArticleFilters(meta model.ArticleMeta, task config.Task) (bool, string) {
	if task.MinimumPages > 0 && meta.Length < task.MinimumPages {
		return false, fmt.Sprintf("length %d is less than minimum %d", meta.Length, task.MinimumPages)
	}
	for _, tag := range task.ExcludeTags {
		if meta.Tags.HasString(tag) {
			return false, fmt.Sprintf("contains excluded tag '%s'", tag)
		}
	}
	return true, ""
}

// downloadImages は、pending に含まれるインデックスの画像を順にダウンロードします。
// 個々の失敗はログに記録して次の画像に進みます。
func downloadImages(ctx context.Context, article *explorer.Article, task config.Task, pending []int,
	imgSavePath string, resumeFilePath string, stats *SessionStats, logger *log.Logger) {
	interval := time.Duration(task.RequestIntervalMillis) * time.Millisecond

	for n, i := range pending {
		if ctx.Err() != nil {
			return
		}

		logger.Printf("Downloading (%d/%d): image %d", n+1, len(pending), i+1)
		written, err := downloadImage(ctx, article, i, imgSavePath, task.RetryCount, task.RetryWaitMillis, logger)
		if err != nil {
			logger.Printf("WARNING: 画像のダウンロードに失敗しました: image %d - %v. スキップします。", i+1, err)
		} else {
			logger.Printf("SUCCESS: ダウンロード完了: %s", filepath.Base(written.path))
			stats.AddFile(written.size)
			if task.EnableResumeSupport {
				if err := updateResumeFile(resumeFilePath, i); err != nil {
					logger.Printf("WARNING: レジュームファイルの更新に失敗しました: %v", err)
				}
			}
		}

		if interval > 0 && n < len(pending)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}
}

type writtenFile struct {
	path string
	size int64
}

// downloadImage は、単一の画像をダウンロードし、保存します。
// リトライロジックを含みます。404などの恒久的なエラーの場合はリトライせず即座に失敗します。
func downloadImage(ctx context.Context, article *explorer.Article, i int, imgSavePath string, retryCount, retryWaitMillis int, logger *log.Logger) (writtenFile, error) {
	var lastErr error
	for attempt := 0; attempt <= retryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return writtenFile{}, err // コンテキストがキャンセルされたら即座に終了
		}

		data, err := article.LoadImage(ctx, i)
		if err != nil {
			lastErr = err
			if !network.IsRetryable(err) {
				var httpErr *network.HTTPError
				if errors.As(err, &httpErr) {
					return writtenFile{}, fmt.Errorf("リトライ不可能なHTTPエラー (status=%d): %w", httpErr.StatusCode, err)
				}
				return writtenFile{}, err
			}
			logger.Printf("ダウンロード失敗（リトライ可能、試行 %d/%d）: image %d, error=%v", attempt+1, retryCount+1, i+1, err)
			if attempt < retryCount {
				select {
				case <-ctx.Done():
					return writtenFile{}, ctx.Err()
				case <-time.After(time.Duration(retryWaitMillis) * time.Millisecond):
				}
			}
			continue
		}

		path := filepath.Join(imgSavePath, ImageFileName(i, data))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return writtenFile{}, fmt.Errorf("ファイル書き込み失敗 (path=%s, size=%d bytes): %w", path, len(data), err)
		}
		return writtenFile{path: path, size: int64(len(data))}, nil
	}
	return writtenFile{}, fmt.Errorf("ダウンロードがリトライ上限に達しました (image=%d, retry_count=%d): %w", i+1, retryCount, lastErr)
}

// ImageFileName は、画像のインデックスと内容から "0001.jpg" 形式のファイル名を生成します。
func ImageFileName(i int, data []byte) string {
	ext := ".bin"
	switch http.DetectContentType(data) {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	}
	return fmt.Sprintf("%04d%s", i+1, ext)
}

// findSavedImage は、インデックス i の保存済み画像 (サイズ0より大きいもの) のパスを返します。
func findSavedImage(imgSavePath string, i int) (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(imgSavePath, fmt.Sprintf("%04d.*", i+1)))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Size() > 0 {
			return m, true
		}
	}
	return "", false
}

func countSavedImages(imgSavePath string, length int) int {
	saved := 0
	for i := range length {
		if _, ok := findSavedImage(imgSavePath, i); ok {
			saved++
		}
	}
	return saved
}

// handleResumeLogic は、レジューム処理のロジックを管理します。
// .resume.jsonを読み込み、ディスク上のファイル存在もチェックして、
// 本当にダウンロードが必要な画像のインデックスのみを返します。
func handleResumeLogic(enabled bool, resumePath string, imageCount int, imgSavePath string) ([]int, error) {
	candidates := make([]int, 0, imageCount)
	if enabled {
		var fromResume []int
		if data, err := os.ReadFile(resumePath); err == nil {
			if json.Unmarshal(data, &fromResume) == nil {
				log.Printf("INFO: レジューム処理: .resume.jsonから %d 件の未完了ファイルを読み込みました。", len(fromResume))
			}
		}
		for _, i := range fromResume {
			if i >= 0 && i < imageCount {
				candidates = append(candidates, i)
			}
		}
	}
	if len(candidates) == 0 {
		for i := range imageCount {
			candidates = append(candidates, i)
		}
	}

	// ディスク上のファイル存在チェック
	pending := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if _, ok := findSavedImage(imgSavePath, i); !ok {
			pending = append(pending, i)
		}
	}

	if !enabled {
		return pending, nil
	}
	if len(pending) == 0 {
		os.Remove(resumePath)
		return pending, nil
	}
	if err := writeJSON(resumePath, pending); err != nil {
		return nil, fmt.Errorf("レジュームファイルの書き込みに失敗しました: %w", err)
	}
	return pending, nil
}

func updateResumeFile(resumePath string, downloaded int) error {
	data, err := os.ReadFile(resumePath)
	if err != nil {
		return err
	}

	var pending []int
	if err := json.Unmarshal(data, &pending); err != nil {
		return err
	}

	remaining := make([]int, 0, len(pending))
	for _, i := range pending {
		if i != downloaded {
			remaining = append(remaining, i)
		}
	}
	return writeJSON(resumePath, remaining)
}

// generateDirectoryPath は、directory_format のプレースホルダを記事の情報で置き換えて保存先を決定します。
// 使用可能なプレースホルダ: {gid} {token} {title} {original_title} {kind} {uploader} {language} {year} {month} {day}
func generateDirectoryPath(rootDir, format string, meta model.ArticleMeta) string {
	if format == "" {
		format = "{gid}"
	}

	gid, token := "unknown", "unknown"
	if m := galleryPathPattern.FindStringSubmatch(meta.Locator); m != nil {
		gid, token = m[1], m[2]
	}

	year, month, day := "0000", "00", "00"
	if posted, err := time.Parse("2006-01-02 15:04", meta.Posted); err == nil {
		year = fmt.Sprintf("%04d", posted.Year())
		month = fmt.Sprintf("%02d", posted.Month())
		day = fmt.Sprintf("%02d", posted.Day())
	}

	title := meta.Title
	if title == "" {
		title = "Untitled"
	}
	originalTitle := meta.OriginalTitle
	if originalTitle == "" {
		originalTitle = title
	}

	r := strings.NewReplacer(
		"{gid}", gid,
		"{token}", token,
		"{title}", SanitizeFilename(title),
		"{original_title}", SanitizeFilename(originalTitle),
		"{kind}", SanitizeFilename(meta.Kind.String()),
		"{uploader}", SanitizeFilename(orDefault(meta.Uploader, "unknown")),
		"{language}", SanitizeFilename(orDefault(meta.Language, "unknown")),
		"{year}", year,
		"{month}", month,
		"{day}", day,
	)

	result := r.Replace(format)
	if strings.TrimSpace(result) == "" {
		result = gid
	}
	return filepath.Join(rootDir, result)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SanitizeFilename は、ファイル名に使えない文字を全角文字に置き換えます。
func SanitizeFilename(name string) string {
	r := strings.NewReplacer(
		"/", "／",
		"\\", "＼",
		":", "：",
		"*", "＊",
		"?", "？",
		"\"", "”",
		"<", "＜",
		">", "＞",
		"|", "｜",
	)
	return strings.TrimSpace(r.Replace(name))
}
