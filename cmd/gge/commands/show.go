package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"GoGalleryExplorer/internal/core"
	"GoGalleryExplorer/internal/explorer"
	"GoGalleryExplorer/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var (
		allComments bool
		asMarkdown  bool
		loadImages  bool
		downloadDir string
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "show <locator>",
		Short: "記事のメタデータとコメントを表示します。",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfigOrDefault()
			if err != nil {
				return err
			}
			ex, err := core.NewExplorer(cfg, "")
			if err != nil {
				return err
			}

			article, err := ex.Article(ctx, args[0])
			if err != nil {
				return err
			}
			if allComments {
				if err := article.LoadAllComments(ctx); err != nil {
					return err
				}
			}
			if loadImages || downloadDir != "" {
				if err := loadImageList(ctx, article, workers); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asMarkdown {
				if err := writeArticleMarkdown(out, article.Meta(), article.Comments(), article.Images()); err != nil {
					return err
				}
			} else {
				renderArticle(out, article.Meta(), article.Comments())
			}

			if downloadDir != "" {
				return downloadArticle(cmd, ex, article, downloadDir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allComments, "comments", false, "全コメントを取得します")
	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "Markdown形式で出力します")
	cmd.Flags().BoolVar(&loadImages, "images", false, "全画像ページの一覧を読み込みます")
	cmd.Flags().StringVarP(&downloadDir, "download", "d", "", "画像を保存するディレクトリ")
	cmd.Flags().IntVar(&workers, "workers", 1, "画像一覧ページを並行して取得する数 (1は逐次取得)")
	return cmd
}

// loadImageList は、画像一覧を読み込みます。workers が2以上の場合のみ並行に取得します。
func loadImageList(ctx context.Context, article *explorer.Article, workers int) error {
	if workers > 1 {
		return article.LoadImageListConcurrently(ctx, workers)
	}
	return article.LoadImageList(ctx)
}

// downloadArticle は、記事の全画像を dir に保存します。
func downloadArticle(cmd *cobra.Command, ex *explorer.Explorer, article *explorer.Article, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("保存先ディレクトリの作成に失敗しました (path=%s): %w", dir, err)
	}
	return ex.SaveImages(cmd.Context(), article, func(i int, data []byte) error {
		path := filepath.Join(dir, core.ImageFileName(i, data))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("ファイル書き込み失敗 (path=%s): %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "保存しました (%d/%d): %s\n", i+1, article.ImageCount(), path)
		return nil
	})
}

// renderArticle は、記事のメタデータとコメントを表形式で出力します。
func renderArticle(w io.Writer, meta model.ArticleMeta, comments []model.Comment) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(meta.Title)
	for _, row := range metaRows(meta) {
		t.AppendRow(table.Row{row[0], row[1]})
	}
	for _, kind := range meta.Tags.Kinds() {
		t.AppendRow(table.Row{kind.String(), strings.Join(meta.Tags.Tags(kind), ", ")})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(comments) == 0 {
		return
	}
	c := table.NewWriter()
	c.SetOutputMirror(w)
	c.AppendHeader(table.Row{"Posted", "Writer", "Score", "Content"})
	for _, comment := range comments {
		c.AppendRow(table.Row{comment.Posted, comment.Writer, scoreText(comment), comment.Content})
	}
	c.SetStyle(table.StyleRounded)
	c.Render()
}

func metaRows(meta model.ArticleMeta) [][2]string {
	rows := [][2]string{
		{"Locator", meta.Locator},
		{"Original Title", meta.OriginalTitle},
		{"Kind", meta.Kind.String()},
		{"Uploader", meta.Uploader},
		{"Posted", meta.Posted},
		{"Language", meta.Language},
		{"File Size", meta.FileSize},
		{"Length", fmt.Sprintf("%d pages", meta.Length)},
		{"Favorited", fmt.Sprintf("%d", meta.Favorited)},
		{"Rating", fmt.Sprintf("%.2f (%d)", meta.Rating, meta.RatingCount)},
	}
	if meta.Parent != nil {
		rows = append(rows, [2]string{"Parent", *meta.Parent})
	}
	if meta.Translated {
		rows = append(rows, [2]string{"Translated", "yes"})
	}
	if !meta.Visible {
		rows = append(rows, [2]string{"Visible", "no"})
	}
	return rows
}

func scoreText(c model.Comment) string {
	score, ok := c.Score()
	if !ok {
		return "uploader"
	}
	return fmt.Sprintf("%+d", score)
}
