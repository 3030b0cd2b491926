package commands

import (
	"fmt"
	"io"
	"strconv"

	"GoGalleryExplorer/internal/core"
	"GoGalleryExplorer/internal/explorer"
	"GoGalleryExplorer/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		startPage  int
		pages      int
		categories []string
	)

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "検索結果を一覧表示します。",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault()
			if err != nil {
				return err
			}
			ex, err := core.NewExplorer(cfg, "")
			if err != nil {
				return err
			}

			keyword := ""
			if len(args) > 0 {
				keyword = args[0]
			}
			kinds := make([]model.ArticleKind, 0, len(categories))
			for _, c := range categories {
				kinds = append(kinds, model.ParseArticleKind(c))
			}

			search := ex.SearchWithFilter(keyword, kinds...).Skip(startPage)
			var results []model.ResultSummary
			fetched := 0
			for batch, err := range explorer.TakeWhileNonEmpty(cmd.Context(), search) {
				if err != nil {
					return fmt.Errorf("検索に失敗しました (page=%d): %w", search.Page(), err)
				}
				results = append(results, batch...)
				fetched++
				if pages > 0 && fetched >= pages {
					break
				}
			}

			renderResults(cmd.OutOrStdout(), results, startPage*explorer.ArticlesPerPage)
			if n, ok := search.Results(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "約 %d 件中 %d 件を表示 (次のページ: %d)\n", n, len(results), search.Page())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&startPage, "page", 0, "開始ページ (0始まり)")
	cmd.Flags().IntVar(&pages, "pages", 1, "取得するページ数 (0は全ページ)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "カテゴリで絞り込みます (例: doujinshi,manga)")
	return cmd
}

// renderResults は、検索結果を表形式で出力します。offset は先頭行の通し番号です。
func renderResults(w io.Writer, results []model.ResultSummary, offset int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Title", "Kind", "Pages", "Uploader", "Locator"})
	for i, r := range results {
		length := "-"
		if r.Length > 0 {
			length = strconv.Itoa(r.Length)
		}
		t.AppendRow(table.Row{offset + i + 1, r.Title, r.Kind.String(), length, r.Uploader, r.Locator})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
