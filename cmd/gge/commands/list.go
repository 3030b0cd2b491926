package commands

import (
	"fmt"
	"io"

	"GoGalleryExplorer/internal/index"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "アーカイブインデックスに登録された記事を一覧表示します。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			idx, err := index.Open(cfg.IndexPath)
			if err != nil {
				return err
			}
			defer idx.Close()

			records, err := idx.List(cmd.Context())
			if err != nil {
				return err
			}
			renderRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func renderRecords(w io.Writer, records []index.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Archived", "Title", "Kind", "Images", "Path"})
	for _, r := range records {
		t.AppendRow(table.Row{r.ArchivedAt.Local().Format("2006-01-02 15:04"), r.Title, r.Kind, fmtImages(r), r.SavePath})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func fmtImages(r index.Record) string {
	return fmt.Sprintf("%d/%d", r.ImagesSaved, r.Length)
}
