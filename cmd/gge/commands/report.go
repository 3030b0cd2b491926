package commands

import (
	"io"
	"strings"

	"GoGalleryExplorer/internal/model"

	"github.com/nao1215/markdown"
)

// writeArticleMarkdown は、記事の情報をMarkdownのレポートとして出力します。
func writeArticleMarkdown(w io.Writer, meta model.ArticleMeta, comments []model.Comment, images []string) error {
	md := markdown.NewMarkdown(w)

	md.H1(meta.Title)
	if meta.OriginalTitle != "" {
		md.PlainText(meta.OriginalTitle)
	}
	md.PlainText("")

	rows := make([][]string, 0, 12)
	for _, row := range metaRows(meta) {
		rows = append(rows, []string{row[0], row[1]})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if meta.Tags.Len() > 0 {
		md.H2("Tags")
		md.PlainText("")
		tags := make([]string, 0, len(meta.Tags.Kinds()))
		for _, kind := range meta.Tags.Kinds() {
			tags = append(tags, "**"+kind.String()+"**: "+strings.Join(meta.Tags.Tags(kind), ", "))
		}
		md.BulletList(tags...)
		md.PlainText("")
	}

	if len(images) > 0 {
		md.H2("Images")
		md.PlainText("")
		md.PlainTextf("%d / %d pages loaded", len(images), meta.Length)
		md.PlainText("")
		md.BulletList(images...)
		md.PlainText("")
	}

	if len(comments) > 0 {
		md.H2("Comments")
		md.PlainText("")
		for _, c := range comments {
			header := "**" + c.Writer + "** (" + c.Posted + ", " + scoreText(c) + ")"
			if c.Edited != nil {
				header += " edited " + *c.Edited
			}
			md.PlainText(header)
			md.PlainText("")
			for _, line := range strings.Split(c.Content, "\n") {
				md.PlainText("> " + line)
			}
			md.PlainText("")
		}
	}

	return md.Build()
}
