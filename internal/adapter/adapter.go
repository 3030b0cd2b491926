// Package adapter は、サイト固有の処理を抽象化するインターフェースと、
// その具体的な実装を提供します。URLの構築、HTMLの解析、
// 検索結果・記事・コメントなど型付きレコードの抽出を担当します。
package adapter

import (
	"bytes"

	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/model"
	"GoGalleryExplorer/internal/network"

	"github.com/PuerkitoBio/goquery"
)

// SiteAdapter は、サイト固有の処理を抽象化するインターフェースです。
// 抽出メソッドは正しい形式のドキュメントに対しては常に成功し、
// 必須項目が欠けている場合は *ParseError を返します。
type SiteAdapter interface {
	// Prepare は、HTTPリクエストの前にサイト固有の準備（Cookie設定など）を行います。
	Prepare(client *network.Client, site config.SiteSettings) error

	BuildSearchQuery(keyword string, kinds ...model.ArticleKind) string
	BuildSearchURL(baseURL string, page int, query string) (string, error)
	BuildArticlePageURL(locator string, page int) string
	BuildAllCommentsURL(locator string) string

	ParseDocument(body []byte) (*goquery.Document, error)
	SearchResultCount(doc *goquery.Document) (int, error)
	ResultList(doc *goquery.Document) ([]model.ResultSummary, error)
	ArticleMeta(doc *goquery.Document, locator string) (model.ArticleMeta, error)
	ImagePageList(doc *goquery.Document) ([]string, error)
	CommentList(doc *goquery.Document) ([]model.Comment, error)
	DirectImageURL(doc *goquery.Document) (string, error)
}

// NewDocumentFromBytes は、[]byteからgoquery.Documentを生成するヘルパー関数です。
func NewDocumentFromBytes(htmlBody []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return nil, &ParseError{Field: "document", Err: err}
	}
	return doc, nil
}
