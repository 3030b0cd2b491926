// Package explorer は、ギャラリーサイトの検索・記事取得を行うクライアントです。
//
// Explorer は一つの Transport を保持し、そこから生成される Search / Article / Draft は
// すべて同じ Transport を共有します。ページの取得はすべて逐次的に行われ、
// 複数ページの並行取得は LoadImageListConcurrently で明示的に選択した場合に限られます。
// このパッケージはリトライを行いません。
package explorer

import (
	"context"
	"fmt"

	"GoGalleryExplorer/internal/adapter"
	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/model"

	"github.com/PuerkitoBio/goquery"
)

// Transport は、URIを指定してバイト列を取得する通信層です。
// 複数の Search / Article から同時に呼び出されるため、並行利用に対して安全である必要があります。
// *network.Client がこれを実装します。
type Transport interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Explorer は、検索と記事取得の入口となるクライアントです。
type Explorer struct {
	transport Transport
	site      adapter.SiteAdapter
	baseURL   string
}

// Option は Explorer の設定を変更します。
type Option func(*Explorer)

// WithBaseURL は、相対ロケータの解決と検索に使うベースURLを設定します。
func WithBaseURL(baseURL string) Option {
	return func(e *Explorer) {
		if baseURL != "" {
			e.baseURL = baseURL
		}
	}
}

// New は、Transport とサイトアダプタから Explorer を生成します。
func New(transport Transport, site adapter.SiteAdapter, opts ...Option) *Explorer {
	e := &Explorer{
		transport: transport,
		site:      site,
		baseURL:   config.DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search は、キーワード検索の結果を0ページ目から順に返す Search を生成します。
// この時点では通信は発生しません。
func (e *Explorer) Search(keyword string) *Search {
	return newSearch(e, e.site.BuildSearchQuery(keyword), 0)
}

// SearchWithFilter は、指定したカテゴリに絞り込んだ検索を生成します。
func (e *Explorer) SearchWithFilter(keyword string, kinds ...model.ArticleKind) *Search {
	return newSearch(e, e.site.BuildSearchQuery(keyword, kinds...), 0)
}

// Article は、ロケータが指す記事ページを一度だけ取得し、メタデータ、
// 最初のページの画像ページ一覧、既定のコメント一覧を持つ Article を返します。
func (e *Explorer) Article(ctx context.Context, locator string) (*Article, error) {
	uri, err := adapter.ResolveLocator(e.baseURL, locator)
	if err != nil {
		return nil, err
	}

	doc, err := e.fetchDocument(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("記事 '%s' の取得に失敗しました: %w", locator, err)
	}

	meta, err := e.site.ArticleMeta(doc, locator)
	if err != nil {
		return nil, fmt.Errorf("記事 '%s' の解析に失敗しました: %w", locator, err)
	}
	images, err := e.site.ImagePageList(doc)
	if err != nil {
		return nil, fmt.Errorf("記事 '%s' の解析に失敗しました: %w", locator, err)
	}
	comments, err := e.site.CommentList(doc)
	if err != nil {
		return nil, fmt.Errorf("記事 '%s' の解析に失敗しました: %w", locator, err)
	}

	a := &Article{explorer: e, meta: meta, comments: comments}
	a.appendImages(images)
	return a, nil
}

// ResolveDraft は、検索を経由せずにロケータから Draft を生成します。通信は発生しません。
func (e *Explorer) ResolveDraft(locator string) *Draft {
	return &Draft{explorer: e, meta: model.DraftMeta{Locator: locator}}
}

// Draft は、検索結果の概要から Draft を生成します。
func (e *Explorer) Draft(summary model.ResultSummary) *Draft {
	return &Draft{explorer: e, meta: summary.DraftMeta()}
}

// FetchThumbnail は、サムネイルなど既知の画像URLのバイト列をそのまま取得します。
func (e *Explorer) FetchThumbnail(ctx context.Context, uri string) ([]byte, error) {
	resolved, err := adapter.ResolveLocator(e.baseURL, uri)
	if err != nil {
		return nil, err
	}
	return e.transport.Fetch(ctx, resolved)
}

// SaveImages は、記事の読み込み済みの画像を先頭から順に一枚ずつ取得し、fn に渡します。
// fn がエラーを返した場合、または取得に失敗した場合はそこで中断します。
func (e *Explorer) SaveImages(ctx context.Context, a *Article, fn func(index int, data []byte) error) error {
	for i := range a.ImageCount() {
		data, err := a.LoadImage(ctx, i)
		if err != nil {
			return fmt.Errorf("画像 %d の取得に失敗しました: %w", i, err)
		}
		if err := fn(i, data); err != nil {
			return err
		}
	}
	return nil
}

// fetchDocument は、URIを取得してHTMLドキュメントとして解析します。
func (e *Explorer) fetchDocument(ctx context.Context, uri string) (*goquery.Document, error) {
	body, err := e.transport.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	return e.site.ParseDocument(body)
}
