package explorer

import (
	"context"
	"fmt"

	"GoGalleryExplorer/internal/adapter"
	"GoGalleryExplorer/internal/model"

	"golang.org/x/sync/errgroup"
)

// Article は、記事のメタデータと、追加取得によって補完される画像ページ一覧・コメント一覧です。
//
// 画像ページ一覧は追記のみで、長さが Meta().Length に達すると読み込み完了です。
// コメント一覧は LoadAllComments によって丸ごと置き換えられます。
// Article は並行した変更に対して安全ではありません。
type Article struct {
	explorer *Explorer
	meta     model.ArticleMeta
	images   []string
	comments []model.Comment
}

// Meta は、記事のメタデータを返します。
func (a *Article) Meta() model.ArticleMeta {
	return a.meta
}

// Images は、読み込み済みの画像閲覧ページのロケータをページ順に返します。
func (a *Article) Images() []string {
	out := make([]string, len(a.images))
	copy(out, a.images)
	return out
}

// ImageCount は、読み込み済みの画像ページ数を返します。
func (a *Article) ImageCount() int {
	return len(a.images)
}

// Comments は、読み込み済みのコメントをサイト上の表示順で返します。
func (a *Article) Comments() []model.Comment {
	out := make([]model.Comment, len(a.comments))
	copy(out, a.comments)
	return out
}

// Complete は、すべての画像ページが読み込み済みかどうかを返します。
func (a *Article) Complete() bool {
	return len(a.images) >= a.meta.Length
}

// LoadImageList は、未取得の記事サブページ (?p=1, ?p=2, ...) を順に取得し、
// 画像ページ一覧に追記します。すべて読み込み済みの場合は通信を行いません。
//
// 途中で失敗した場合、それまでに取得できたページは保持したままエラーを返します。
// 取得開始ページは常に現在の件数から求めるため、再度呼び出しても重複は発生しません。
func (a *Article) LoadImageList(ctx context.Context) error {
	first, last := a.pendingPages()
	for page := first; page < last; page++ {
		links, err := a.fetchImagePage(ctx, page)
		if err != nil {
			return err
		}
		a.appendImages(links)
	}
	return nil
}

// LoadImageListConcurrently は、LoadImageList を最大 workers 並列で行います。
// 失敗した場合は、先頭から連続して成功したページのみを追記します。
// workers が1以下の場合は LoadImageList と同じです。
func (a *Article) LoadImageListConcurrently(ctx context.Context, workers int) error {
	if workers <= 1 {
		return a.LoadImageList(ctx)
	}

	first, last := a.pendingPages()
	if first >= last {
		return nil
	}

	pages := make([][]string, last-first)
	done := make([]bool, last-first)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range pages {
		g.Go(func() error {
			links, err := a.fetchImagePage(gctx, first+i)
			if err != nil {
				return err
			}
			pages[i] = links
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	for i := range pages {
		if !done[i] {
			break
		}
		a.appendImages(pages[i])
	}
	return err
}

// pendingPages は、未取得のサブページ範囲 [first, last) を返します。
func (a *Article) pendingPages() (int, int) {
	if a.Complete() {
		return 0, 0
	}
	return PagesNeeded(len(a.images), ImagesPerPage), PagesNeeded(a.meta.Length, ImagesPerPage)
}

func (a *Article) fetchImagePage(ctx context.Context, page int) ([]string, error) {
	e := a.explorer
	base, err := adapter.ResolveLocator(e.baseURL, a.meta.Locator)
	if err != nil {
		return nil, err
	}

	doc, err := e.fetchDocument(ctx, e.site.BuildArticlePageURL(base, page))
	if err != nil {
		return nil, fmt.Errorf("記事 '%s' の %d ページ目の取得に失敗しました: %w", a.meta.Locator, page, err)
	}
	links, err := e.site.ImagePageList(doc)
	if err != nil {
		return nil, fmt.Errorf("記事 '%s' の %d ページ目の解析に失敗しました: %w", a.meta.Locator, page, err)
	}
	return links, nil
}

// appendImages は、画像ページ数が Meta().Length を超えないように追記します。
func (a *Article) appendImages(links []string) {
	if room := a.meta.Length - len(a.images); len(links) > room {
		links = links[:max(room, 0)]
	}
	a.images = append(a.images, links...)
}

// LoadImage は、index 番目の画像閲覧ページを取得し、そこから画像本体を取得して返します。
// 結果はキャッシュされません。index が範囲外の場合は通信を行わずに *IndexError を返します。
func (a *Article) LoadImage(ctx context.Context, index int) ([]byte, error) {
	if index < 0 || index >= len(a.images) {
		return nil, &IndexError{Index: index, Len: len(a.images)}
	}

	e := a.explorer
	viewer, err := adapter.ResolveLocator(e.baseURL, a.images[index])
	if err != nil {
		return nil, err
	}
	doc, err := e.fetchDocument(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("画像閲覧ページ '%s' の取得に失敗しました: %w", viewer, err)
	}
	src, err := e.site.DirectImageURL(doc)
	if err != nil {
		return nil, fmt.Errorf("画像閲覧ページ '%s' の解析に失敗しました: %w", viewer, err)
	}
	src, err = adapter.ResolveLocator(e.baseURL, src)
	if err != nil {
		return nil, err
	}
	return e.transport.Fetch(ctx, src)
}

// LoadAllComments は、全コメント表示ページ (?hc=1) を取得し、コメント一覧を置き換えます。
// 失敗した場合、既存のコメント一覧は変更されません。
func (a *Article) LoadAllComments(ctx context.Context) error {
	e := a.explorer
	base, err := adapter.ResolveLocator(e.baseURL, a.meta.Locator)
	if err != nil {
		return err
	}

	doc, err := e.fetchDocument(ctx, e.site.BuildAllCommentsURL(base))
	if err != nil {
		return fmt.Errorf("記事 '%s' のコメント取得に失敗しました: %w", a.meta.Locator, err)
	}
	comments, err := e.site.CommentList(doc)
	if err != nil {
		return fmt.Errorf("記事 '%s' のコメント解析に失敗しました: %w", a.meta.Locator, err)
	}
	a.comments = comments
	return nil
}

// LoadThumb は、記事のサムネイル画像を取得します。
func (a *Article) LoadThumb(ctx context.Context) ([]byte, error) {
	return a.explorer.FetchThumbnail(ctx, a.meta.Thumb)
}
