package explorer

import (
	"context"

	"GoGalleryExplorer/internal/model"
)

// Draft は、一覧表示用のメタデータだけを持つ軽量な記事ビューです。
// 既に分かっているメタデータを再取得せずに、サムネイルや記事本体を読み込めます。
type Draft struct {
	explorer *Explorer
	meta     model.DraftMeta
}

// Meta は、一覧表示用のメタデータを返します。
func (d *Draft) Meta() model.DraftMeta {
	return d.meta
}

// LoadThumb は、サムネイル画像を取得します。
func (d *Draft) LoadThumb(ctx context.Context) ([]byte, error) {
	return d.explorer.FetchThumbnail(ctx, d.meta.Thumb)
}

// Load は、記事ページを取得して Article を返します。
func (d *Draft) Load(ctx context.Context) (*Article, error) {
	return d.explorer.Article(ctx, d.meta.Locator)
}
