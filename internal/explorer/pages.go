package explorer

const (
	// ArticlesPerPage は検索結果1ページあたりの記事数です。
	ArticlesPerPage = 25
	// ImagesPerPage は記事ページ1ページあたりの画像数です。
	ImagesPerPage = 40
)

// PagesNeeded は、n 件を size 件ずつ表示するのに必要なページ数を返します。
// n が0以下の場合は0です。
func PagesNeeded(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return 1 + (n-1)/size
}
