package explorer

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"GoGalleryExplorer/internal/model"

	"golang.org/x/sync/singleflight"
)

// Search は、検索結果をページ単位で遅延取得するシーケンスです。
//
// Next を呼ぶたびに一ページ分を取得して返します。同時に進行する取得は常に一つだけで、
// 取得中に呼ばれた Next はその結果を共有します。取得や解析に失敗した場合はページ位置が
// 進まないため、もう一度 Next を呼べば同じページを再取得できます。
//
// シーケンス自体は終端を持ちません。空のバッチ、または Len に達したことを
// 呼び出し側が判断して停止します (TakeWhileNonEmpty を参照)。
type Search struct {
	explorer *Explorer
	query    string

	mu      sync.Mutex
	page    int
	results int
	known   bool
	waiting int // Next で結果を待っている呼び出し元の数

	inflight singleflight.Group
}

func newSearch(e *Explorer, query string, startPage int) *Search {
	return &Search{explorer: e, query: query, page: startPage}
}

// Query は、検索クエリ文字列を返します。
func (s *Search) Query() string {
	return s.query
}

// Skip は、開始ページを n ページ進めます。通信は発生しません。
// 取得中のページがある場合、その結果でページ位置が更新されることはありません。
func (s *Search) Skip(n int) *Search {
	if n <= 0 {
		return s
	}
	s.mu.Lock()
	s.page += n
	s.mu.Unlock()
	return s
}

// Page は、次に取得するページ番号(0始まり)を返します。
func (s *Search) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Results は、サイトが報告した総ヒット数を返します。
// 一度も取得に成功していない場合は false を返します。
func (s *Search) Results() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results, s.known
}

// Len は、総ヒット数から求めた総ページ数を返します。ヒット数が0の場合は0ページです。
func (s *Search) Len() (int, bool) {
	n, ok := s.Results()
	if !ok {
		return 0, false
	}
	return PagesNeeded(n, ArticlesPerPage), true
}

// Next は、現在のページを取得して記事の概要一覧を返します。
// 結果が0件のページでは空のスライスを返します (nil ではありません)。
// 取得中に別のゴルーチンから呼ばれた場合は、新たな通信を行わずに同じ結果を受け取ります。
// その場合の通信には最初の呼び出し元の ctx が使われます。
func (s *Search) Next(ctx context.Context) ([]model.ResultSummary, error) {
	ch := s.inflight.DoChan("next", func() (any, error) {
		return s.fetch(ctx)
	})
	s.mu.Lock()
	s.waiting++
	s.mu.Unlock()

	r := <-ch

	s.mu.Lock()
	s.waiting--
	s.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Val.([]model.ResultSummary), nil
}

// waiters は、取得結果を待っている Next の数を返します。
func (s *Search) waiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

func (s *Search) fetch(ctx context.Context) ([]model.ResultSummary, error) {
	page := s.Page()
	e := s.explorer

	uri, err := e.site.BuildSearchURL(e.baseURL, page, s.query)
	if err != nil {
		return nil, err
	}
	doc, err := e.fetchDocument(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("検索結果 %d ページ目の取得に失敗しました: %w", page, err)
	}

	count, err := e.site.SearchResultCount(doc)
	if err != nil {
		return nil, fmt.Errorf("検索結果 %d ページ目の解析に失敗しました: %w", page, err)
	}
	list, err := e.site.ResultList(doc)
	if err != nil {
		return nil, fmt.Errorf("検索結果 %d ページ目の解析に失敗しました: %w", page, err)
	}
	if list == nil {
		list = []model.ResultSummary{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// ページごとにヒット数が変わる場合があるため、最後に取得した値で上書きする
	s.results = count
	s.known = true
	// 取得中に Skip された場合は位置を変更しない
	if s.page == page {
		s.page++
	}
	return list, nil
}

// Batches は、Next を繰り返し呼び出すイテレータを返します。
// エラーが発生しても終了しないため、呼び出し側でループを抜ける必要があります。
// ctx がキャンセルされた場合は ctx.Err() を返して終了します。
func (s *Search) Batches(ctx context.Context) iter.Seq2[[]model.ResultSummary, error] {
	return func(yield func([]model.ResultSummary, error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			batch, err := s.Next(ctx)
			if !yield(batch, err) {
				return
			}
		}
	}
}

// TakeWhileNonEmpty は、空のバッチが返されるか、総ページ数に達するまで検索結果を返します。
// エラーが発生した場合はそのエラーを返して終了します。
func TakeWhileNonEmpty(ctx context.Context, s *Search) iter.Seq2[[]model.ResultSummary, error] {
	return func(yield func([]model.ResultSummary, error) bool) {
		for batch, err := range s.Batches(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}
			if !yield(batch, nil) {
				return
			}
			if n, ok := s.Len(); ok && s.Page() >= n {
				return
			}
		}
	}
}
