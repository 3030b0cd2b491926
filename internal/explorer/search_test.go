package explorer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"GoGalleryExplorer/internal/adapter"
	"GoGalleryExplorer/internal/model"
	"GoGalleryExplorer/internal/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagesNeeded(t *testing.T) {
	for _, size := range []int{ArticlesPerPage, ImagesPerPage} {
		assert.Equal(t, 0, PagesNeeded(0, size), "0件は0ページであるべきです")
		assert.Equal(t, 0, PagesNeeded(-1, size))
		for n := 1; n <= 500; n++ {
			want := int(math.Ceil(float64(n) / float64(size)))
			require.Equal(t, want, PagesNeeded(n, size), "n=%d size=%d", n, size)
		}
	}
}

func TestSearch_IsLazy(t *testing.T) {
	transport := newFakeTransport()
	ex := newTestExplorer(transport)

	s := ex.Search("language:korean")

	assert.Empty(t, transport.Calls(), "生成時に通信してはいけません")
	_, ok := s.Results()
	assert.False(t, ok)
	_, ok = s.Len()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Page())
	assert.Equal(t, "f_search=language%3Akorean", s.Query())
}

func TestSearch_SkipThenNext(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(1, "language:korean"), searchHTML(30, searchLocators(1, 5)...))
	ex := newTestExplorer(transport)

	s := ex.Search("language:korean").Skip(1)
	assert.Empty(t, transport.Calls(), "Skipで通信してはいけません")

	batch, err := s.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{searchURL(1, "language:korean")}, transport.Calls(), "ページ1のみを取得するべきです")
	assert.Len(t, batch, 5)
	assert.Equal(t, "Gallery 0", batch[0].Title)
	assert.Equal(t, model.KindManga, batch[0].Kind)

	results, ok := s.Results()
	require.True(t, ok)
	assert.Equal(t, 30, results)
	pages, ok := s.Len()
	require.True(t, ok)
	assert.Equal(t, 2, pages)
	assert.Equal(t, 2, s.Page())
}

func TestSearch_SkipAccumulates(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(5, "x"), searchHTML(200, searchLocators(5, 1)...))
	ex := newTestExplorer(transport)

	s := ex.Search("x").Skip(2).Skip(3).Skip(0)
	_, err := s.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{searchURL(5, "x")}, transport.Calls())
}

func TestSearch_FailureKeepsPosition(t *testing.T) {
	transport := newFakeTransport()
	url := searchURL(0, "x")
	transport.fail(url)
	ex := newTestExplorer(transport)
	s := ex.Search("x")

	_, err := s.Next(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrTransport))
	assert.Equal(t, 0, s.Page(), "失敗時にページ位置が進んではいけません")
	_, ok := s.Results()
	assert.False(t, ok)

	// 同じページを再取得できる
	transport.set(url, searchHTML(3, searchLocators(0, 3)...))
	batch, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 3)
	assert.Equal(t, []string{url, url}, transport.Calls())
	assert.Equal(t, 1, s.Page())
}

func TestSearch_ParseFailureKeepsPosition(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(0, "x"), "<html><body><p>maintenance</p></body></html>")
	s := newTestExplorer(transport).Search("x")

	_, err := s.Next(context.Background())

	assert.ErrorIs(t, err, adapter.ErrParse)
	assert.Equal(t, 0, s.Page())
}

func TestSearch_EmptyPage(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(0, "nothing"), searchHTML(0))
	s := newTestExplorer(transport).Search("nothing")

	batch, err := s.Next(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, batch, "空のページでもnilではなく空のスライスを返すべきです")
	assert.Empty(t, batch)
	pages, ok := s.Len()
	require.True(t, ok)
	assert.Equal(t, 0, pages)
	assert.Equal(t, 1, s.Page())
}

func TestSearch_ResultCountLastWriterWins(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(0, "x"), searchHTML(30, searchLocators(0, 25)...))
	transport.set(searchURL(1, "x"), searchHTML(31, searchLocators(1, 6)...))
	s := newTestExplorer(transport).Search("x")

	_, err := s.Next(context.Background())
	require.NoError(t, err)
	n, _ := s.Results()
	assert.Equal(t, 30, n)

	_, err = s.Next(context.Background())
	require.NoError(t, err)
	n, _ = s.Results()
	assert.Equal(t, 31, n)
}

func TestSearch_SingleFlight(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(0, "x"), searchHTML(30, searchLocators(0, 25)...))
	transport.block = make(chan struct{})
	transport.started = make(chan struct{}, 1)
	s := newTestExplorer(transport).Search("x")

	const callers = 5
	var wg sync.WaitGroup
	batches := make([][]model.ResultSummary, callers)
	errs := make([]error, callers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		batches[0], errs[0] = s.Next(context.Background())
	}()
	<-transport.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batches[i], errs[i] = s.Next(context.Background())
		}()
	}
	// 全員が取得中の結果を待つまで通信を止めておく
	require.Eventually(t, func() bool { return s.waiters() == callers }, 5*time.Second, time.Millisecond)
	close(transport.block)
	wg.Wait()

	assert.Len(t, transport.Calls(), 1, "取得中のNextは同じ通信を共有するべきです")
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Len(t, batches[i], 25)
	}
	assert.Equal(t, 1, s.Page(), "共有された取得でページは一度だけ進むべきです")
}

func TestSearch_CancelledFetchKeepsPosition(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(0, "x"), searchHTML(30, searchLocators(0, 25)...))
	transport.block = make(chan struct{})
	s := newTestExplorer(transport).Search("x")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Next(ctx)

	assert.ErrorIs(t, err, network.ErrTransport)
	assert.Equal(t, 0, s.Page())
}

func TestTakeWhileNonEmpty_StopsAtPageCount(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(0, "language:korean"), searchHTML(30, searchLocators(0, 25)...))
	transport.set(searchURL(1, "language:korean"), searchHTML(30, searchLocators(1, 5)...))
	s := newTestExplorer(transport).Search("language:korean")

	var total int
	for batch, err := range TakeWhileNonEmpty(context.Background(), s) {
		require.NoError(t, err)
		total += len(batch)
	}

	assert.Equal(t, 30, total)
	assert.Len(t, transport.Calls(), 2, "総ページ数に達したら取得を止めるべきです")
}

func TestTakeWhileNonEmpty_StopsAtEmptyBatch(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(0, "x"), searchHTML(60, searchLocators(0, 25)...))
	transport.set(searchURL(1, "x"), searchHTML(60))
	s := newTestExplorer(transport).Search("x")

	var batches int
	for _, err := range TakeWhileNonEmpty(context.Background(), s) {
		require.NoError(t, err)
		batches++
	}

	assert.Equal(t, 1, batches)
	assert.Len(t, transport.Calls(), 2)
}

func TestTakeWhileNonEmpty_StopsOnError(t *testing.T) {
	transport := newFakeTransport()
	transport.fail(searchURL(0, "x"))
	s := newTestExplorer(transport).Search("x")

	var gotErr error
	for _, err := range TakeWhileNonEmpty(context.Background(), s) {
		gotErr = err
	}

	assert.ErrorIs(t, gotErr, network.ErrTransport)
	assert.Len(t, transport.Calls(), 1)
}

func TestBatches_ContextCancelled(t *testing.T) {
	transport := newFakeTransport()
	transport.set(searchURL(0, "x"), searchHTML(30, searchLocators(0, 25)...))
	s := newTestExplorer(transport).Search("x")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var errs []error
	for _, err := range s.Batches(ctx) {
		errs = append(errs, err)
		cancel()
	}

	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], context.Canceled)
}

func TestSearchWithFilter(t *testing.T) {
	transport := newFakeTransport()
	url := testBaseURL + "/?page=0&f_search=x&f_cats=1021"
	transport.set(url, searchHTML(1, searchLocators(0, 1)...))
	s := newTestExplorer(transport).SearchWithFilter("x", model.KindDoujinshi)

	_, err := s.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{url}, transport.Calls())
}
