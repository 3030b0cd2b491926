package explorer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"GoGalleryExplorer/internal/adapter"
	"GoGalleryExplorer/internal/network"
)

const testBaseURL = "https://e-hentai.org"

// fakeTransport は、URIごとに登録された応答を返し、呼び出しを記録します。
type fakeTransport struct {
	mu      sync.Mutex
	pages   map[string][]byte
	errs    map[string]error
	calls   []string
	block   chan struct{}
	started chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		pages: make(map[string][]byte),
		errs:  make(map[string]error),
	}
}

func (f *fakeTransport) Fetch(ctx context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, uri)
	body, ok := f.pages[uri]
	err := f.errs[uri]
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &network.TransportError{URL: uri, Err: ctx.Err()}
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &network.TransportError{URL: uri, Err: &network.HTTPError{StatusCode: http.StatusNotFound, URL: uri, Message: "Not Found"}}
	}
	return body, nil
}

func (f *fakeTransport) set(uri, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[uri] = []byte(body)
	delete(f.errs, uri)
}

func (f *fakeTransport) fail(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[uri] = &network.TransportError{URL: uri, Err: &network.HTTPError{StatusCode: http.StatusServiceUnavailable, URL: uri, Message: "Service Unavailable"}}
}

func (f *fakeTransport) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func newTestExplorer(t *fakeTransport) *Explorer {
	return New(t, adapter.NewEHentaiAdapter(), WithBaseURL(testBaseURL))
}

func searchURL(page int, keyword string) string {
	return fmt.Sprintf("%s/?page=%d&f_search=%s", testBaseURL, page, adapter.PercentEncode(keyword))
}

// searchHTML は、count 件ヒットした検索結果ページを生成します。
func searchHTML(count int, locators ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"ido\">")
	if count == 0 {
		b.WriteString(`<div class="searchtext"><p>No hits found</p></div>`)
	} else {
		fmt.Fprintf(&b, `<div class="searchtext"><p class="ip">Found about %d results.</p></div>`, count)
	}
	if len(locators) > 0 {
		b.WriteString(`<table class="itg gltc">`)
		for i, loc := range locators {
			fmt.Fprintf(&b, `<tr><td><div class="cn">Manga</div></td>`+
				`<td><div class="glthumb"><img src="https://ehgt.org/t/%d.jpg"></div></td>`+
				`<td><a href="%s"><div class="glink">Gallery %d</div><div><div class="gt" title="artist:a%d"></div></div></a></td>`+
				`<td><div>%d pages</div></td></tr>`, i, loc, i, i, i+1)
		}
		b.WriteString("</table>")
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func searchLocators(page, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s/g/%d%02d/token/", testBaseURL, page, i)
	}
	return out
}

// imageLinks は、記事の page ページ目に載る画像閲覧ページのロケータを生成します。
func imageLinks(page, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s/s/hash/1-%d", testBaseURL, page*ImagesPerPage+i+1)
	}
	return out
}

// galleryHTML は、記事ページ(またはサブページ)を生成します。
func galleryHTML(length int, links []string, comments ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="gd1"><div style="background:transparent url(https://ehgt.org/cover.jpg) 0 0 no-repeat"></div></div>`)
	b.WriteString(`<h1 id="gn">Test Gallery</h1><h1 id="gj">テスト</h1><div id="gdc"><div class="cs">Doujinshi</div></div>`)
	fmt.Fprintf(&b, `<div id="gdd"><table><tr><td class="gdt1">Length:</td><td class="gdt2">%d pages</td></tr></table></div>`, length)
	b.WriteString(`<div id="gdt">`)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s"><div></div></a>`, l)
	}
	b.WriteString(`</div><div id="cdiv">`)
	for i, c := range comments {
		fmt.Fprintf(&b, `<div class="c1"><div class="c3">Posted on 0%d March 2024, 10:00 by: <a>user%d</a></div>`+
			`<div class="c5">Score <span>+%d</span></div><div class="c6">%s</div></div>`, i+1, i, i, c)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func viewerHTML(src string) string {
	return fmt.Sprintf(`<html><body><div id="i3"><img id="img" src="%s"></div></body></html>`, src)
}
