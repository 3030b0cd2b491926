package core

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/explorer"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

type testGallery struct {
	gid    string
	token  string
	title  string
	length int
	tags   []string // "namespace:tag"
}

// testSite は、検索・記事・閲覧ページ・画像を返すギャラリーサイトのスタブです。
type testSite struct {
	srv *httptest.Server

	mu        sync.Mutex
	galleries []testGallery
	failures  map[string]int // パス -> 失敗させる残り回数 (負数なら常に失敗)
	status    map[string]int // 失敗時のステータスコード
	hits      map[string]int
}

func newTestSite(t *testing.T, galleries ...testGallery) *testSite {
	t.Helper()
	s := &testSite{
		galleries: galleries,
		failures:  make(map[string]int),
		status:    make(map[string]int),
		hits:      make(map[string]int),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testSite) locator(g testGallery) string {
	return fmt.Sprintf("%s/g/%s/%s/", s.srv.URL, g.gid, g.token)
}

func imagePath(gid string, n int) string {
	return fmt.Sprintf("/img/%s/%d.png", gid, n)
}

// failPath は、path へのリクエストを times 回 status で失敗させます。times < 0 なら常に失敗します。
func (s *testSite) failPath(path string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = times
	s.status[path] = status
}

func (s *testSite) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *testSite) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	remaining, failing := s.failures[r.URL.Path]
	if failing && remaining != 0 {
		if remaining > 0 {
			s.failures[r.URL.Path] = remaining - 1
		}
		status := s.status[r.URL.Path]
		s.mu.Unlock()
		http.Error(w, http.StatusText(status), status)
		return
	}
	galleries := append([]testGallery(nil), s.galleries...)
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Query().Get("page") != "0" {
			io.WriteString(w, `<html><body><div class="searchtext"><p>No hits found</p></div></body></html>`)
			return
		}
		io.WriteString(w, s.searchHTML(galleries))
	case strings.HasPrefix(r.URL.Path, "/g/"):
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		for _, g := range galleries {
			if len(parts) >= 2 && parts[1] == g.gid {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				io.WriteString(w, s.galleryHTML(g))
				return
			}
		}
		http.NotFound(w, r)
	case strings.HasPrefix(r.URL.Path, "/s/"):
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		n, _ := strconv.Atoi(parts[2])
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body><img id="img" src="%s%s"></body></html>`, s.srv.URL, imagePath(parts[1], n))
	case strings.HasPrefix(r.URL.Path, "/img/"):
		w.Header().Set("Content-Type", "image/png")
		w.Write(append(append([]byte(nil), pngHeader...), []byte(r.URL.Path)...))
	default:
		http.NotFound(w, r)
	}
}

func (s *testSite) searchHTML(galleries []testGallery) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><div class="searchtext"><p class="ip">Found %d results.</p></div><table class="itg gltc">`, len(galleries))
	for _, g := range galleries {
		b.WriteString(`<tr><td><div class="cn">Doujinshi</div></td>`)
		fmt.Fprintf(&b, `<td><a href="%s"><div class="glink">%s</div><div>`, s.locator(g), g.title)
		for _, tag := range g.tags {
			fmt.Fprintf(&b, `<div class="gt" title="%s"></div>`, tag)
		}
		fmt.Fprintf(&b, `</div></a></td><td><div>%d pages</div></td></tr>`, g.length)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func (s *testSite) galleryHTML(g testGallery) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1 id="gn">%s</h1><div id="gdc"><div class="cs">Doujinshi</div></div>`, g.title)
	b.WriteString(`<div id="gdn"><a>uploader</a></div><div id="gdd"><table>`)
	b.WriteString(`<tr><td class="gdt1">Posted:</td><td class="gdt2">2024-03-01 10:15</td></tr>`)
	fmt.Fprintf(&b, `<tr><td class="gdt1">Length:</td><td class="gdt2">%d pages</td></tr></table></div>`, g.length)

	byKind := make(map[string][]string)
	for _, tag := range g.tags {
		ns, name, _ := strings.Cut(tag, ":")
		byKind[ns] = append(byKind[ns], name)
	}
	namespaces := make([]string, 0, len(byKind))
	for ns := range byKind {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	b.WriteString(`<div id="taglist"><table>`)
	for _, ns := range namespaces {
		fmt.Fprintf(&b, `<tr><td class="tc">%s:</td><td>`, ns)
		for _, name := range byKind[ns] {
			fmt.Fprintf(&b, `<div><a>%s</a></div>`, name)
		}
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</table></div><div id="gdt">`)
	for n := 1; n <= g.length; n++ {
		fmt.Fprintf(&b, `<a href="%s/s/%s/%d"><div></div></a>`, s.srv.URL, g.gid, n)
	}
	b.WriteString(`</div><div id="cdiv"><div class="c1"><div class="c3">Posted on 01 March 2024, 10:00 by: <a>user</a></div>`)
	b.WriteString(`<div class="c5">Score <span>+3</span></div><div class="c6">nice</div></div></div></body></html>`)
	return b.String()
}

func newTestExplorer(t *testing.T, site *testSite) *explorer.Explorer {
	t.Helper()
	cfg := &config.Config{Site: config.SiteSettings{BaseURL: site.srv.URL}}
	ex, err := NewExplorer(cfg, "ehentai")
	require.NoError(t, err)
	return ex
}

func newTestTask(t *testing.T) config.Task {
	t.Helper()
	return config.Task{
		TaskName:              "test",
		SaveRootDirectory:     t.TempDir(),
		DirectoryFormat:       "{gid}",
		MaxConcurrentArticles: 2,
		RetryCount:            2,
		RetryWaitMillis:       1,
		EnableResumeSupport:   true,
		SaveComments:          true,
		EnableMetadataIndex:   true,
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
