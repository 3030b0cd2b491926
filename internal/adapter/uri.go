package adapter

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"GoGalleryExplorer/internal/model"
)

const upperhex = "0123456789ABCDEF"

// PercentEncode は、非予約文字 [A-Za-z0-9-_.~] 以外のすべてのバイトを
// 大文字の %XX 形式にエンコードします。
// url.QueryEscape は空白を '+' にするため使用しません。
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}

// BuildSearchQuery は、検索キーワードとカテゴリから検索クエリ文字列を構築します。
func BuildSearchQuery(keyword string, kinds ...model.ArticleKind) string {
	query := "f_search=" + PercentEncode(keyword)
	if mask := model.CategoryFilter(kinds...); mask != 0 {
		query += "&f_cats=" + strconv.Itoa(mask)
	}
	return query
}

// BuildSearchURL は、検索結果ページのURLを構築します。
// 形式: <baseURL>/?page=<n>&<query>
func BuildSearchURL(baseURL string, page int, query string) (string, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return "", err
	}
	if page < 0 {
		return "", &URIError{Input: strconv.Itoa(page), Err: errors.New("ページ番号が負です")}
	}
	if query == "" {
		return fmt.Sprintf("%s/?page=%d", base, page), nil
	}
	return fmt.Sprintf("%s/?page=%d&%s", base, page, query), nil
}

// BuildArticlePageURL は、記事のサブページ(画像一覧のN ページ目)のURLを構築します。
// ページ0はロケータそのものです。
func BuildArticlePageURL(locator string, page int) string {
	if page <= 0 {
		return locator
	}
	return appendQuery(locator, "p="+strconv.Itoa(page))
}

// BuildAllCommentsURL は、全コメントを表示するページのURLを構築します。
func BuildAllCommentsURL(locator string) string {
	return appendQuery(locator, "hc=1")
}

func appendQuery(locator, param string) string {
	if strings.Contains(locator, "?") {
		return locator + "&" + param
	}
	return locator + "?" + param
}

// ResolveLocator は、ロケータを絶対URLに解決します。
// 絶対URLはそのまま、'/' で始まる相対ロケータは baseURL を基準に解決されます。
func ResolveLocator(baseURL, locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", &URIError{Input: locator, Err: errors.New("ロケータが空です")}
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", &URIError{Input: locator, Err: err}
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", &URIError{Input: locator, Err: fmt.Errorf("未対応のスキーム '%s' です", u.Scheme)}
		}
		if u.Host == "" {
			return "", &URIError{Input: locator, Err: errors.New("ホストがありません")}
		}
		return locator, nil
	}
	if strings.HasPrefix(locator, "//") {
		return "https:" + locator, nil
	}
	if !strings.HasPrefix(locator, "/") {
		return "", &URIError{Input: locator, Err: errors.New("相対ロケータは '/' で始まる必要があります")}
	}

	base, err := parseBaseURL(baseURL)
	if err != nil {
		return "", err
	}
	return base + locator, nil
}

// parseBaseURL は、baseURL を検証し、末尾の '/' を取り除いて返します。
func parseBaseURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", &URIError{Input: baseURL, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return "", &URIError{Input: baseURL, Err: errors.New("ベースURLは絶対URLである必要があります")}
	}
	return strings.TrimRight(baseURL, "/"), nil
}
