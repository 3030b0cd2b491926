package adapter

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/model"
	"GoGalleryExplorer/internal/network"

	"github.com/PuerkitoBio/goquery"
)

var (
	// "Found about 1,234 results." / "Showing 30 results"
	resultCountPattern = regexp.MustCompile(`([\d,]+)\s+results?`)
	// "41 pages" / "1 page"
	pageCountPattern = regexp.MustCompile(`(\d+)\s+pages?`)
	// 記事サムネイルの style="background:transparent url(https://...) 0 0 no-repeat"
	cssURLPattern = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)
	// "Average: 4.52"
	ratingPattern = regexp.MustCompile(`([\d.]+)`)
	// "name +5" / "Base +3"
	voterPattern = regexp.MustCompile(`^(.*?)\s*([+-]\d+)$`)
	// "and 12 more..."
	omittedPattern = regexp.MustCompile(`and (\d+) more`)
)

// EHentaiAdapter は、e-hentai 系ギャラリーサイト固有の解析ロジックを実装します。
type EHentaiAdapter struct{}

// NewEHentaiAdapter は、EHentaiAdapterの新しいインスタンスを返します。
func NewEHentaiAdapter() SiteAdapter {
	return &EHentaiAdapter{}
}

// Prepare は、設定されたCookieをサイトのドメインに設定します。
// 'nw' Cookie が未設定の場合は、閲覧確認ページを回避するため nw=1 を設定します。
func (a *EHentaiAdapter) Prepare(client *network.Client, site config.SiteSettings) error {
	cookies := make(map[string]string, len(site.Cookies)+1)
	for name, value := range site.Cookies {
		cookies[name] = value
	}
	if _, ok := cookies["nw"]; !ok {
		cookies["nw"] = "1"
	}

	for name, value := range cookies {
		cookie := &http.Cookie{Name: name, Value: value, Path: "/"}
		if err := client.SetCookie(site.BaseURL, cookie); err != nil {
			return fmt.Errorf("Cookie '%s' の設定に失敗しました: %w", name, err)
		}
	}
	log.Printf("INFO: %d 件のCookieを設定しました (%s)", len(cookies), site.BaseURL)
	return nil
}

func (a *EHentaiAdapter) BuildSearchQuery(keyword string, kinds ...model.ArticleKind) string {
	return BuildSearchQuery(keyword, kinds...)
}

func (a *EHentaiAdapter) BuildSearchURL(baseURL string, page int, query string) (string, error) {
	return BuildSearchURL(baseURL, page, query)
}

func (a *EHentaiAdapter) BuildArticlePageURL(locator string, page int) string {
	return BuildArticlePageURL(locator, page)
}

func (a *EHentaiAdapter) BuildAllCommentsURL(locator string) string {
	return BuildAllCommentsURL(locator)
}

// ParseDocument は、HTMLをgoquery.Documentに変換します。
func (a *EHentaiAdapter) ParseDocument(body []byte) (*goquery.Document, error) {
	return NewDocumentFromBytes(body)
}

// SearchResultCount は、検索結果ページから総ヒット数を抽出します。
func (a *EHentaiAdapter) SearchResultCount(doc *goquery.Document) (int, error) {
	text := strings.TrimSpace(doc.Find("p.ip, .searchtext p").First().Text())
	if text == "" {
		if strings.Contains(doc.Find("body").Text(), "No hits found") {
			return 0, nil
		}
		return 0, missing("search_result_count")
	}
	if strings.Contains(text, "No hits found") {
		return 0, nil
	}

	m := resultCountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, &ParseError{Field: "search_result_count", Err: fmt.Errorf("件数を含まないテキストです: %q", text)}
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, &ParseError{Field: "search_result_count", Err: err}
	}
	return n, nil
}

// ResultList は、検索結果ページから記事の概要一覧を抽出します。
// 結果が0件のページでは空のスライスを返します。
func (a *EHentaiAdapter) ResultList(doc *goquery.Document) ([]model.ResultSummary, error) {
	results := make([]model.ResultSummary, 0, 25)
	var parseErr error

	// 一覧表示(table)とサムネイル表示(div.gl1t)の両方に対応
	doc.Find(".itg tr, .itg .gl1t").EachWithBreak(func(i int, row *goquery.Selection) bool {
		titleSel := row.Find(".glink").First()
		if titleSel.Length() == 0 {
			return true // ヘッダー行や広告行
		}

		summary, err := parseResultRow(row, titleSel)
		if err != nil {
			parseErr = err
			return false
		}
		results = append(results, summary)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return results, nil
}

func parseResultRow(row, titleSel *goquery.Selection) (model.ResultSummary, error) {
	title := strings.TrimSpace(titleSel.Text())
	if title == "" {
		return model.ResultSummary{}, missing("result.title")
	}

	locator, ok := titleSel.Closest("a").Attr("href")
	if !ok {
		locator, ok = row.Find(`a[href*="/g/"]`).First().Attr("href")
	}
	if !ok || strings.TrimSpace(locator) == "" {
		return model.ResultSummary{}, missing("result.locator")
	}

	img := row.Find(".glthumb img, .gl1t img, img").First()
	thumb, ok := img.Attr("data-src")
	if !ok {
		thumb, _ = img.Attr("src")
	}

	tags := model.NewTagMap()
	row.Find(".gt, .gtl").Each(func(_ int, s *goquery.Selection) {
		if raw, ok := s.Attr("title"); ok {
			kind, tag := model.ParseTag(raw)
			tags.Add(kind, tag)
		}
	})

	summary := model.ResultSummary{
		Locator:  strings.TrimSpace(locator),
		Title:    title,
		Thumb:    strings.TrimSpace(thumb),
		Tags:     tags,
		Kind:     model.ParseArticleKind(row.Find(".cn, .cs").First().Text()),
		Posted:   strings.TrimSpace(row.Find(`[id^="posted_"]`).First().Text()),
		Uploader: strings.TrimSpace(row.Find(`a[href*="/uploader/"]`).First().Text()),
	}
	if m := pageCountPattern.FindStringSubmatch(row.Text()); m != nil {
		summary.Length, _ = strconv.Atoi(m[1])
	}
	return summary, nil
}

// ArticleMeta は、記事ページから基本メタデータを抽出します。
func (a *EHentaiAdapter) ArticleMeta(doc *goquery.Document, locator string) (model.ArticleMeta, error) {
	meta := model.ArticleMeta{Locator: locator, Visible: true, Tags: model.NewTagMap()}

	titleSel := doc.Find("#gn")
	if titleSel.Length() == 0 {
		return meta, missing("article.title")
	}
	meta.Title = strings.TrimSpace(titleSel.Text())
	meta.OriginalTitle = strings.TrimSpace(doc.Find("#gj").Text())
	meta.Kind = model.ParseArticleKind(doc.Find("#gdc").Text())

	thumbSel := doc.Find("#gd1 div").First()
	if style, ok := thumbSel.Attr("style"); ok {
		if m := cssURLPattern.FindStringSubmatch(style); m != nil {
			meta.Thumb = m[1]
		}
	}
	if meta.Thumb == "" {
		meta.Thumb, _ = doc.Find("#gd1 img").First().Attr("src")
	}

	meta.Uploader = strings.TrimSpace(doc.Find("#gdn a").First().Text())
	if meta.Uploader == "" {
		meta.Uploader = strings.TrimSpace(doc.Find("#gdn").Text())
	}

	lengthFound := false
	var detailErr error
	doc.Find("#gdd tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := strings.TrimSuffix(strings.TrimSpace(row.Find(".gdt1").Text()), ":")
		valueSel := row.Find(".gdt2")
		value := strings.TrimSpace(valueSel.Text())

		switch label {
		case "Posted":
			meta.Posted = value
		case "Parent":
			if href, ok := valueSel.Find("a").Attr("href"); ok {
				meta.Parent = &href
			} else if value != "" && value != "None" {
				meta.Parent = &value
			}
		case "Visible":
			meta.Visible = strings.HasPrefix(value, "Yes")
		case "Language":
			fields := strings.Fields(value)
			if len(fields) > 0 {
				meta.Language = fields[0]
			}
			for _, f := range fields[1:] {
				if f == "TR" {
					meta.Translated = true
				}
			}
		case "File Size":
			meta.FileSize = value
		case "Length":
			m := pageCountPattern.FindStringSubmatch(value)
			if m == nil {
				detailErr = &ParseError{Field: "article.length", Err: fmt.Errorf("ページ数を含まないテキストです: %q", value)}
				return false
			}
			meta.Length, _ = strconv.Atoi(m[1])
			lengthFound = true
		case "Favorited":
			meta.Favorited = parseFavorited(value)
		}
		return true
	})
	if detailErr != nil {
		return meta, detailErr
	}
	if !lengthFound {
		return meta, missing("article.length")
	}

	if n, err := strconv.Atoi(strings.TrimSpace(doc.Find("#rating_count").Text())); err == nil {
		meta.RatingCount = n
	}
	if m := ratingPattern.FindString(doc.Find("#rating_label").Text()); m != "" {
		meta.Rating, _ = strconv.ParseFloat(m, 64)
	}

	doc.Find("#taglist tr").Each(func(_ int, row *goquery.Selection) {
		kind := model.ParseTagKind(row.Find("td.tc").Text())
		row.Find("td div a").Each(func(_ int, s *goquery.Selection) {
			meta.Tags.Add(kind, s.Text())
		})
	})

	return meta, nil
}

// parseFavorited は "123 times" / "Once" / "Never" を回数に変換します。
func parseFavorited(value string) int {
	switch value {
	case "Once":
		return 1
	case "Never", "":
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(strings.Fields(value)[0], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// ImagePageList は、記事ページ(またはそのサブページ)から画像閲覧ページのURLを順番に抽出します。
func (a *EHentaiAdapter) ImagePageList(doc *goquery.Document) ([]string, error) {
	grid := doc.Find("#gdt")
	if grid.Length() == 0 {
		return nil, missing("image_page_list")
	}
	links := make([]string, 0, 40)
	grid.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href = strings.TrimSpace(href); href != "" {
			links = append(links, href)
		}
	})
	return links, nil
}

// CommentList は、記事ページからコメント一覧をサイト上の表示順で抽出します。
// コメント欄が存在しない場合は空のスライスを返します。
func (a *EHentaiAdapter) CommentList(doc *goquery.Document) ([]model.Comment, error) {
	comments := make([]model.Comment, 0)
	var parseErr error

	doc.Find("#cdiv .c1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		c, err := parseComment(s)
		if err != nil {
			parseErr = err
			return false
		}
		comments = append(comments, c)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return comments, nil
}

func parseComment(s *goquery.Selection) (model.Comment, error) {
	header := s.Find(".c3").First()
	if header.Length() == 0 {
		return model.Comment{}, missing("comment.header")
	}

	// "Posted on 01 January 2024, 12:34 UTC by:   name"
	headerText := strings.TrimSpace(header.Text())
	posted, after, _ := strings.Cut(strings.TrimPrefix(headerText, "Posted on "), " by:")
	writer := strings.TrimSpace(header.Find("a").First().Text())
	if writer == "" {
		writer = strings.TrimSpace(after)
	}

	body := s.Find(".c6").First()
	if body.Length() == 0 {
		return model.Comment{}, missing("comment.content")
	}
	body.Find("br").ReplaceWithHtml("\n")

	c := model.Comment{
		Posted:  strings.TrimSpace(posted),
		Writer:  writer,
		Content: strings.TrimSpace(body.Text()),
	}

	if edited := strings.TrimSpace(s.Find(".c8").Text()); edited != "" {
		edited = strings.TrimSuffix(strings.TrimPrefix(edited, "Last edited on "), ".")
		c.Edited = &edited
	}

	// スコア欄が無いのはアップローダーのコメント
	scoreSel := s.Find(".c5").First()
	if scoreSel.Length() == 0 {
		return c, nil
	}
	scoreText := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(scoreSel.Text()), "Score"))
	score, err := strconv.ParseInt(scoreText, 10, 64)
	if err != nil {
		return model.Comment{}, &ParseError{Field: "comment.score", Err: err}
	}
	c.Vote = &model.Vote{Score: score, Voters: parseVoters(s.Find(".c7").First())}
	if m := omittedPattern.FindStringSubmatch(s.Find(".c7").Text()); m != nil {
		c.Vote.Omitted, _ = strconv.Atoi(m[1])
	}
	return c, nil
}

// parseVoters は "Base +2, name +5, and 3 more..." 形式の投票者欄を分解します。
func parseVoters(sel *goquery.Selection) []model.Voter {
	entries := strings.Split(sel.Text(), ",")
	voters := make([]model.Voter, 0, len(entries))
	for _, entry := range entries {
		m := voterPattern.FindStringSubmatch(strings.TrimSpace(entry))
		if m == nil {
			continue // "and N more..." など
		}
		delta, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		voters = append(voters, model.Voter{Name: m[1], Delta: delta})
	}
	return voters
}

// DirectImageURL は、画像閲覧ページから画像本体のURLを抽出します。
func (a *EHentaiAdapter) DirectImageURL(doc *goquery.Document) (string, error) {
	src, ok := doc.Find("#img").First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return "", missing("direct_image_url")
	}
	return strings.TrimSpace(src), nil
}
