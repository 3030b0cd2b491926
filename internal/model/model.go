// Package model は、ギャラリーサイトから取得した検索結果・記事・コメントなどの
// データ構造を定義します。
package model

// ResultSummary は、検索結果ページから抽出された記事一件分の概要です。
// Search によってのみ生成され、生成後に変更されることはありません。
type ResultSummary struct {
	Locator  string // 記事ページのURL (またはベースURLからの相対パス)
	Title    string
	Thumb    string // サムネイル画像のURL
	Tags     TagMap
	Kind     ArticleKind
	Posted   string // 一覧に表示されている場合のみ
	Uploader string // 一覧に表示されている場合のみ
	Length   int    // ページ数。一覧に表示されていない場合は0
}

// DraftMeta は、Draft が一覧表示のために保持するメタデータです。
type DraftMeta struct {
	Locator  string
	Title    string
	Thumb    string
	Tags     TagMap
	Kind     ArticleKind
	Posted   string
	Uploader string
	Length   int
}

// DraftMeta は、概要からDraft用のメタデータを作成します。
func (s ResultSummary) DraftMeta() DraftMeta {
	return DraftMeta{
		Locator:  s.Locator,
		Title:    s.Title,
		Thumb:    s.Thumb,
		Tags:     s.Tags,
		Kind:     s.Kind,
		Posted:   s.Posted,
		Uploader: s.Uploader,
		Length:   s.Length,
	}
}

// ArticleMeta は、記事ページから抽出された基本メタデータです。
// 初回取得後は変更されません。
type ArticleMeta struct {
	Locator       string      `json:"locator"`
	Title         string      `json:"title"`
	OriginalTitle string      `json:"original_title"`
	Kind          ArticleKind `json:"kind"`
	Thumb         string      `json:"thumb"`
	Uploader      string      `json:"uploader"`
	Posted        string      `json:"posted"`
	Parent        *string     `json:"parent,omitempty"`
	Visible       bool        `json:"visible"` // "Visible: No" の記事はfalse
	Language      string      `json:"language"`
	Translated    bool        `json:"translated"`
	FileSize      string      `json:"file_size"`
	Length        int         `json:"length"` // 画像ページ数
	Favorited     int         `json:"favorited"`
	RatingCount   int         `json:"rating_count"`
	Rating        float64     `json:"rating"`
	Tags          TagMap      `json:"tags"`
}
