package model

import (
	"encoding/json"
	"strings"
)

// ArticleKind は、サイト上の記事カテゴリです。
type ArticleKind int

const (
	KindMisc ArticleKind = iota
	KindDoujinshi
	KindManga
	KindArtistCG
	KindGameCG
	KindWestern
	KindNonH
	KindImageSet
	KindCosplay
	KindAsianPorn
	KindPrivate
)

var kindLabels = map[ArticleKind]string{
	KindMisc:      "Misc",
	KindDoujinshi: "Doujinshi",
	KindManga:     "Manga",
	KindArtistCG:  "Artist CG",
	KindGameCG:    "Game CG",
	KindWestern:   "Western",
	KindNonH:      "Non-H",
	KindImageSet:  "Image Set",
	KindCosplay:   "Cosplay",
	KindAsianPorn: "Asian Porn",
	KindPrivate:   "Private",
}

// 検索フォームの f_cats で使われるビット値。Private は検索対象外。
var kindFilterBits = map[ArticleKind]int{
	KindMisc:      1,
	KindDoujinshi: 2,
	KindManga:     4,
	KindArtistCG:  8,
	KindGameCG:    16,
	KindImageSet:  32,
	KindCosplay:   64,
	KindAsianPorn: 128,
	KindNonH:      256,
	KindWestern:   512,
}

const allKindBits = 1023

// String は、サイト上の表示名を返します。
func (k ArticleKind) String() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return kindLabels[KindMisc]
}

// ParseArticleKind は、カテゴリ表示名 ("Artist CG", "artistcg" など) を解析します。
// 不明な値は KindMisc として扱います。
func ParseArticleKind(label string) ArticleKind {
	normalized := normalizeKindLabel(label)
	for kind, l := range kindLabels {
		if normalizeKindLabel(l) == normalized {
			return kind
		}
	}
	return KindMisc
}

func normalizeKindLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// CategoryFilter は、指定したカテゴリのみを含める f_cats の値を返します。
// サイトは「除外する」カテゴリのビット和を受け取ります。
// 検索フォームにないカテゴリ (Private) は無視し、有効なカテゴリが一つもなければ0 (フィルタなし) を返します。
func CategoryFilter(kinds ...ArticleKind) int {
	included := 0
	for _, k := range kinds {
		included |= kindFilterBits[k]
	}
	if included == 0 {
		return 0
	}
	return allKindBits &^ included
}

// MarshalJSON は、カテゴリを表示名として出力します。
func (k ArticleKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON は、表示名からカテゴリを復元します。
func (k *ArticleKind) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	*k = ParseArticleKind(label)
	return nil
}
