package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// TagKind は、タグの名前空間 (artist, group, language など) です。
type TagKind int

const (
	TagLanguage TagKind = iota
	TagParody
	TagCharacter
	TagGroup
	TagArtist
	TagCosplayer
	TagMale
	TagFemale
	TagMixed
	TagOther
	TagReclass
	TagTemp
)

var tagKindNames = []string{
	TagLanguage:  "language",
	TagParody:    "parody",
	TagCharacter: "character",
	TagGroup:     "group",
	TagArtist:    "artist",
	TagCosplayer: "cosplayer",
	TagMale:      "male",
	TagFemale:    "female",
	TagMixed:     "mixed",
	TagOther:     "other",
	TagReclass:   "reclass",
	TagTemp:      "temp",
}

// 旧レイアウトや短縮表記の別名
var tagKindAliases = map[string]TagKind{
	"misc": TagOther,
	"lang": TagLanguage,
	"l":    TagLanguage,
	"p":    TagParody,
	"c":    TagCharacter,
	"char": TagCharacter,
	"g":    TagGroup,
	"a":    TagArtist,
	"cos":  TagCosplayer,
	"m":    TagMale,
	"f":    TagFemale,
	"x":    TagMixed,
	"o":    TagOther,
	"r":    TagReclass,
}

// String は、名前空間の文字列を返します。
func (k TagKind) String() string {
	if int(k) >= 0 && int(k) < len(tagKindNames) {
		return tagKindNames[k]
	}
	return tagKindNames[TagTemp]
}

// ParseTagKind は、名前空間文字列を解析します。
// 末尾のコロン ("artist:") は無視します。不明な名前空間は TagTemp になります。
func ParseTagKind(namespace string) TagKind {
	ns := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(namespace), ":"))
	for i, name := range tagKindNames {
		if name == ns {
			return TagKind(i)
		}
	}
	if kind, ok := tagKindAliases[ns]; ok {
		return kind
	}
	return TagTemp
}

// ParseTag は "artist:hota." のような文字列を名前空間とタグ名に分解します。
// 名前空間がない場合は TagOther として扱います。
func ParseTag(s string) (TagKind, string) {
	s = strings.TrimSpace(s)
	ns, name, found := strings.Cut(s, ":")
	if !found {
		return TagOther, s
	}
	return ParseTagKind(ns), strings.TrimSpace(name)
}

// TagMap は、名前空間ごとのタグ集合です。同じ名前空間内でタグは重複しません。
// ゼロ値はそのまま使用できます。
type TagMap struct {
	tags map[TagKind]map[string]struct{}
}

// NewTagMap は、空のTagMapを返します。
func NewTagMap() TagMap {
	return TagMap{tags: make(map[TagKind]map[string]struct{})}
}

// Add は、タグを追加します。空のタグ名は無視します。
func (m *TagMap) Add(kind TagKind, tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	if m.tags == nil {
		m.tags = make(map[TagKind]map[string]struct{})
	}
	set, ok := m.tags[kind]
	if !ok {
		set = make(map[string]struct{})
		m.tags[kind] = set
	}
	set[tag] = struct{}{}
}

// Has は、タグが含まれているかを返します。
func (m TagMap) Has(kind TagKind, tag string) bool {
	_, ok := m.tags[kind][tag]
	return ok
}

// HasString は、"artist:hota." 形式の文字列でタグの有無を判定します。
func (m TagMap) HasString(s string) bool {
	kind, tag := ParseTag(s)
	return m.Has(kind, tag)
}

// Tags は、指定した名前空間のタグをソート済みで返します。
func (m TagMap) Tags(kind TagKind) []string {
	set := m.tags[kind]
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Kinds は、タグが存在する名前空間を定義順で返します。
func (m TagMap) Kinds() []TagKind {
	kinds := make([]TagKind, 0, len(m.tags))
	for i := range tagKindNames {
		if len(m.tags[TagKind(i)]) > 0 {
			kinds = append(kinds, TagKind(i))
		}
	}
	return kinds
}

// Len は、全タグ数を返します。
func (m TagMap) Len() int {
	n := 0
	for _, set := range m.tags {
		n += len(set)
	}
	return n
}

// Strings は、全タグを "namespace:tag" 形式で返します。
func (m TagMap) Strings() []string {
	var out []string
	for _, kind := range m.Kinds() {
		for _, tag := range m.Tags(kind) {
			out = append(out, kind.String()+":"+tag)
		}
	}
	return out
}

// MarshalJSON は、{"artist": ["a", "b"], ...} 形式で出力します。
func (m TagMap) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(m.tags))
	for _, kind := range m.Kinds() {
		out[kind.String()] = m.Tags(kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON は、MarshalJSON の出力を読み込みます。
func (m *TagMap) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = NewTagMap()
	for ns, tags := range raw {
		kind := ParseTagKind(ns)
		for _, tag := range tags {
			m.Add(kind, tag)
		}
	}
	return nil
}
