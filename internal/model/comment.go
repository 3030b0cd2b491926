package model

// Voter は、コメントへの投票者一人分の記録です。
type Voter struct {
	Name  string `json:"name"`
	Delta int64  `json:"delta"`
}

// Vote は、コメントのスコアと投票者の内訳です。
type Vote struct {
	Score   int64   `json:"score"`
	Voters  []Voter `json:"voters"`
	Omitted int     `json:"omitted"` // "and N more..." で省略された投票者数
}

// Comment は、記事に付いたコメント一件です。
// アップローダーのコメントにはスコアが付かないため、その場合 Vote は nil です。
type Comment struct {
	Posted  string  `json:"posted"`
	Edited  *string `json:"edited,omitempty"`
	Vote    *Vote   `json:"vote,omitempty"`
	Writer  string  `json:"writer"`
	Content string  `json:"content"`
}

// IsUploaderComment は、アップローダーのコメントかどうかを返します。
func (c Comment) IsUploaderComment() bool {
	return c.Vote == nil
}

// Score は、コメントのスコアを返します。アップローダーのコメントでは false を返します。
func (c Comment) Score() (int64, bool) {
	if c.Vote == nil {
		return 0, false
	}
	return c.Vote.Score, true
}

// Voters は、表示されている投票者の一覧を返します。
func (c Comment) Voters() []Voter {
	if c.Vote == nil {
		return nil
	}
	return c.Vote.Voters
}

// OmittedVoters は、省略された投票者数を返します。
func (c Comment) OmittedVoters() int {
	if c.Vote == nil {
		return 0
	}
	return c.Vote.Omitted
}
