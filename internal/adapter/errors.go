package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrParse は、ドキュメントから必要な項目を抽出できなかったことを示します。
	ErrParse = errors.New("parse error")
	// ErrInvalidURI は、ロケータやクエリが不正なことを示します。
	ErrInvalidURI = errors.New("invalid uri")
)

// ParseError は、ドキュメントに期待した項目が存在しない場合のエラーです。
// サイトのレイアウト変更や不正なレスポンスを示すため、リトライでは回復しません。
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("'%s' の抽出に失敗しました", e.Field)
	}
	return fmt.Sprintf("'%s' の抽出に失敗しました: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func missing(field string) error {
	return &ParseError{Field: field, Err: errors.New("要素が見つかりません")}
}

// URIError は、URIの構築に失敗した場合のエラーです。
type URIError struct {
	Input string
	Err   error
}

func (e *URIError) Error() string {
	return fmt.Sprintf("不正なURI '%s': %v", e.Input, e.Err)
}

func (e *URIError) Unwrap() error { return e.Err }

func (e *URIError) Is(target error) bool { return target == ErrInvalidURI }
