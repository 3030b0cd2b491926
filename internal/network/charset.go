package network

import (
	"fmt"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// decodeBody は、Content-Type の charset が UTF-8 以外の場合にボディを UTF-8 へ変換します。
// charset が無い、または不明な場合はそのまま返します。
func decodeBody(body []byte, contentType string) ([]byte, error) {
	if contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(cs)
	if err != nil {
		// 未知のcharsetはバイナリ(画像など)の可能性もあるため変換しない
		return body, nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("%sからのデコードに失敗しました: %w", cs, err)
	}
	return decoded, nil
}
