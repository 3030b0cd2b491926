package network

import (
	"errors"
	"fmt"
)

// ErrTransport は、すべての通信エラーに一致する番兵エラーです。
// errors.Is(err, network.ErrTransport) で判定できます。
var ErrTransport = errors.New("transport error")

// TransportError は、ネットワーク・DNS・TLSの失敗や2xx以外の応答を表します。
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("通信に失敗しました (url=%s): %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is は、ErrTransport との比較で true を返します。
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// HTTPError は、HTTPリクエストで発生したエラーとステータスコードを保持します。
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsRetryable は、このエラーがリトライ可能かどうかを判定します。
// 4xxエラー（クライアントエラー）はリトライ不可、5xxエラー（サーバーエラー）はリトライ可能とします。
// 429 Too Many Requests は例外としてリトライ可能です。
func (e *HTTPError) IsRetryable() bool {
	if e.StatusCode == 429 {
		return true
	}
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return false
	}
	return true
}

// IsRetryable は、err がリトライ可能な通信エラーかどうかを判定します。
// HTTPError 以外の通信エラー（タイムアウトなど）はリトライ可能とみなします。
func IsRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	return errors.Is(err, ErrTransport)
}
