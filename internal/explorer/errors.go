package explorer

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange は、範囲外の画像インデックスが指定されたことを示します。
var ErrIndexOutOfRange = errors.New("image index out of range")

// IndexError は、読み込み済みの画像ページ数を超えるインデックスが指定された場合のエラーです。
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("画像インデックス %d は範囲外です (読み込み済み: %d)", e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }
