package commands

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"GoGalleryExplorer/internal/config"
)

// ログファイル管理用
var logFile *os.File

// setupLogger はログ出力先を設定します。
// config.EnableLogFile が true の場合、標準出力とファイルの両方に出力します。
func setupLogger(cfg *config.Config) error {
	closeLogFile()
	if !cfg.EnableLogFile {
		log.SetOutput(os.Stdout)
		return nil
	}

	path := cfg.LogFilePath
	if path == "" {
		// デフォルトは日付形式
		path = fmt.Sprintf("gge_%s.log", time.Now().Format("2006-01-02"))
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("ログファイルを開けませんでした (path=%s): %w", path, err)
	}
	logFile = f
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	log.Printf("ログ出力をファイル '%s' に開始しました", path)
	return nil
}

func closeLogFile() {
	if logFile != nil {
		log.SetOutput(os.Stdout)
		logFile.Close()
		logFile = nil
	}
}

// newTaskLogger は、タスク名を接頭辞に持つロガーを作成します。出力先は標準ロガーと同じです。
func newTaskLogger(name string) *log.Logger {
	return log.New(log.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags|log.Ltime)
}
