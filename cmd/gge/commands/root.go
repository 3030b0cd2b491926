// Package commands は、gge のサブコマンドを定義します。
package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"GoGalleryExplorer/internal/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "gge",
	Short:         "gge はギャラリーサイトの検索結果と記事を閲覧・アーカイブするCLIです。",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "設定ファイルのパス (既定: "+config.DefaultConfigPath()+")")
	rootCmd.AddCommand(newSearchCmd(), newShowCmd(), newArchiveCmd(), newVerifyCmd(), newListCmd(), newInitCmd())
}

// ExecuteContext は、ルートコマンドを実行します。エラー時は終了コード1で終了します。
func ExecuteContext(ctx context.Context) {
	defer closeLogFile()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		closeLogFile()
		os.Exit(1)
	}
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig は設定ファイルを読み込み、ログ出力を設定します。
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadAndResolve(resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	if err := setupLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigOrDefault は、設定ファイルがなければ既定値の設定を返します。
// search や show は設定ファイルなしでも使えます。
func loadConfigOrDefault() (*config.Config, error) {
	path := resolvedConfigPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && configPath == "" {
		return config.ParseAndResolveYAML(config.Template)
	}
	return loadConfig()
}
