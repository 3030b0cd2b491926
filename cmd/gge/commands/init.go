package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"GoGalleryExplorer/internal/config"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		output    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "設定ファイルのテンプレートを書き出します。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if path == "" {
				path = resolvedConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("設定ファイルは既に存在します (path=%s)。上書きするには --force を指定してください", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("ディレクトリの作成に失敗しました: %w", err)
			}
			if err := os.WriteFile(path, config.Template, 0644); err != nil {
				return fmt.Errorf("設定ファイルの書き込みに失敗しました: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "設定ファイルを作成しました: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "出力先のパス")
	cmd.Flags().BoolVar(&overwrite, "force", false, "既存のファイルを上書きします")
	return cmd
}
