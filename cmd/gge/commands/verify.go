package commands

import (
	"fmt"

	"GoGalleryExplorer/internal/core"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var (
		taskName string
		repair   bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "アーカイブ済みの記事を検証し、必要なら欠損画像を修復します。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ex, err := core.NewExplorer(cfg, "")
			if err != nil {
				return err
			}

			result, err := core.RunVerification(cmd.Context(), cfg, ex, taskName, repair, force)
			if err != nil {
				return fmt.Errorf("検証中にエラーが発生しました: %w", err)
			}
			if result.TotalMissing > 0 && (!repair || result.TotalFailed > 0) {
				return fmt.Errorf("欠損のある記事が %d 件あります", result.TotalMissing-result.TotalRepaired)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&taskName, "task", "t", "", "検証するタスク名 (既定: 全タスク)")
	cmd.Flags().BoolVar(&repair, "repair", false, "欠損画像を再ダウンロードします")
	cmd.Flags().BoolVar(&force, "force", false, "最近検証済みの記事も強制的にチェックします")
	return cmd
}
