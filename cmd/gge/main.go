// gge は、ギャラリーサイトの検索・閲覧・アーカイブを行うコマンドラインツールです。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"GoGalleryExplorer/cmd/gge/commands"
)

func main() {
	log.SetOutput(os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	commands.ExecuteContext(ctx)
}
