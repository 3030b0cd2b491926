package core

import (
	"fmt"

	"GoGalleryExplorer/internal/adapter"
	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/explorer"
	"GoGalleryExplorer/internal/network"
)

// NewExplorer は、設定からネットワーククライアントとサイトアダプタを初期化し、Explorer を作成します。
func NewExplorer(cfg *config.Config, adapterName string) (*explorer.Explorer, error) {
	client, err := network.NewClient(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("ネットワーククライアントの初期化に失敗しました: %w", err)
	}
	return NewExplorerWithClient(client, cfg, adapterName)
}

// NewExplorerWithClient は、既存のクライアントを使って Explorer を作成します。
// 同じクライアントから作られた Explorer は Cookie とホストごとのレート制限を共有します。
func NewExplorerWithClient(client *network.Client, cfg *config.Config, adapterName string) (*explorer.Explorer, error) {
	if adapterName == "" {
		adapterName = "ehentai"
	}
	siteAdapter, err := adapter.GetAdapter(adapterName)
	if err != nil {
		return nil, fmt.Errorf("サイトアダプタの取得に失敗しました: %w", err)
	}
	if err := siteAdapter.Prepare(client, cfg.Site); err != nil {
		return nil, fmt.Errorf("サイト固有設定の適用に失敗しました: %w", err)
	}

	return explorer.New(client, siteAdapter, explorer.WithBaseURL(cfg.Site.BaseURL)), nil
}
