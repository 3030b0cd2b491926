package adapter

import (
	"fmt"
	"sort"
)

// adapterRegistry は、サイト名とSiteAdapter実装のマッピングを保持します。
var adapterRegistry = map[string]func() SiteAdapter{
	"ehentai":  NewEHentaiAdapter,
	"exhentai": NewEHentaiAdapter,
}

// GetAdapter は、指定されたサイト名に対応するSiteAdapterの新しいインスタンスを返します。
func GetAdapter(siteName string) (SiteAdapter, error) {
	factory, ok := adapterRegistry[siteName]
	if !ok {
		return nil, fmt.Errorf("サイト名 '%s' に対応するアダプタが見つかりません", siteName)
	}
	return factory(), nil
}

// Names は、登録済みのアダプタ名を返します。
func Names() []string {
	names := make([]string, 0, len(adapterRegistry))
	for name := range adapterRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
