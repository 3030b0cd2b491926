// Package config は、アプリケーションの設定ファイル(config.yaml / config.json)の構造定義と、
// その読み込み、解決（テンプレートのマージなど）に関する機能を提供します。
package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// DefaultBaseURL は、サイト設定が省略された場合に使用される接続先です。
const DefaultBaseURL = "https://e-hentai.org"

// appDirName は xdg ディレクトリ配下で使うディレクトリ名です。
const appDirName = "gge"

// Config は設定ファイル全体を表すルート構造体です。
type Config struct {
	ConfigVersion            string          `json:"config_version" yaml:"config_version"`
	Network                  NetworkSettings `json:"network" yaml:"network"`
	Site                     SiteSettings    `json:"site" yaml:"site"`
	GlobalMaxConcurrentTasks int             `json:"global_max_concurrent_tasks" yaml:"global_max_concurrent_tasks"`
	TaskTemplates            map[string]Task `json:"task_templates" yaml:"task_templates"`
	Tasks                    []Task          `json:"tasks" yaml:"tasks"`
	EnableLogFile            bool            `json:"enable_log_file" yaml:"enable_log_file"`
	LogFilePath              string          `json:"log_file_path,omitempty" yaml:"log_file_path,omitempty"`
	IndexPath                string          `json:"index_path,omitempty" yaml:"index_path,omitempty"`
}

// NetworkSettings は、HTTPリクエストに関するグローバルな設定を保持します。
type NetworkSettings struct {
	UserAgent               string            `json:"user_agent" yaml:"user_agent"`
	DefaultHeaders          map[string]string `json:"default_headers" yaml:"default_headers"`
	PerDomainIntervalMillis map[string]int    `json:"per_domain_interval_ms" yaml:"per_domain_interval_ms"`
	// DefaultIntervalMillis は未設定ホストへのリクエスト間隔です。0以下は制限なし。
	DefaultIntervalMillis int `json:"default_interval_ms" yaml:"default_interval_ms"`
	RequestTimeoutMillis  int `json:"request_timeout_ms" yaml:"request_timeout_ms"`
}

// SiteSettings は、接続先サイトに関する設定です。
type SiteSettings struct {
	BaseURL string            `json:"base_url" yaml:"base_url"`
	Cookies map[string]string `json:"cookies,omitempty" yaml:"cookies,omitempty"`
}

// Task は単一のアーカイブタスクを定義します。
type Task struct {
	Enabled               *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TaskName              string   `json:"task_name,omitempty" yaml:"task_name,omitempty"`
	UseTemplate           string   `json:"use_template,omitempty" yaml:"use_template,omitempty"`
	SiteAdapter           string   `json:"site_adapter,omitempty" yaml:"site_adapter,omitempty"`
	SearchKeyword         string   `json:"search_keyword,omitempty" yaml:"search_keyword,omitempty"`
	Categories            []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	StartPage             int      `json:"start_page,omitempty" yaml:"start_page,omitempty"`
	MaxPages              int      `json:"max_pages,omitempty" yaml:"max_pages,omitempty"`
	ExcludeTags           []string `json:"exclude_tags,omitempty" yaml:"exclude_tags,omitempty"`
	MinimumPages          int      `json:"minimum_pages,omitempty" yaml:"minimum_pages,omitempty"`
	SaveRootDirectory     string   `json:"save_root_directory,omitempty" yaml:"save_root_directory,omitempty"`
	DirectoryFormat       string   `json:"directory_format,omitempty" yaml:"directory_format,omitempty"`
	MaxConcurrentArticles int      `json:"max_concurrent_articles,omitempty" yaml:"max_concurrent_articles,omitempty"`
	RetryCount            int      `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`
	RetryWaitMillis       int      `json:"retry_wait_ms,omitempty" yaml:"retry_wait_ms,omitempty"`
	RequestIntervalMillis int      `json:"request_interval_ms,omitempty" yaml:"request_interval_ms,omitempty"`
	EnableResumeSupport   bool     `json:"enable_resume_support,omitempty" yaml:"enable_resume_support,omitempty"`
	SaveComments          bool     `json:"save_comments,omitempty" yaml:"save_comments,omitempty"`
	EnableMetadataIndex   bool     `json:"enable_metadata_index,omitempty" yaml:"enable_metadata_index,omitempty"`
}

// IsEnabled は、タスクが有効かどうかを返します。未指定の場合は有効です。
func (t Task) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// DefaultConfigPath は、XDG_CONFIG_HOME 配下の既定の設定ファイルパスを返します。
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appDirName, "config.yaml")
}

// DefaultIndexPath は、XDG_DATA_HOME 配下の既定のインデックスDBパスを返します。
func DefaultIndexPath() string {
	return filepath.Join(xdg.DataHome, appDirName, "index.db")
}

// DefaultSaveRoot は、保存先が未指定のタスクで使われるディレクトリです。
func DefaultSaveRoot() string {
	return filepath.Join(xdg.DataHome, appDirName, "archive")
}
