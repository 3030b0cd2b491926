package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template は `gge init` が書き出す設定ファイルの雛形です。
//
//go:embed template.yaml
var Template []byte

const compatibleVersion = "1.0"

// taskPatch は、タスク設定をデコードするための中間ヘルパー構造体です。
type taskPatch struct {
	Enabled               *bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TaskName              *string   `json:"task_name,omitempty" yaml:"task_name,omitempty"`
	UseTemplate           string    `json:"use_template,omitempty" yaml:"use_template,omitempty"`
	SiteAdapter           *string   `json:"site_adapter,omitempty" yaml:"site_adapter,omitempty"`
	SearchKeyword         *string   `json:"search_keyword,omitempty" yaml:"search_keyword,omitempty"`
	Categories            *[]string `json:"categories,omitempty" yaml:"categories,omitempty"`
	StartPage             *int      `json:"start_page,omitempty" yaml:"start_page,omitempty"`
	MaxPages              *int      `json:"max_pages,omitempty" yaml:"max_pages,omitempty"`
	ExcludeTags           *[]string `json:"exclude_tags,omitempty" yaml:"exclude_tags,omitempty"`
	MinimumPages          *int      `json:"minimum_pages,omitempty" yaml:"minimum_pages,omitempty"`
	SaveRootDirectory     *string   `json:"save_root_directory,omitempty" yaml:"save_root_directory,omitempty"`
	DirectoryFormat       *string   `json:"directory_format,omitempty" yaml:"directory_format,omitempty"`
	MaxConcurrentArticles *int      `json:"max_concurrent_articles,omitempty" yaml:"max_concurrent_articles,omitempty"`
	RetryCount            *int      `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`
	RetryWaitMillis       *int      `json:"retry_wait_ms,omitempty" yaml:"retry_wait_ms,omitempty"`
	RequestIntervalMillis *int      `json:"request_interval_ms,omitempty" yaml:"request_interval_ms,omitempty"`
	EnableResumeSupport   *bool     `json:"enable_resume_support,omitempty" yaml:"enable_resume_support,omitempty"`
	SaveComments          *bool     `json:"save_comments,omitempty" yaml:"save_comments,omitempty"`
	EnableMetadataIndex   *bool     `json:"enable_metadata_index,omitempty" yaml:"enable_metadata_index,omitempty"`
}

// rawConfig は、設定ファイルをデコードするための中間構造体です。
type rawConfig struct {
	ConfigVersion            string          `json:"config_version" yaml:"config_version"`
	Network                  NetworkSettings `json:"network" yaml:"network"`
	Site                     SiteSettings    `json:"site" yaml:"site"`
	GlobalMaxConcurrentTasks int             `json:"global_max_concurrent_tasks" yaml:"global_max_concurrent_tasks"`
	TaskTemplates            map[string]Task `json:"task_templates" yaml:"task_templates"`
	Tasks                    []taskPatch     `json:"tasks" yaml:"tasks"`
	EnableLogFile            bool            `json:"enable_log_file" yaml:"enable_log_file"`
	LogFilePath              string          `json:"log_file_path" yaml:"log_file_path"`
	IndexPath                string          `json:"index_path" yaml:"index_path"`
}

// LoadAndResolve は、指定されたパスから設定ファイルを読み込み、解析と解決を行います。
// 拡張子が .yaml / .yml の場合は YAML、それ以外は JSON として扱います。
func LoadAndResolve(path string) (*Config, error) {
	absPath, _ := filepath.Abs(path)
	cwd, _ := os.Getwd()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイル '%s' の読み込みに失敗しました (Abs: '%s', Cwd: '%s'): %w", path, absPath, cwd, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseAndResolveYAML(data)
	default:
		return ParseAndResolve(data)
	}
}

// ParseAndResolve は、JSON形式の設定データを解析し、テンプレートを解決して最終的な設定を返します。
func ParseAndResolve(data []byte) (*Config, error) {
	var rawCfg rawConfig
	if err := json.Unmarshal(data, &rawCfg); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError

		if errors.As(err, &syntaxErr) {
			line, col := computeLineAndColumn(data, syntaxErr.Offset)
			return nil, fmt.Errorf("設定ファイルのJSON構文エラー (行 %d, 列 %d): %w", line, col, err)
		}
		if errors.As(err, &typeErr) {
			line, col := computeLineAndColumn(data, typeErr.Offset)
			return nil, fmt.Errorf("設定ファイルの型エラー (行 %d, 列 %d, フィールド '%s'): 期待値 %v, 実際 %v - %w",
				line, col, typeErr.Field, typeErr.Type, typeErr.Value, err)
		}
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}
	return resolve(&rawCfg)
}

// ParseAndResolveYAML は、YAML形式の設定データを解析し、テンプレートを解決して最終的な設定を返します。
func ParseAndResolveYAML(data []byte) (*Config, error) {
	var rawCfg rawConfig
	if err := yaml.Unmarshal(data, &rawCfg); err != nil {
		// yaml.v3 のエラーメッセージには行番号が含まれる
		return nil, fmt.Errorf("設定ファイルのYAML解析に失敗しました: %w", err)
	}
	return resolve(&rawCfg)
}

func resolve(rawCfg *rawConfig) (*Config, error) {
	if rawCfg.ConfigVersion != compatibleVersion {
		return nil, fmt.Errorf("サポートされていない設定バージョン '%s' です。'%s' が必要です。", rawCfg.ConfigVersion, compatibleVersion)
	}

	resolvedConfig := &Config{
		ConfigVersion:            rawCfg.ConfigVersion,
		Network:                  rawCfg.Network,
		Site:                     rawCfg.Site,
		GlobalMaxConcurrentTasks: rawCfg.GlobalMaxConcurrentTasks,
		TaskTemplates:            rawCfg.TaskTemplates,
		Tasks:                    make([]Task, 0, len(rawCfg.Tasks)),
		EnableLogFile:            rawCfg.EnableLogFile,
		LogFilePath:              rawCfg.LogFilePath,
		IndexPath:                rawCfg.IndexPath,
	}

	for _, patch := range rawCfg.Tasks {
		var resolvedTask Task
		if patch.UseTemplate != "" {
			template, ok := rawCfg.TaskTemplates[patch.UseTemplate]
			if !ok {
				taskName := "unknown"
				if patch.TaskName != nil {
					taskName = *patch.TaskName
				}
				return nil, fmt.Errorf("タスク '%s' が未定義のテンプレート '%s' を使用しています", taskName, patch.UseTemplate)
			}
			resolvedTask = template
		}
		applyPatch(&resolvedTask, &patch)
		resolvedConfig.Tasks = append(resolvedConfig.Tasks, resolvedTask)
	}

	applyDefaults(resolvedConfig)
	return resolvedConfig, nil
}

// applyDefaults は、省略された値に既定値を設定します。
func applyDefaults(cfg *Config) {
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = DefaultBaseURL
	}
	cfg.Site.BaseURL = strings.TrimRight(cfg.Site.BaseURL, "/")
	if cfg.GlobalMaxConcurrentTasks <= 0 {
		cfg.GlobalMaxConcurrentTasks = 1
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = DefaultIndexPath()
	}
	for i := range cfg.Tasks {
		task := &cfg.Tasks[i]
		if task.SiteAdapter == "" {
			task.SiteAdapter = "ehentai"
		}
		if task.SaveRootDirectory == "" {
			task.SaveRootDirectory = DefaultSaveRoot()
		}
		if task.MaxConcurrentArticles <= 0 {
			task.MaxConcurrentArticles = 1
		}
	}
}

// FindTask は、名前に一致するタスクを返します。
func (c *Config) FindTask(name string) (Task, bool) {
	for _, task := range c.Tasks {
		if task.TaskName == name {
			return task, true
		}
	}
	return Task{}, false
}

// applyPatch は、patchの非nilフィールドをtargetに上書きします。
func applyPatch(target *Task, patch *taskPatch) {
	target.UseTemplate = patch.UseTemplate
	if patch.Enabled != nil {
		target.Enabled = patch.Enabled
	}
	if patch.TaskName != nil {
		target.TaskName = *patch.TaskName
	}
	if patch.SiteAdapter != nil {
		target.SiteAdapter = *patch.SiteAdapter
	}
	if patch.SearchKeyword != nil {
		target.SearchKeyword = *patch.SearchKeyword
	}
	if patch.Categories != nil {
		target.Categories = *patch.Categories
	}
	if patch.StartPage != nil {
		target.StartPage = *patch.StartPage
	}
	if patch.MaxPages != nil {
		target.MaxPages = *patch.MaxPages
	}
	if patch.ExcludeTags != nil {
		target.ExcludeTags = *patch.ExcludeTags
	}
	if patch.MinimumPages != nil {
		target.MinimumPages = *patch.MinimumPages
	}
	if patch.SaveRootDirectory != nil {
		target.SaveRootDirectory = *patch.SaveRootDirectory
	}
	if patch.DirectoryFormat != nil {
		target.DirectoryFormat = *patch.DirectoryFormat
	}
	if patch.MaxConcurrentArticles != nil {
		target.MaxConcurrentArticles = *patch.MaxConcurrentArticles
	}
	if patch.RetryCount != nil {
		target.RetryCount = *patch.RetryCount
	}
	if patch.RetryWaitMillis != nil {
		target.RetryWaitMillis = *patch.RetryWaitMillis
	}
	if patch.RequestIntervalMillis != nil {
		target.RequestIntervalMillis = *patch.RequestIntervalMillis
	}
	if patch.EnableResumeSupport != nil {
		target.EnableResumeSupport = *patch.EnableResumeSupport
	}
	if patch.SaveComments != nil {
		target.SaveComments = *patch.SaveComments
	}
	if patch.EnableMetadataIndex != nil {
		target.EnableMetadataIndex = *patch.EnableMetadataIndex
	}
}

// computeLineAndColumn は、バイトオフセットから行番号と列番号（1始まり）を計算します。
func computeLineAndColumn(data []byte, offset int64) (int, int) {
	if offset < 0 || int(offset) > len(data) {
		return 0, 0
	}
	line := 1
	lastLineStart := 0
	for i, b := range data {
		if int64(i) == offset {
			return line, i - lastLineStart + 1
		}
		if b == '\n' {
			line++
			lastLineStart = i + 1
		}
	}
	return line, int(offset) - lastLineStart + 1
}
