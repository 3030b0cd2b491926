package core

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"GoGalleryExplorer/internal/config"
	"GoGalleryExplorer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteTask_ArchivesFilteredResults(t *testing.T) {
	// Arrange
	keep := testGallery{gid: "1", token: "aaa", title: "Keep", length: 2, tags: []string{"artist:someone"}}
	excluded := testGallery{gid: "2", token: "bbb", title: "Excluded", length: 2, tags: []string{"other:excluded"}}
	short := testGallery{gid: "3", token: "ccc", title: "Short", length: 1}
	site := newTestSite(t, keep, excluded, short)
	ex := newTestExplorer(t, site)
	task := newTestTask(t)
	task.ExcludeTags = []string{"other:excluded"}
	task.MinimumPages = 2
	stats := NewSessionStats()

	// Act
	result, err := ExecuteTask(context.Background(), task, ex, nil, stats, discardLogger())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.PagesFetched)
	assert.Equal(t, 3, result.Candidates)
	assert.Equal(t, 1, result.Targets)
	assert.Zero(t, result.Failed)

	assert.DirExists(t, filepath.Join(task.SaveRootDirectory, "1"))
	assert.NoDirExists(t, filepath.Join(task.SaveRootDirectory, "2"))
	assert.NoDirExists(t, filepath.Join(task.SaveRootDirectory, "3"))
	assert.Zero(t, site.Hits("/g/2/bbb/"), "一次フィルタで除外された記事は取得すべきではありません")
	assert.Zero(t, site.Hits("/g/3/ccc/"))

	archived, _, _, files, _ := stats.Counts()
	assert.Equal(t, 1, archived)
	assert.Equal(t, 2, files)
}

func TestExecuteTask_CountsFailures(t *testing.T) {
	g := testGallery{gid: "1", token: "aaa", title: "Broken", length: 2}
	site := newTestSite(t, g)
	site.failPath(imagePath("1", 1), http.StatusNotFound, -1)
	ex := newTestExplorer(t, site)
	stats := NewSessionStats()

	result, err := ExecuteTask(context.Background(), newTestTask(t), ex, nil, stats, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	_, _, failed, _, _ := stats.Counts()
	assert.Equal(t, 1, failed)
}

func TestExecuteTask_StartPageBeyondResults(t *testing.T) {
	site := newTestSite(t, testGallery{gid: "1", token: "aaa", title: "Only", length: 1})
	ex := newTestExplorer(t, site)
	task := newTestTask(t)
	task.StartPage = 1

	result, err := ExecuteTask(context.Background(), task, ex, nil, NewSessionStats(), discardLogger())

	require.NoError(t, err)
	assert.Zero(t, result.PagesFetched)
	assert.Zero(t, site.Hits("/g/1/aaa/"))
}

func TestExecuteTask_SearchFailure(t *testing.T) {
	site := newTestSite(t)
	site.failPath("/", http.StatusServiceUnavailable, -1)
	ex := newTestExplorer(t, site)

	_, err := ExecuteTask(context.Background(), newTestTask(t), ex, nil, NewSessionStats(), discardLogger())

	assert.Error(t, err)
}

func TestPrimaryFiltering(t *testing.T) {
	tagged := model.NewTagMap()
	tagged.Add(model.TagFemale, "excluded")

	batch := []model.ResultSummary{
		{Locator: "a", Length: 10},
		{Locator: "b", Length: 3},
		{Locator: "c", Length: 0}, // ページ数不明は通過させる
		{Locator: "d", Length: 10, Tags: tagged},
	}
	task := config.Task{MinimumPages: 5, ExcludeTags: []string{"female:excluded"}}

	got := primaryFiltering(batch, task)

	var locators []string
	for _, s := range got {
		locators = append(locators, s.Locator)
	}
	assert.Equal(t, []string{"a", "c"}, locators)
}

func TestParseCategories(t *testing.T) {
	kinds := parseCategories([]string{"doujinshi", "Artist CG", "non-h"})
	assert.Equal(t, []model.ArticleKind{model.KindDoujinshi, model.KindArtistCG, model.KindNonH}, kinds)
}
