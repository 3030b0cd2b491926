package adapter

import (
	"testing"

	"GoGalleryExplorer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentEncode(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"", ""},
		{"AZaz09-_.~", "AZaz09-_.~"},
		{" ", "%20"},
		{"/", "%2F"},
		{"é", "%C3%A9"},
		{"language:korean", "language%3Akorean"},
		{"artist:\"hota.$\"", "artist%3A%22hota.%24%22"},
		{"a+b&c=d", "a%2Bb%26c%3Dd"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, PercentEncode(tc.in))
		})
	}
}

func TestPercentEncode_EveryByte(t *testing.T) {
	for b := 0; b < 256; b++ {
		got := PercentEncode(string([]byte{byte(b)}))
		if isUnreserved(byte(b)) {
			assert.Equal(t, string([]byte{byte(b)}), got)
			continue
		}
		require.Len(t, got, 3)
		assert.Equal(t, byte('%'), got[0])
		assert.Regexp(t, `^%[0-9A-F]{2}$`, got)
	}
}

func TestBuildSearchQuery(t *testing.T) {
	assert.Equal(t, "f_search=language%3Akorean", BuildSearchQuery("language:korean"))
	assert.Equal(t, "f_search=x&f_cats=1017", BuildSearchQuery("x", model.KindDoujinshi, model.KindManga))
}

func TestBuildSearchURL(t *testing.T) {
	got, err := BuildSearchURL("https://e-hentai.org/", 3, "f_search=a%20b")
	require.NoError(t, err)
	assert.Equal(t, "https://e-hentai.org/?page=3&f_search=a%20b", got)

	got, err = BuildSearchURL("https://e-hentai.org", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "https://e-hentai.org/?page=0", got)

	_, err = BuildSearchURL("not a url", 0, "")
	assert.ErrorIs(t, err, ErrInvalidURI)

	_, err = BuildSearchURL("https://e-hentai.org", -1, "")
	assert.ErrorIs(t, err, ErrInvalidURI)
}

func TestArticleURLs(t *testing.T) {
	locator := "https://e-hentai.org/g/1/abc/"

	assert.Equal(t, locator, BuildArticlePageURL(locator, 0))
	assert.Equal(t, locator+"?p=1", BuildArticlePageURL(locator, 1))
	assert.Equal(t, locator+"?p=12", BuildArticlePageURL(locator, 12))
	assert.Equal(t, locator+"?hc=1", BuildAllCommentsURL(locator))
	assert.Equal(t, locator+"?p=1&hc=1", BuildAllCommentsURL(locator+"?p=1"))
}

func TestResolveLocator(t *testing.T) {
	base := "https://e-hentai.org/"

	testCases := []struct {
		name    string
		locator string
		want    string
		wantErr bool
	}{
		{"Absolute", "https://exhentai.org/g/1/abc/", "https://exhentai.org/g/1/abc/", false},
		{"Relative", "/g/1/abc/", "https://e-hentai.org/g/1/abc/", false},
		{"ProtocolRelative", "//ehgt.org/t/a.jpg", "https://ehgt.org/t/a.jpg", false},
		{"Empty", "  ", "", true},
		{"NoSlash", "g/1/abc/", "", true},
		{"BadScheme", "ftp://e-hentai.org/g/1/", "", true},
		{"BadEscape", "/g/%zz", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveLocator(base, tc.locator)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURI)
				var uriErr *URIError
				assert.ErrorAs(t, err, &uriErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
