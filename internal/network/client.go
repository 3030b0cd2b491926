// Package network は、ギャラリーサイトとのHTTP通信に関する機能を提供します。
// Cookie Jarによるセッション管理とホストごとのレート制限をカプセル化した、
// 複数の記事・検索から共有されるトランスポートを実装しています。
package network

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"GoGalleryExplorer/internal/config"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Client は、Cookie Jarを内包し、HTTPセッションを管理するクライアントです。
// 複数の Search / Article から同時に使用しても安全です。
type Client struct {
	http               *resty.Client
	jar                *cookiejar.Jar
	rateLimiters       map[string]*rate.Limiter // ホスト名ごとのレートリミッター
	rateLimitersMutex  sync.Mutex               // rateLimitersへのアクセスを保護するMutex
	perDomainIntervals map[string]int           // ドメインごとの設定間隔
	defaultInterval    int                      // 未設定ホストの間隔 (0以下なら制限なし)
}

// NewClient は NetworkSettings に基づいて HTTP クライアントを初期化し、
// ドメインごとのレートリミッターを設定します。
func NewClient(settings config.NetworkSettings) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jarの作成に失敗しました: %w", err)
	}

	timeout := time.Duration(settings.RequestTimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second // デフォルトタイムアウト
	}

	httpClient := resty.New().
		SetCookieJar(jar).
		SetTimeout(timeout).
		SetHeaders(settings.DefaultHeaders)
	if settings.UserAgent != "" {
		httpClient.SetHeader("User-Agent", settings.UserAgent)
	}

	rateLimiters := make(map[string]*rate.Limiter)
	for domain, intervalMillis := range settings.PerDomainIntervalMillis {
		if intervalMillis <= 0 {
			continue
		}
		// intervalMillis 毎に 1 リクエストを許可する limiter
		rateLimiters[domain] = rate.NewLimiter(rate.Every(time.Duration(intervalMillis)*time.Millisecond), 1)
	}

	return &Client{
		http:               httpClient,
		jar:                jar,
		rateLimiters:       rateLimiters,
		perDomainIntervals: settings.PerDomainIntervalMillis,
		defaultInterval:    settings.DefaultIntervalMillis,
	}, nil
}

// SetCookie は、指定されたURLのドメインに対して、任意のCookieを設定します。
func (c *Client) SetCookie(domainURL string, cookie *http.Cookie) error {
	if !strings.HasPrefix(domainURL, "http") {
		domainURL = "https://" + domainURL
	}

	parsedURL, err := url.Parse(domainURL)
	if err != nil {
		return fmt.Errorf("Cookie設定のためのURL解析に失敗しました: %w", err)
	}

	c.jar.SetCookies(parsedURL, []*http.Cookie{cookie})
	return nil
}

// Fetch は、設定済みのCookieを使って指定されたURIにGETリクエストを送信し、
// レスポンスボディを返します。
// 失敗した場合は常に *TransportError を返します。2xx以外の応答は *HTTPError を内包します。
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	parsedURL, err := url.Parse(uri)
	if err != nil {
		return nil, &TransportError{URL: uri, Err: fmt.Errorf("リクエストURLの解析に失敗しました: %w", err)}
	}

	// ドメインごとのレートリミッターを取得し、待機
	// rate.Limiter 自体がスレッドセーフなので、待機中はロックを保持しない
	limiter := c.getLimiterForHost(parsedURL.Hostname())
	if err := limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: uri, Err: fmt.Errorf("レートリミッター待機中にエラーが発生しました: %w", err)}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get(uri)
	if err != nil {
		return nil, &TransportError{URL: uri, Err: fmt.Errorf("GETリクエストの送信に失敗しました: %w", err)}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &TransportError{URL: uri, Err: &HTTPError{
			StatusCode: resp.StatusCode(),
			URL:        uri,
			Message:    http.StatusText(resp.StatusCode()),
		}}
	}

	body, err := decodeBody(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, &TransportError{URL: uri, Err: err}
	}
	return body, nil
}

// getLimiterForHost は、指定されたホスト名に対応するレートリミッターを返します。
// 存在しない場合は新しく生成します。
func (c *Client) getLimiterForHost(host string) *rate.Limiter {
	c.rateLimitersMutex.Lock()
	defer c.rateLimitersMutex.Unlock()

	if limiter, exists := c.rateLimiters[host]; exists {
		return limiter
	}

	intervalMillis := c.defaultInterval
	if val, ok := c.perDomainIntervals[host]; ok && val > 0 {
		intervalMillis = val
	}

	var newLimiter *rate.Limiter
	if intervalMillis <= 0 {
		newLimiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		newLimiter = rate.NewLimiter(rate.Every(time.Duration(intervalMillis)*time.Millisecond), 1) // バーストは1に設定
	}

	c.rateLimiters[host] = newLimiter
	return newLimiter
}
