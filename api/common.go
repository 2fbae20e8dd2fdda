package api

import (
	"fmt"
	"strings"

	"github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/gin-gonic/gin"
	"github.com/linweiyuan/go-logger/logger"

	"github.com/maxduke/go-deepseek-api/config"
)

const (
	AuthorizationHeader = "Authorization"
	ContentType         = "application/json"
	UserAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// NewHTTPClient builds a Chrome-fingerprinted client with its own cookie jar.
// Callers own it and should not share it across chat sessions.
func NewHTTPClient(cfg *config.Config) (tls_client.HttpClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithClientProfile(profiles.Chrome_120),
		// zero disables the overall deadline so long streams are not cut
		tls_client.WithTimeoutSeconds(int(cfg.Timeout.Seconds())),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithCookieJar(jar),
	}
	if cfg.Proxy != "" {
		options = append(options, tls_client.WithProxyUrl(cfg.Proxy))
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}
	return client, nil
}

func ReturnMessage(msg string) gin.H {
	logger.Error(msg)
	return gin.H{
		"errorMessage": msg,
	}
}

func GetAccessToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if strings.HasPrefix(authHeader, "Bearer") {
		authHeader = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	}
	return authHeader
}
