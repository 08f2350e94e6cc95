package client

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/betbot/mirrorcow/pkg/logger"
)

// HTTP 调试输出默认关闭（开启方式：设置环境变量 MIRROR_HTTP_DEBUG=1）
var httpDebug = os.Getenv("MIRROR_HTTP_DEBUG") != ""

// httpClient CLOB REST 的底层 HTTP 封装
type httpClient struct {
	client     *http.Client
	host       string
	authConfig *AuthConfig
	log        *logger.Entry
}

func newHTTPClient(host string, authConfig *AuthConfig) *httpClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &httpClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		host:       strings.TrimSuffix(host, "/"),
		authConfig: authConfig,
		log:        logger.Component("clob-http"),
	}
}

// buildURL 拼接请求地址与查询参数
func (h *httpClient) buildURL(endpoint string, params map[string]string) (string, error) {
	reqURL := h.host + endpoint
	if len(params) == 0 {
		return reqURL, nil
	}
	u, err := url.Parse(reqURL)
	if err != nil {
		return "", fmt.Errorf("解析 URL 失败: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// do 执行一次请求；headers 覆盖默认头
func (h *httpClient) do(method, endpoint string, headers map[string]string, params map[string]string, body io.Reader) (*http.Response, error) {
	reqURL, err := h.buildURL(endpoint, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("User-Agent", "mirrorcow-clob")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodGet {
		req.Header.Set("Accept-Encoding", "gzip")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if httpDebug {
		if err != nil {
			h.log.Debugf("%s %s 失败（耗时 %v）: %v", method, reqURL, time.Since(start), err)
		} else {
			h.log.Debugf("%s %s -> %d（耗时 %v）", method, reqURL, resp.StatusCode, time.Since(start))
		}
	}
	return resp, err
}

func (h *httpClient) get(endpoint string, headers map[string]string, params map[string]string) (*http.Response, error) {
	return h.do(http.MethodGet, endpoint, headers, params, nil)
}

func (h *httpClient) post(endpoint string, headers map[string]string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		if httpDebug {
			h.log.Debugf("POST %s body: %s", endpoint, string(bodyBytes))
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	return h.do(http.MethodPost, endpoint, headers, nil, bodyReader)
}

// parseResponse 解包响应：透明处理 gzip，非 2xx 返回含响应体的错误，
// result 为 nil 时只做状态码检查。
func parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("创建 gzip 读取器失败: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(reader)
		return fmt.Errorf("HTTP 错误 %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if result == nil {
		return nil
	}
	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}
	if err := json.Unmarshal(bodyBytes, result); err != nil {
		return fmt.Errorf("解析响应失败: %w, 响应体: %s", err, string(bodyBytes))
	}
	return nil
}
