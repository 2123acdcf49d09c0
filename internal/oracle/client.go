package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEmptyResponse = errors.New("生成式模型返回空结果")
	ErrUpstream      = errors.New("生成式模型接口调用失败")
)

// maxResponseBytes 单次响应体上限
const maxResponseBytes = 4 << 20

// Client 文本生成接口
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient 调用 Gemini 风格的 generateContent REST 接口
type GeminiClient struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

// NewGeminiClient 创建客户端；httpClient 为 nil 时使用默认客户端（超时由调用方 ctx 控制）
func NewGeminiClient(endpoint, model, apiKey string, httpClient *http.Client, logger *zap.Logger) *GeminiClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &GeminiClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		apiKey:   apiKey,
		http:     httpClient,
		logger:   logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate 发送单轮提示词并返回拼接后的文本
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: 读取响应失败: %v", ErrUpstream, err)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: 响应不是合法 JSON (HTTP %d)", ErrUpstream, resp.StatusCode)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s (%d)", ErrUpstream, out.Error.Message, out.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	var b strings.Builder
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("生成式模型调用完成",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
