package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// プロンプトに載せるテキストの上限。長大なPDFはここで打ち切る。
const maxPromptChars = 16000

const summaryPrompt = "以下のドキュメントを、学習者向けに重要な概念・定義・例を押さえた自然な文章で要約してください。\n\n%s"

const questionsPrompt = "以下のドキュメントから4択の選択式問題を5問作成してください。" +
	"各問題は選択肢A〜Dを持ち、正解の選択肢に ✅ を付けてください。\n\n%s"

// Client はOpenAI互換のchat completions APIを呼び出す Generator 実装です。
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

var _ Generator = (*Client)(nil)

// NewClient は Client を作成します。
func NewClient(endpoint, apiKey, model string, maxTokens int) *Client {
	return &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			// 応答しないリモートにジョブを無期限に掴ませない
			Timeout: 90 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize はテキストの要約を生成します。
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, fmt.Sprintf(summaryPrompt, truncate(text)))
}

// GenerateQuestions はテキストから選択式問題を生成します。
func (c *Client) GenerateQuestions(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, fmt.Sprintf(questionsPrompt, truncate(text)))
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens: c.maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("生成APIへのリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("生成APIの応答の読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("生成APIがエラーを返しました (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("生成APIの応答の解析に失敗しました: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("生成APIの応答に choices が含まれていません")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(text string) string {
	if len(text) <= maxPromptChars {
		return text
	}
	return text[:maxPromptChars]
}
