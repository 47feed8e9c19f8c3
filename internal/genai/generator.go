// Package genai は抽出済みテキストから要約とMCQを生成します。
package genai

import "context"

// Generator は要約と選択式問題の生成を提供します。
// 失敗は error として返し、結果文字列に埋め込みません。
type Generator interface {
	Summarize(ctx context.Context, text string) (string, error)
	GenerateQuestions(ctx context.Context, text string) (string, error)
}
