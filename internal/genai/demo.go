package genai

import "context"

// Demo はAPIキーなしで動かすための固定出力 Generator です。
type Demo struct{}

var _ Generator = (*Demo)(nil)

// NewDemo は Demo を作成します。
func NewDemo() *Demo {
	return &Demo{}
}

// Summarize は入力に依存しない固定の要約を返します。
func (d *Demo) Summarize(ctx context.Context, text string) (string, error) {
	return "This document explains the key concepts discussed in the uploaded PDF. " +
		"It highlights important ideas, definitions, and examples that help " +
		"students understand the topic more effectively.", nil
}

// GenerateQuestions は固定の5問セットを返します。
func (d *Demo) GenerateQuestions(ctx context.Context, text string) (string, error) {
	return `1. What is the main purpose of this document?
A) Entertainment
B) Education ✅
C) Advertisement
D) Navigation

2. Which method is commonly used to improve understanding?
A) Memorization
B) Visualization
C) Explanation of concepts ✅
D) Guessing

3. What is the benefit of structured content?
A) Confusion
B) Faster learning ✅
C) Errors
D) Repetition

4. What type of audience is this document best suited for?
A) Researchers
B) Students ✅
C) Gamers
D) Artists

5. Why are examples useful?
A) They increase length
B) They clarify ideas ✅
C) They distract readers
D) They replace theory
`, nil
}
