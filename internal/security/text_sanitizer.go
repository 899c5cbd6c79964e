// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はツイート本文やユーザー入力のテキストをサニタイズし、
// ダイジェストメールのHTMLに埋め込む際のXSSリスクからユーザーを保護する。
// bluemondayライブラリのStrictPolicyを使用し、全てのHTMLタグを除去する。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストのサニタイズ機能のインターフェースを定義する。
// メール本文のレンダリング前に使用される。
type TextSanitizerService interface {
	// Sanitize はテキストから全てのHTMLタグを除去したプレーンテキストを返す。
	// scriptタグ、イベント属性を含む全てのマークアップが除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのHTML要素と属性を除去し、テキストのみを残す。
// ツイート本文はHTMLを含まない前提だが、API応答を信用せず常に除去する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストから全てのHTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
