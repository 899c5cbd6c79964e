package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tweetdigest/internal/model"
)

// resendEndpoint はResendのメール送信APIのエンドポイント。
const resendEndpoint = "https://api.resend.com/emails"

// SenderService はメール送信のインターフェースを定義する。
type SenderService interface {
	// Send は指定アドレスにメールを送信する。
	// 送信失敗はエラーとして返す（呼び出し元が履歴への記録を判断する）。
	Send(ctx context.Context, to string, email *model.Email) error
}

// ResendSender はResend APIを使用したSenderServiceの実装。
type ResendSender struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	fromEmail  string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewResendSender はResendSenderの新しいインスタンスを生成する。
func NewResendSender(httpClient *http.Client, logger *slog.Logger, apiKey, fromEmail string) *ResendSender {
	return &ResendSender{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		endpoint:   resendEndpoint,
	}
}

// sendRequest はResend APIのリクエストボディ。
type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send は指定アドレスにメールを送信する。
func (s *ResendSender) Send(ctx context.Context, to string, email *model.Email) error {
	if to == "" {
		return fmt.Errorf("送信先メールアドレスが設定されていません")
	}

	payload, err := json.Marshal(sendRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: email.Subject,
		HTML:    email.BodyHTML,
	})
	if err != nil {
		return fmt.Errorf("リクエストボディの作成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("メールの送信に失敗しました",
			slog.String("error", err.Error()),
			slog.String("to", to),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Error("Resend APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("to", to),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("Resend APIがステータス %d を返しました", resp.StatusCode)
	}

	return nil
}

// compile-time interface check
var _ SenderService = (*ResendSender)(nil)
