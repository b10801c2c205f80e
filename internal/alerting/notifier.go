package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Alert carries the context of one "target reached" event.
type Alert struct {
	Name         string
	URL          string
	CurrentPrice decimal.Decimal
	TargetPrice  decimal.Decimal
	Savings      decimal.Decimal
	At           time.Time
}

// Notifier delivers alerts to the user.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the activity log. It is the fallback channel
// when no external sink is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify emits the alert as a structured log event.
func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	n.logger.Info().
		Str("product", alert.Name).
		Str("url", alert.URL).
		Str("current", alert.CurrentPrice.StringFixed(2)).
		Str("target", alert.TargetPrice.StringFixed(2)).
		Str("savings", alert.Savings.StringFixed(2)).
		Msg("PRICE ALERT: target reached")
	return nil
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls the sendMessage API with the rendered alert text.
func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(alert),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("product", alert.Name).Msg("alert dispatched (Telegram)")
	return nil
}

func renderMessage(alert Alert) string {
	builder := strings.Builder{}
	builder.WriteString("PRICE ALERT\n")
	builder.WriteString(fmt.Sprintf("Product: %s\n", alert.Name))
	builder.WriteString(fmt.Sprintf("Current Price: $%s\n", alert.CurrentPrice.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Target Price: $%s\n", alert.TargetPrice.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("You Save: $%s\n", alert.Savings.StringFixed(2)))
	if alert.URL != "" {
		builder.WriteString(alert.URL)
	}
	return builder.String()
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
)
