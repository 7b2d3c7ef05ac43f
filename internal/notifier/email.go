package notifier

import (
	"binance-rsi-alerts/internal/models"
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const (
	senderName   = "Crypto Trading Alerts"
	emailSubject = "Crypto Trading Alerts"
)

var emailTemplate = template.Must(template.New("oversold").Parse(`<html>
  <body>
    <h3>OverSold trading pairs on {{.Exchange}}</h3>
    <table>
      <thead>
        <th>Pair</th>
        <th>RSI</th>
        <th>Link</th>
      </thead>
      <tbody>
        {{- range .Rows}}
        <tr>
          <td>{{.TradingPair}}</td>
          <td>{{printf "%.2f" .RSIVal}}</td>
          <td>{{if .URL}}<a href="{{.URL}}">Link</a>{{end}}</td>
        </tr>
        {{- end}}
      </tbody>
    </table>
  </body>
</html>
`))

type emailRow struct {
	TradingPair string
	RSIVal      float64
	URL         string
}

// RenderOversoldEmail renders the HTML body listing the oversold pairs.
// tradeURL maps a pair to the page linked in its row and may be nil.
func RenderOversoldEmail(exchange string, pairs []models.OversoldPair, tradeURL func(string) string) (string, error) {
	rows := make([]emailRow, 0, len(pairs))
	for _, p := range pairs {
		row := emailRow{TradingPair: p.TradingPair, RSIVal: p.RSIVal}
		if tradeURL != nil {
			row.URL = tradeURL(p.TradingPair)
		}
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Exchange string
		Rows     []emailRow
	}{Exchange: displayName(exchange), Rows: rows})
	if err != nil {
		return "", fmt.Errorf("failed to render e-mail: %w", err)
	}
	return buf.String(), nil
}

// sender is the part of gomail.Dialer the notifier uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends the oversold alert as an HTML e-mail over SMTP.
type EmailNotifier struct {
	cfg      models.EmailConfig
	exchange string
	tradeURL func(string) string
	sender   sender
	logger   *zap.Logger
}

// NewEmailNotifier creates an SMTP notifier from cfg.
func NewEmailNotifier(cfg *models.Config, logger *zap.Logger) (*EmailNotifier, error) {
	if !cfg.Email.Configured() {
		return nil, ErrNotConfigured
	}
	e := cfg.Email
	return &EmailNotifier{
		cfg:      e,
		exchange: cfg.Exchange,
		tradeURL: cfg.TradeURL,
		sender:   gomail.NewDialer(e.SMTPHost, e.SMTPPort, e.SenderAddress, e.SenderPassword),
		logger:   logger,
	}, nil
}

// Notify sends one e-mail listing every pair.
// The gomail dialer has no context support, so ctx is only checked up front.
func (n *EmailNotifier) Notify(ctx context.Context, pairs []models.OversoldPair) error {
	if len(pairs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := RenderOversoldEmail(n.exchange, pairs, n.tradeURL)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.cfg.SenderAddress, senderName)
	m.SetHeader("To", recipients(n.cfg.ReceiverAddress)...)
	m.SetHeader("Subject", emailSubject)
	m.SetBody("text/html", body)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send oversold e-mail: %w", err)
	}
	n.logger.Info("Oversold e-mail sent", zap.Int("pairs", len(pairs)), zap.String("to", n.cfg.ReceiverAddress))
	return nil
}

// recipients splits a comma separated address list.
func recipients(list string) []string {
	var out []string
	for _, addr := range strings.Split(list, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func displayName(exchange string) string {
	if exchange == "" {
		return "Binance"
	}
	return strings.ToUpper(exchange[:1]) + exchange[1:]
}
