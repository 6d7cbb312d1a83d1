// Package notify emails run summaries through Mailgun. Message bodies are
// rendered server-side from stored Mailgun templates; wavekeeper only sends
// the template variables and a plain-text fallback.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
)

// DefaultBaseURL is Mailgun's US region API.
const DefaultBaseURL = "https://api.mailgun.net"

// Config holds Mailgun credentials and template names.
type Config struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Domain    string `mapstructure:"domain" yaml:"domain" json:"domain"`
	Recipient string `mapstructure:"recipient" yaml:"recipient" json:"recipient"`
	// Sender defaults to "wavekeeper <postmaster@{Domain}>".
	Sender  string `mapstructure:"sender" yaml:"sender" json:"sender,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`

	TemplateDaily   string `mapstructure:"template_daily" yaml:"template_daily" json:"template_daily"`
	TemplateStamina string `mapstructure:"template_stamina" yaml:"template_stamina" json:"template_stamina"`
}

// Enabled reports whether enough is configured to send mail.
func (c Config) Enabled() bool {
	return c.APIKey != "" && c.Domain != "" && c.Recipient != ""
}

// Message is one templated email.
type Message struct {
	Subject   string
	Template  string
	Variables map[string]any
	Text      string
	// Recipient overrides Config.Recipient.
	Recipient string
}

// Mailer sends messages through the Mailgun HTTP API.
type Mailer struct {
	cfg    Config
	client *retryablehttp.Client
}

// NewMailer validates cfg and returns a Mailer using client.
func NewMailer(cfg Config, client *retryablehttp.Client) (*Mailer, error) {
	switch {
	case cfg.APIKey == "":
		return nil, kerrors.NewConfigMissingError("mailgun.api_key", "MAILGUN_API_KEY")
	case cfg.Domain == "":
		return nil, kerrors.NewConfigMissingError("mailgun.domain", "MAILGUN_DOMAIN")
	case cfg.Recipient == "":
		return nil, kerrors.NewConfigMissingError("mailgun.recipient", "MAILGUN_RECIPIENT")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Sender == "" {
		cfg.Sender = fmt.Sprintf("wavekeeper <postmaster@%s>", cfg.Domain)
	}
	return &Mailer{cfg: cfg, client: client}, nil
}

// Send posts msg to Mailgun.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.Template == "" {
		return kerrors.New(kerrors.ErrCodeConfigMissing, "no Mailgun template for "+msg.Subject).
			WithSuggestion("Set mailgun.template_daily / mailgun.template_stamina (MAILGUN_TEMPLATE_DAILY / MAILGUN_TEMPLATE_STAMINA)")
	}
	vars, err := json.Marshal(msg.Variables)
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeEmail, "failed to encode template variables", err)
	}

	recipient := msg.Recipient
	if recipient == "" {
		recipient = m.cfg.Recipient
	}
	form := url.Values{
		"from":                  {m.cfg.Sender},
		"to":                    {recipient},
		"subject":               {msg.Subject},
		"template":              {msg.Template},
		"h:X-Mailgun-Variables": {string(vars)},
	}
	if msg.Text != "" {
		form.Set("text", msg.Text)
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", strings.TrimRight(m.cfg.BaseURL, "/"), m.cfg.Domain)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeEmail, "failed to build Mailgun request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeEmail, "Mailgun request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return kerrors.New(kerrors.ErrCodeEmail,
			fmt.Sprintf("Mailgun returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return nil
}
