package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/log"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// SheetWriter is the part of sheets.Reporter the sheet hooks use.
type SheetWriter interface {
	AppendResult(ctx context.Context, res *ledger.RunResult) error
	AppendFarm(ctx context.Context, res *ledger.FarmResult) error
	RecordStamina(ctx context.Context, res *ledger.RunResult) (bool, error)
}

// ReportMailer is the part of notify.Mailer the email hook uses.
type ReportMailer interface {
	SendReport(ctx context.Context, res *ledger.RunResult, rc sheets.RunConfig) error
}

// Deps are the adapters built-in hooks write through. A nil adapter makes
// the hooks needing it fail at registration.
type Deps struct {
	Sheets SheetWriter
	Mailer ReportMailer
	HTTP   *retryablehttp.Client
}

// RegisterBuiltinHooks registers factories for the built-in hook types.
func RegisterBuiltinHooks(r *Registry, deps Deps) {
	r.RegisterFactory(TypeSheetAppend, func(c *HookConfig) (Hook, error) {
		if deps.Sheets == nil {
			return nil, fmt.Errorf("spreadsheet not configured")
		}
		return &SheetAppendHook{base: newBase(c, AllEvents), sheets: deps.Sheets}, nil
	})
	r.RegisterFactory(TypeSheetStamina, func(c *HookConfig) (Hook, error) {
		if deps.Sheets == nil {
			return nil, fmt.Errorf("spreadsheet not configured")
		}
		return &SheetStaminaHook{base: newBase(c, RunEvents), sheets: deps.Sheets}, nil
	})
	r.RegisterFactory(TypeMailgun, func(c *HookConfig) (Hook, error) {
		if deps.Mailer == nil {
			return nil, fmt.Errorf("mailgun not configured")
		}
		return &MailgunHook{base: newBase(c, RunEvents), mailer: deps.Mailer}, nil
	})
	r.RegisterFactory(TypeWebhook, func(c *HookConfig) (Hook, error) {
		return NewWebhookHook(c, deps.HTTP)
	})
}

type base struct {
	name       string
	eventTypes []EventType
	enabled    bool
}

func newBase(c *HookConfig, defaults []EventType) base {
	events := c.Events
	if len(events) == 0 {
		events = defaults
	}
	return base{name: c.Name, eventTypes: events, enabled: c.Enabled}
}

func (b base) Name() string            { return b.name }
func (b base) EventTypes() []EventType { return b.eventTypes }
func (b base) Enabled() bool           { return b.enabled }

// SheetAppendHook appends the event's record to its worksheet.
type SheetAppendHook struct {
	base
	sheets SheetWriter
}

func (h *SheetAppendHook) Execute(ctx context.Context, event *Event) error {
	switch {
	case event.Run != nil:
		return h.sheets.AppendResult(ctx, event.Run)
	case event.Farm != nil:
		return h.sheets.AppendFarm(ctx, event.Farm)
	}
	return nil
}

// SheetStaminaHook copies a run's end stamina to the Config worksheet.
type SheetStaminaHook struct {
	base
	sheets SheetWriter
}

func (h *SheetStaminaHook) Execute(ctx context.Context, event *Event) error {
	if event.Run == nil {
		return nil
	}
	written, err := h.sheets.RecordStamina(ctx, event.Run)
	if err != nil {
		return err
	}
	if !written {
		log.FromContext(ctx).DebugContext(ctx, "no end stamina to record", "run", event.Run.ID)
	}
	return nil
}

// MailgunHook emails the run summary.
type MailgunHook struct {
	base
	mailer ReportMailer
}

func (h *MailgunHook) Execute(ctx context.Context, event *Event) error {
	if event.Run == nil {
		return nil
	}
	rc := sheets.DefaultRunConfig()
	if event.RunConfig != nil {
		rc = *event.RunConfig
	}
	return h.mailer.SendReport(ctx, event.Run, rc)
}

// WebhookHook posts the event as JSON.
type WebhookHook struct {
	base
	url     string
	headers map[string]string
	client  *retryablehttp.Client
}

// NewWebhookHook creates a webhook hook from config["url"] and optional
// config["headers"].
func NewWebhookHook(config *HookConfig, client *retryablehttp.Client) (Hook, error) {
	url, ok := config.Config["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("webhook URL required")
	}
	if client == nil {
		client = retryablehttp.NewClient()
		client.Logger = nil
	}

	hook := &WebhookHook{
		base:    newBase(config, AllEvents),
		url:     url,
		headers: make(map[string]string),
		client:  client,
	}
	switch headers := config.Config["headers"].(type) {
	case map[string]any:
		for key, value := range headers {
			if s, ok := value.(string); ok {
				hook.headers[key] = s
			}
		}
	case map[string]string:
		for key, value := range headers {
			hook.headers[key] = value
		}
	}
	return hook, nil
}

func (h *WebhookHook) Execute(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeWebhook, "failed to create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range h.headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeWebhook, "webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return kerrors.New(kerrors.ErrCodeWebhook, fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}
	return nil
}
