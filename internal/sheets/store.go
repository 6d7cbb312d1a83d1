package sheets

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/log"
)

// Config locates the spreadsheet and its worksheets.
type Config struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id" json:"spreadsheet_id"`

	// Service account key, tried in this order.
	Credentials       string `mapstructure:"credentials" yaml:"credentials" json:"-"`
	CredentialsBase64 string `mapstructure:"credentials_base64" yaml:"credentials_base64" json:"-"`
	CredentialsFile   string `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file,omitempty"`

	ConfigSheet  string `mapstructure:"config_sheet" yaml:"config_sheet" json:"config_sheet"`
	DailySheet   string `mapstructure:"daily_sheet" yaml:"daily_sheet" json:"daily_sheet"`
	StaminaSheet string `mapstructure:"stamina_sheet" yaml:"stamina_sheet" json:"stamina_sheet"`
	FarmSheet    string `mapstructure:"farm_sheet" yaml:"farm_sheet" json:"farm_sheet"`

	Layout Layout `mapstructure:"layout" yaml:"layout" json:"layout"`

	// Endpoint overrides the API base URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint,omitempty"`
}

// DefaultConfig returns the worksheet names used by the shipped template.
func DefaultConfig() Config {
	return Config{
		ConfigSheet:  "Config",
		DailySheet:   "DailyRuns",
		StaminaSheet: "StaminaRuns",
		FarmSheet:    "5to1",
		Layout:       LayoutCells,
	}
}

// Enabled reports whether a spreadsheet is configured.
func (c Config) Enabled() bool { return c.SpreadsheetID != "" }

// Store is the tabular store wavekeeper reads its switches from and
// reports into.
type Store interface {
	// ConfigRows returns every value of the Config worksheet.
	ConfigRows(ctx context.Context) ([][]string, error)
	// AppendRow appends one row to a worksheet.
	AppendRow(ctx context.Context, sheet string, row []string) error
	// UpdateStamina writes the last known stamina to the Config worksheet.
	UpdateStamina(ctx context.Context, at time.Time, current, backup int) error
}

// Cells written by UpdateStamina.
const (
	StaminaTimestampCell = "E2"
	StaminaValuesRange   = "B4:B5"
	StaminaTimestampFmt  = "01-02 15:04"
)

// GoogleStore is a Store backed by the Sheets v4 API.
type GoogleStore struct {
	svc *sheetsapi.Service
	cfg Config
}

// NewGoogleStore authenticates with the configured service account. Extra
// options are appended after the credentials.
func NewGoogleStore(ctx context.Context, cfg Config, opts ...option.ClientOption) (*GoogleStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, kerrors.NewConfigMissingError("sheets.spreadsheet_id", "GOOGLE_SHEET_ID")
	}

	var clientOpts []option.ClientOption
	if len(opts) == 0 {
		key, err := serviceAccountKey(cfg)
		if err != nil {
			return nil, err
		}
		jwt, err := google.JWTConfigFromJSON(key, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, kerrors.Wrap(kerrors.ErrCodeConfigInvalid, "invalid service account key", err)
		}
		clientOpts = append(clientOpts, option.WithHTTPClient(jwt.Client(ctx)))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.ErrCodeSheets, "failed to create sheets client", err)
	}
	return &GoogleStore{svc: svc, cfg: cfg}, nil
}

func serviceAccountKey(cfg Config) ([]byte, error) {
	switch {
	case cfg.Credentials != "":
		return []byte(cfg.Credentials), nil
	case cfg.CredentialsBase64 != "":
		key, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, kerrors.Wrap(kerrors.ErrCodeConfigInvalid, "service account key is not valid base64", err)
		}
		return key, nil
	case cfg.CredentialsFile != "":
		key, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, kerrors.NewFileNotFoundError(cfg.CredentialsFile)
			}
			return nil, kerrors.Wrap(kerrors.ErrCodeFileReadFailed, "failed to read service account key", err)
		}
		return key, nil
	default:
		return nil, kerrors.NewConfigMissingError("sheets.credentials", "GOOGLE_SERVICE_ACCOUNT_JSON")
	}
}

// ConfigRows implements Store.
func (s *GoogleStore) ConfigRows(ctx context.Context) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.cfg.ConfigSheet).Context(ctx).Do()
	if err != nil {
		return nil, kerrors.Wrap(kerrors.ErrCodeSheets, "failed to read "+s.cfg.ConfigSheet, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

// AppendRow implements Store.
func (s *GoogleStore) AppendRow(ctx context.Context, sheet string, row []string) error {
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, sheet, &sheetsapi.ValueRange{
		Values: [][]any{values},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeSheets, "failed to append to "+sheet, err)
	}
	return nil
}

// UpdateStamina implements Store.
func (s *GoogleStore) UpdateStamina(ctx context.Context, at time.Time, current, backup int) error {
	sheet := s.cfg.ConfigSheet
	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*sheetsapi.ValueRange{
			{Range: sheet + "!" + StaminaTimestampCell, Values: [][]any{{at.Format(StaminaTimestampFmt)}}},
			{Range: sheet + "!" + StaminaValuesRange, Values: [][]any{{current}, {backup}}},
		},
	}
	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return kerrors.Wrap(kerrors.ErrCodeSheets, "failed to update stamina cells", err)
	}
	return nil
}

// Reporter maps run records onto worksheets.
type Reporter struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewReporter returns a Reporter writing through store.
func NewReporter(store Store, cfg Config) *Reporter {
	return &Reporter{store: store, cfg: cfg, now: time.Now}
}

// RunConfig fetches and parses the run configuration. On any failure the
// defaults are returned together with the error so callers can carry on.
func (r *Reporter) RunConfig(ctx context.Context) (RunConfig, error) {
	rows, err := r.store.ConfigRows(ctx)
	if err != nil {
		return DefaultRunConfig(), err
	}
	cfg, err := ParseRunConfig(r.cfg.Layout, rows)
	if err != nil {
		return DefaultRunConfig(), kerrors.Wrap(kerrors.ErrCodeConfigInvalid, "bad sheets.layout", err)
	}
	log.FromContext(ctx).DebugContext(ctx, "run config loaded", "layout", string(r.cfg.Layout))
	return cfg, nil
}

// SheetFor returns the worksheet that receives rows of kind.
func (r *Reporter) SheetFor(kind ledger.Kind) (string, error) {
	switch kind {
	case ledger.KindDaily:
		return r.cfg.DailySheet, nil
	case ledger.KindStamina:
		return r.cfg.StaminaSheet, nil
	case ledger.KindFarm:
		return r.cfg.FarmSheet, nil
	default:
		return "", fmt.Errorf("no worksheet for %q results", kind)
	}
}

// AppendResult appends res to its kind's worksheet.
func (r *Reporter) AppendResult(ctx context.Context, res *ledger.RunResult) error {
	sheet, err := r.SheetFor(res.Kind)
	if err != nil {
		return err
	}
	row, err := res.Row(r.now())
	if err != nil {
		return err
	}
	return r.store.AppendRow(ctx, sheet, row)
}

// AppendFarm appends one farm iteration.
func (r *Reporter) AppendFarm(ctx context.Context, res *ledger.FarmResult) error {
	return r.store.AppendRow(ctx, r.cfg.FarmSheet, res.Row(r.now()))
}

// RecordStamina copies the run's end stamina to the Config worksheet. A run
// without a readable end stamina writes nothing; an unknown backup is 0.
func (r *Reporter) RecordStamina(ctx context.Context, res *ledger.RunResult) (bool, error) {
	if res.StaminaLeft == nil {
		return false, nil
	}
	at := r.now()
	if res.EndedAt != nil {
		at = *res.EndedAt
	}
	backup := 0
	if res.BackupLeft != nil {
		backup = *res.BackupLeft
	}
	if err := r.store.UpdateStamina(ctx, at, *res.StaminaLeft, backup); err != nil {
		return false, err
	}
	return true, nil
}
