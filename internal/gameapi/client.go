// Package gameapi reads account state from the game's companion app API,
// giving stamina and daily activity without screen reading.
package gameapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
)

// DefaultBaseURL is the companion app API.
const DefaultBaseURL = "https://api.kurobbs.com"

const (
	gameID      = 3
	dataPath    = "/gamer/widget/game3/getData"
	contentType = "application/x-www-form-urlencoded; charset=utf-8"

	iosUserAgent     = "Mozilla/5.0 (iPhone; CPU iPhone OS 18_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko)  KuroGameBox/2.9.0"
	androidUserAgent = "Mozilla/5.0 (Linux; Android 16; 25098PN5AC Build/BP2A.250605.031.A3; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/143.0.7499.34 Mobile Safari/537.36 Kuro/2.9.0 KuroGameBox/2.9.0"
)

// Server ids. Roles at or above internationalRoleMin live on a regional
// server chosen by the role id's leading digit.
const (
	ServerIDChina         = "76402e5b20be2c39f095a152090afddc"
	ServerIDInternational = "919752ae5ea09c1ced910dd668a63ffb"
	internationalRoleMin  = 200000000
)

var regionalServerIDs = map[int]string{
	5: "591d6af3a3090d8ea00d8f86cf6d7501",
	6: "6eb2a235b30d05efd77bedb5cf60999e",
	7: "86d52186155b148b5c138ceb41be9650",
	8: "919752ae5ea09c1ced910dd668a63ffb",
	9: "10cd7254d57e58ae560b15d51e34b4c",
}

// Config identifies the account.
type Config struct {
	RoleID string `mapstructure:"role_id" yaml:"role_id" json:"role_id"`
	Token  string `mapstructure:"token" yaml:"token" json:"-"`
	DID    string `mapstructure:"did" yaml:"did" json:"-"`
	// ServerID overrides the id derived from RoleID.
	ServerID string `mapstructure:"server_id" yaml:"server_id" json:"server_id,omitempty"`
	// Platform is "android" (default) or "ios".
	Platform string `mapstructure:"platform" yaml:"platform" json:"platform"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
}

// Enabled reports whether an account is configured.
func (c Config) Enabled() bool { return c.RoleID != "" && c.Token != "" }

// ServerID returns the server a role id belongs to.
func ServerID(roleID string) string {
	id, err := strconv.Atoi(strings.TrimSpace(roleID))
	if err != nil || id < internationalRoleMin {
		return ServerIDChina
	}
	if s, ok := regionalServerIDs[id/100000000]; ok {
		return s
	}
	return ServerIDInternational
}

// DailyInfo is the account state the API reports.
type DailyInfo struct {
	Stamina     int `json:"stamina"`
	Backup      int `json:"backup_stamina"`
	DailyPoints int `json:"daily_points"`
}

// Client calls the companion API.
type Client struct {
	cfg    Config
	client *retryablehttp.Client
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config, client *retryablehttp.Client) (*Client, error) {
	if cfg.RoleID == "" {
		return nil, kerrors.NewConfigMissingError("gameapi.role_id", "WAVES_ROLE_ID")
	}
	if cfg.Token == "" {
		return nil, kerrors.NewConfigMissingError("gameapi.token", "WAVES_TOKEN")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ServerID == "" {
		cfg.ServerID = ServerID(cfg.RoleID)
	}
	return &Client{cfg: cfg, client: client}, nil
}

func (c *Client) headers() http.Header {
	source, ua := "android", androidUserAgent
	if c.cfg.Platform == "ios" {
		source, ua = "ios", iosUserAgent
	}
	h := http.Header{}
	h.Set("source", source)
	h.Set("Content-Type", contentType)
	h.Set("User-Agent", ua)
	h.Set("devCode", "127.0.0.1, "+ua)
	h.Set("token", c.cfg.Token)
	h.Set("did", c.cfg.DID)
	h.Set("b-at", "")
	return h
}

// DailyInfo fetches current stamina, backup stamina and daily points.
func (c *Client) DailyInfo(ctx context.Context) (DailyInfo, error) {
	form := url.Values{
		"type":     {"2"},
		"sizeType": {"1"},
		"gameId":   {strconv.Itoa(gameID)},
		"serverId": {c.cfg.ServerID},
		"roleId":   {c.cfg.RoleID},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + dataPath
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return DailyInfo{}, kerrors.Wrap(kerrors.ErrCodeGameAPI, "failed to build request", err)
	}
	req.Header = c.headers()

	resp, err := c.client.Do(req)
	if err != nil {
		return DailyInfo{}, kerrors.Wrap(kerrors.ErrCodeGameAPI, "game API request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return DailyInfo{}, kerrors.Wrap(kerrors.ErrCodeGameAPI, "failed to read game API response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return DailyInfo{}, kerrors.New(kerrors.ErrCodeGameAPI, fmt.Sprintf("game API returned %d", resp.StatusCode))
	}
	return ParseDailyInfo(body)
}

// Stamina returns the two stamina pools.
func (c *Client) Stamina(ctx context.Context) (current, backup int, err error) {
	info, err := c.DailyInfo(ctx)
	if err != nil {
		return 0, 0, err
	}
	return info.Stamina, info.Backup, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

type counter struct {
	Cur *int `json:"cur"`
}

type widgetData struct {
	Energy      *counter `json:"energyData"`
	StoreEnergy *counter `json:"storeEnergyData"`
	Liveness    *counter `json:"livenessData"`
}

// ParseDailyInfo decodes a getData response. The data field may be an
// object or a JSON document encoded as a string. A response is accepted when
// success is true or the code is 0 or 200, and all three counters are set.
func ParseDailyInfo(body []byte) (DailyInfo, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return DailyInfo{}, kerrors.Wrap(kerrors.ErrCodeGameAPI, "non-JSON game API response", err)
	}
	if !env.Success && env.Code != 0 && env.Code != 200 {
		return DailyInfo{}, kerrors.New(kerrors.ErrCodeGameAPI, fmt.Sprintf("game API error %d: %s", env.Code, env.Msg))
	}

	raw := env.Data
	var encoded string
	if json.Unmarshal(raw, &encoded) == nil {
		raw = json.RawMessage(encoded)
	}
	var data widgetData
	if err := json.Unmarshal(raw, &data); err != nil {
		return DailyInfo{}, kerrors.Wrap(kerrors.ErrCodeGameAPI, "unexpected game API data", err)
	}
	if data.Energy == nil || data.Energy.Cur == nil ||
		data.StoreEnergy == nil || data.StoreEnergy.Cur == nil ||
		data.Liveness == nil || data.Liveness.Cur == nil {
		return DailyInfo{}, kerrors.New(kerrors.ErrCodeGameAPI, "game API response is missing stamina or activity")
	}
	return DailyInfo{
		Stamina:     *data.Energy.Cur,
		Backup:      *data.StoreEnergy.Cur,
		DailyPoints: *data.Liveness.Cur,
	}, nil
}
