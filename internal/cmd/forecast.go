package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/wavekeeper/internal/forecast"
	"github.com/felixgeelhaar/wavekeeper/internal/ux"
)

// forecastReport is the output of the forecast command.
type forecastReport struct {
	Current  *int                  `json:"current,omitempty" yaml:"current,omitempty"`
	Backup   *int                  `json:"backup,omitempty" yaml:"backup,omitempty"`
	Minutes  int                   `json:"minutes_to_reset" yaml:"minutes_to_reset"`
	Reset    time.Time             `json:"reset" yaml:"reset"`
	AtReset  *forecast.State       `json:"at_reset,omitempty" yaml:"at_reset,omitempty"`
	Decision forecast.BurnDecision `json:"decision" yaml:"decision"`
	Policy   forecast.Policy       `json:"policy" yaml:"policy"`
}

func (r forecastReport) RenderText(s ux.Styles) string {
	decision := "skip"
	if r.Decision.ShouldRun {
		decision = "spend " + strconv.Itoa(r.Decision.Amount)
	}
	pairs := [][2]string{
		{"Now", pools(r.Current, r.Backup)},
		{"Next reset", fmt.Sprintf("%s (in %d min)", r.Reset.Format("2006-01-02 15:04 MST"), r.Minutes)},
	}
	if r.AtReset != nil {
		pairs = append(pairs, [2]string{"At reset", fmt.Sprintf("%d + %d", r.AtReset.Current, r.AtReset.Backup)})
	}
	pairs = append(pairs,
		[2]string{"Projected", optInt(r.Decision.Projected)},
		[2]string{"Decision", decision},
		[2]string{"Reason", r.Decision.Reason},
		[2]string{"Policy", fmt.Sprintf("weight %d, target %d, basis %s, rounding %s",
			r.Policy.BackupWeight, r.Policy.Target, r.Policy.BackupBasis, r.Policy.Rounding)},
	)
	return s.Header("Stamina forecast") + "\n" + s.Fields(pairs)
}

func newForecastCmd() *cobra.Command {
	var (
		current, backup, minutes int
		format                   string
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Predict stamina at the next reset and show the burn decision",
		Long: `Predict both stamina pools at the next daily reset and show what the
stamina workflow would decide, without touching the runtime.

Leave out --current to see the decision for an unreadable level.`,
		Example: `  wavekeeper forecast --current 200 --backup 100
  wavekeeper forecast --current 120 --minutes 300 --format json`,
		Args:    cobra.NoArgs,
		PreRunE: validateFormat,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := cc.LoadConfig()
			if err != nil {
				return err
			}
			reset, err := cfg.Reset.Daily()
			if err != nil {
				return err
			}

			now := time.Now()
			r := forecastReport{
				Minutes: reset.MinutesUntil(now),
				Reset:   reset.Next(now),
				Policy:  cfg.Policy,
			}
			if cmd.Flags().Changed("minutes") {
				if minutes < 0 {
					return &usageError{err: fmt.Errorf("--minutes must not be negative"), usage: cmd.UsageString()}
				}
				r.Minutes = minutes
				r.Reset = now.Add(time.Duration(minutes) * time.Minute).In(reset.Location)
			}
			if cmd.Flags().Changed("current") {
				r.Current = &current
			}
			if cmd.Flags().Changed("backup") {
				r.Backup = &backup
			}
			if r.Current != nil {
				b := 0
				if r.Backup != nil {
					b = *r.Backup
				}
				at := cfg.Policy.Predict(*r.Current, b, r.Minutes)
				r.AtReset = &at
			}
			r.Decision = cfg.Policy.DecideBurn(r.Current, r.Backup, r.Minutes)

			return cc.Render(cmd, format, r, r)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&current, "current", 0, "current stamina")
	flags.IntVar(&backup, "backup", 0, "backup stamina")
	flags.IntVar(&minutes, "minutes", 0, "minutes until the reset (default: from the configured reset time)")
	flags.StringVarP(&format, "format", "f", "text", "output format: text, json, yaml")
	return cmd
}
