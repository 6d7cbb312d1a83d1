package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/wavekeeper/internal/bridge"
	"github.com/felixgeelhaar/wavekeeper/internal/exitcode"
	"github.com/felixgeelhaar/wavekeeper/internal/gameapi"
	"github.com/felixgeelhaar/wavekeeper/internal/health"
	"github.com/felixgeelhaar/wavekeeper/internal/ux"
)

type doctorReport struct {
	Status health.Status    `json:"status" yaml:"status"`
	Checks []*health.Result `json:"checks" yaml:"checks"`
}

func (r doctorReport) RenderText(s ux.Styles) string {
	rows := make([][]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		rows = append(rows, []string{
			c.Name,
			s.StatusBadge(string(c.Status)),
			c.Latency.Round(time.Millisecond).String(),
			c.Message,
		})
	}
	return s.Header("wavekeeper doctor  "+s.StatusBadge(string(r.Status))) + "\n\n" +
		s.Table([]string{"CHECK", "STATUS", "LATENCY", "MESSAGE"}, rows)
}

func newDoctorCmd() *cobra.Command {
	var (
		format  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the runtime, spreadsheet and other adapters",
		Long: `Probe every adapter named in the configuration without starting a task.
Degraded checks are reported but only an unhealthy check, such as an
unreachable automation runtime, makes the command exit with 1.`,
		Args:    cobra.NoArgs,
		PreRunE: validateFormat,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := a.context(cmd.Context())
			client := a.httpClient()

			m := health.NewManager().WithTimeout(timeout)
			m.AddChecker(health.NewRuntimeChecker(bridge.New(a.cfg.Runtime, client)))

			reporter, err := a.reporter(ctx)
			if err != nil {
				return err
			}
			if reporter != nil {
				m.AddChecker(health.NewRunConfigChecker(reporter))
			} else {
				m.AddChecker(health.NewRunConfigChecker(nil))
			}

			if a.cfg.GameAPI.Enabled() {
				api, err := gameapi.NewClient(a.cfg.GameAPI, client)
				if err != nil {
					return err
				}
				m.AddChecker(health.NewAccountChecker(api))
			} else {
				m.AddChecker(health.NewAccountChecker(nil))
			}

			m.AddChecker(health.NewConfiguredChecker("mail", a.cfg.Mailgun.Enabled(),
				"mail disabled, set MAILGUN_API_KEY and mailgun.domain to enable"))
			if a.cfg.Journal.Enabled {
				m.AddChecker(health.NewDirChecker("journal", a.cfg.Journal.Dir))
			}

			results := m.Check(ctx)
			report := doctorReport{Status: health.Overall(results), Checks: results}
			for _, r := range results {
				a.logger.Debug("health check", "check", r.Name, "status", string(r.Status), "latency", r.Latency)
			}
			if err := a.Render(cmd, format, report, report); err != nil {
				return err
			}
			if report.Status == health.StatusUnhealthy {
				return exitWith(exitcode.GeneralError)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, yaml")
	cmd.Flags().DurationVar(&timeout, "timeout", health.DefaultTimeout, "per-check timeout")
	return cmd
}

