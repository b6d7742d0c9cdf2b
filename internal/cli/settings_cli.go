package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tripnest/tripnest/internal/config"
	"github.com/tripnest/tripnest/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and edit stored settings",
}

var settingsSMSCmd = &cobra.Command{
	Use:   "sms",
	Short: "Show the SMS settings record",
	Long:  `Show the settings/sms record with the API secret masked.`,
	RunE:  runSettingsSMS,
}

var settingsSMSSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the SMS settings record",
	Long: `Update fields of the settings/sms record. Only flags that are passed
change; everything else keeps its stored value. The change applies to the
next OTP issuance without a restart.`,
	Example: `tripnest settings sms set --static=false --provider twilio \
  --api-key AC123 --api-secret token --from +15005550006
tripnest settings sms set --static`,
	RunE: runSettingsSMSSet,
}

func init() {
	for _, c := range []*cobra.Command{settingsSMSCmd, settingsSMSSetCmd} {
		c.Flags().String("config", "", "Path to tripnest.toml config file")
	}
	addSMSFlags(settingsSMSSetCmd.Flags())

	settingsSMSCmd.AddCommand(settingsSMSSetCmd)
	settingsCmd.AddCommand(settingsSMSCmd)
}

func addSMSFlags(fs *pflag.FlagSet) {
	fs.Bool("static", false, "Always issue the static code without sending")
	fs.String("provider", "", `SMS provider ("twilio" sends from the relay)`)
	fs.String("api-key", "", "Provider account identifier")
	fs.String("api-secret", "", "Provider auth token")
	fs.String("from", "", "Sender phone number in E.164 form")
}

// withSMSReader loads config, opens the store and hands a reader to fn.
func withSMSReader(cmd *cobra.Command, fn func(ctx context.Context, r *settings.SMSReader) error) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening settings store: %w", err)
	}
	defer store.Close()
	return fn(ctx, settings.NewSMSReader(store))
}

func runSettingsSMS(cmd *cobra.Command, args []string) error {
	return withSMSReader(cmd, func(ctx context.Context, r *settings.SMSReader) error {
		cur, err := r.ReadSMSConfig(ctx)
		if err != nil {
			return err
		}
		return printSMSSettings(cmd.OutOrStdout(), cur, jsonOutput(cmd))
	})
}

func runSettingsSMSSet(cmd *cobra.Command, args []string) error {
	return withSMSReader(cmd, func(ctx context.Context, r *settings.SMSReader) error {
		cur, err := r.ReadSMSConfig(ctx)
		if err != nil {
			return err
		}
		next := applySMSFlags(cmd, cur)
		if err := r.WriteSMSConfig(ctx, next); err != nil {
			return fmt.Errorf("writing sms settings: %w", err)
		}
		return printSMSSettings(cmd.OutOrStdout(), &next, jsonOutput(cmd))
	})
}

// applySMSFlags overlays the flags the user passed onto cur.
func applySMSFlags(cmd *cobra.Command, cur *settings.SMSConfig) settings.SMSConfig {
	var next settings.SMSConfig
	if cur != nil {
		next = *cur
	}
	flags := cmd.Flags()
	if flags.Changed("static") {
		next.SendStaticOTP, _ = flags.GetBool("static")
	}
	if flags.Changed("provider") {
		next.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("api-key") {
		next.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("api-secret") {
		next.APISecret, _ = flags.GetString("api-secret")
	}
	if flags.Changed("from") {
		next.SMSFrom, _ = flags.GetString("from")
	}
	return next
}

func printSMSSettings(w io.Writer, cfg *settings.SMSConfig, jsonOut bool) error {
	if cfg == nil {
		if jsonOut {
			return writeJSON(w, nil)
		}
		fmt.Fprintln(w, "No SMS settings stored; OTPs are issued in static mode.")
		return nil
	}
	masked := cfg.Masked()
	if jsonOut {
		return writeJSON(w, masked)
	}
	useColor := colorEnabled()
	row := func(label, value string) {
		if value == "" {
			value = dim("(unset)", useColor)
		}
		fmt.Fprintf(w, "  %s %s\n", bold(fmt.Sprintf("%-12s", label), useColor), value)
	}
	row("Static:", fmt.Sprintf("%t", masked.SendStaticOTP))
	row("Provider:", masked.Provider)
	row("API key:", masked.APIKey)
	row("API secret:", masked.APISecret)
	row("From:", masked.SMSFrom)
	return nil
}
