package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tripnest/tripnest/internal/config"
	"github.com/tripnest/tripnest/internal/otp"
)

// errCodeMismatch makes `otp verify` exit non-zero on a wrong code.
var errCodeMismatch = errors.New("code does not match")

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Issue and verify one-time codes",
	Long: `Issue and verify one-time codes from the shell, using the same SMS
settings and decision rules as the running relay.`,
}

var otpSendCmd = &cobra.Command{
	Use:   "send <phone>",
	Short: "Issue an OTP to a phone number",
	Long: `Issue an OTP using the current settings/sms record. Ten-digit numbers
get the configured default country code.`,
	Example: `tripnest otp send 9876543210
tripnest otp send +15005550006 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runOTPSend,
}

var otpVerifyCmd = &cobra.Command{
	Use:     "verify <code> <expected>",
	Short:   "Compare a code against the expected value",
	Example: `tripnest otp verify 123456 123456`,
	Args:    cobra.ExactArgs(2),
	RunE:    runOTPVerify,
}

func init() {
	otpSendCmd.Flags().String("config", "", "Path to tripnest.toml config file")
	otpCmd.AddCommand(otpSendCmd)
	otpCmd.AddCommand(otpVerifyCmd)
}

func runOTPSend(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return sendOTP(cmd.Context(), cfg, logger, args[0], cmd.OutOrStdout(), jsonOutput(cmd))
}

// sendOTP opens the settings store, issues one code and prints the result.
func sendOTP(ctx context.Context, cfg *config.Config, logger *slog.Logger, phone string, w io.Writer, jsonOut bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening settings store: %w", err)
	}
	defer store.Close()

	res := buildEngine(cfg, store, logger).Issue(ctx, phone)
	if err := printOTPResult(w, res, jsonOut, colorEnabled()); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("otp not sent: %s", res.Message)
	}
	return nil
}

func printOTPResult(w io.Writer, res otp.Result, jsonOut, useColor bool) error {
	if jsonOut {
		return writeJSON(w, res)
	}
	if res.Success {
		fmt.Fprintf(w, "%s %s\n", green("✓", useColor), res.Message)
	} else {
		fmt.Fprintf(w, "%s %s\n", red("✗", useColor), res.Message)
	}
	if res.OTP != "" {
		fmt.Fprintf(w, "  %s %s\n", bold("Code:", useColor), res.OTP)
	}
	switch {
	case res.Static():
		fmt.Fprintf(w, "  %s\n", dim("static mode: no SMS was sent", useColor))
	case res.Message == otp.MsgDelegated:
		fmt.Fprintf(w, "  %s\n", dim("client-side phone auth handles delivery", useColor))
	case res.Success:
		fmt.Fprintf(w, "  %s\n", dim("sent via Twilio", useColor))
	}
	return nil
}

func runOTPVerify(cmd *cobra.Command, args []string) error {
	return verifyOTP(cmd.OutOrStdout(), args[0], args[1], jsonOutput(cmd))
}

func verifyOTP(w io.Writer, code, expected string, jsonOut bool) error {
	valid := otp.Verify(code, expected)
	if jsonOut {
		if err := writeJSON(w, map[string]bool{"valid": valid}); err != nil {
			return err
		}
	} else if valid {
		fmt.Fprintln(w, "valid")
	}
	if !valid {
		return errCodeMismatch
	}
	return nil
}
