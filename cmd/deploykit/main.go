package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	var global GlobalOptions

	var rootCmd = &cobra.Command{
		Use:           "deploykit",
		Short:         "Download and upload app metadata with iTMSTransporter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&global.ConfigPath, "config", "deploykit.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&global.LogLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVarP(&global.Username, "user", "u", "", "account username")
	rootCmd.PersistentFlags().StringVar(&global.Transporter, "transporter", "", "path to iTMSTransporter")
	rootCmd.PersistentFlags().StringVar(&global.Remote, "remote", "", "ssh alias of a macOS host to run the transporter on")

	// --- Download ---
	var download TransferOptions
	var downloadCmd = &cobra.Command{
		Use:   "download [apple_id]",
		Short: "Download the metadata package of an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			download.GlobalOptions = global
			download.AppleID = args[0]
			return RunDownload(cmd.Context(), download)
		},
	}
	downloadCmd.Flags().StringVar(&download.MetadataDir, "metadata-dir", "", "metadata directory (overrides config)")
	downloadCmd.Flags().StringVarP(&download.Dir, "destination", "d", "", "download destination (default: metadata directory)")

	// --- Upload ---
	var upload TransferOptions
	var uploadCmd = &cobra.Command{
		Use:   "upload [apple_id]",
		Short: "Upload the {apple_id}.itmsp package of an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upload.GlobalOptions = global
			upload.AppleID = args[0]
			return RunUpload(cmd.Context(), upload)
		},
	}
	uploadCmd.Flags().StringVar(&upload.MetadataDir, "metadata-dir", "", "metadata directory (overrides config)")
	uploadCmd.Flags().StringVar(&upload.Dir, "dir", "", "directory containing the .itmsp package (default: metadata directory)")

	// --- Doctor ---
	var doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Check where and how the transporter would run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunDoctor(global)
		},
	}

	rootCmd.AddCommand(downloadCmd, uploadCmd, doctorCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
