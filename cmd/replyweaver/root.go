package main

import (
	"github.com/spf13/cobra"
)

// Version is injected during build
var Version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:     "replyweaver",
		Short:   "Build, encode and serve HTTP responses",
		Version: Version,
		Long: `replyweaver builds HTTP responses with JSON envelopes or problem documents,
encodes them as JSON, JSON Lines, MessagePack, CSV, form or BSON, and stamps
request id, trace context and Server-Timing headers.

Configuration can be provided via a YAML file (--config) and REPLYWEAVER_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")

	cmd.AddCommand(newEncodeCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	return cmd
}
