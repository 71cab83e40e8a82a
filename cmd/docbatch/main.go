package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/likearthian/docstore"
)

var logger zerolog.Logger

type rootOptions struct {
	uri      string
	db       string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "docbatch",
		Short:         "batch jobs over a document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := zerolog.ParseLevel(opts.logLevel)
			if err != nil {
				lvl = zerolog.InfoLevel
			}

			logger = zerolog.New(zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.RFC3339,
			}).Level(lvl).With().Timestamp().Logger()

			if opts.uri == "" {
				opts.uri = os.Getenv(docstore.EnvConnString)
			}

			if opts.uri == "" {
				return fmt.Errorf("no connection string; pass --uri or set %s", docstore.EnvConnString)
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.uri, "uri", "", "store connection string (defaults to $"+docstore.EnvConnString+")")
	cmd.PersistentFlags().StringVar(&opts.db, "db", "docstore", "logical database name")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level")

	cmd.AddCommand(newWalkCmd(opts))
	cmd.AddCommand(newLoadCmd(opts))
	cmd.AddCommand(newCountCmd(opts))

	return cmd
}
