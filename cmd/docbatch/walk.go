package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/likearthian/docstore"
)

// jobSpec is the yaml description of one traversal job. Precedence is
// explicit flag > job file > flag default.
type jobSpec struct {
	Collection string         `yaml:"collection"`
	KeyField   string         `yaml:"key_field"`
	PageSize   int            `yaml:"page_size"`
	Filter     map[string]any `yaml:"filter"`
	StartAfter any            `yaml:"start_after"`
}

func loadJobSpec(path string, spec *jobSpec) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read job file. %s", err.Error())
	}

	if err := yaml.Unmarshal(raw, spec); err != nil {
		return fmt.Errorf("failed to parse job file. %s", err.Error())
	}

	return nil
}

// jobFlags holds the raw walk flag values before they are merged into a
// jobSpec.
type jobFlags struct {
	collection string
	keyField   string
	pageSize   int
	filterJSON string
	startAfter string
}

// applyFlags lays flag values over the job file's, letting explicitly
// changed flags win and flag defaults fill whatever the file left unset.
func (spec *jobSpec) applyFlags(f jobFlags, changed func(name string) bool) error {
	if changed("collection") || spec.Collection == "" {
		spec.Collection = f.collection
	}

	if changed("key") || spec.KeyField == "" {
		spec.KeyField = f.keyField
	}

	if changed("page-size") || spec.PageSize == 0 {
		spec.PageSize = f.pageSize
	}

	if changed("filter") {
		if err := json.Unmarshal([]byte(f.filterJSON), &spec.Filter); err != nil {
			return fmt.Errorf("invalid --filter. %s", err.Error())
		}
	}

	if changed("start-after") {
		spec.StartAfter = parseKeyLiteral(f.startAfter)
	}

	return nil
}

// parseKeyLiteral keeps numeric keys numeric; anything unparsable is a
// string key.
func parseKeyLiteral(s string) any {
	var key any
	if err := json.Unmarshal([]byte(s), &key); err != nil {
		return s
	}

	return key
}

func newWalkCmd(root *rootOptions) *cobra.Command {
	flags := jobFlags{}
	var jobFile string

	cmd := &cobra.Command{
		Use:   "walk",
		Short: "traverse a collection in ascending key order, one window at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := jobSpec{}
			if jobFile != "" {
				if err := loadJobSpec(jobFile, &spec); err != nil {
					return err
				}
			}

			if err := spec.applyFlags(flags, cmd.Flags().Changed); err != nil {
				return err
			}

			if spec.Collection == "" {
				return fmt.Errorf("no collection given")
			}

			// termination signals cancel the in-flight traversal
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := docstore.Connect(ctx, root.uri, root.db)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			coll := docstore.NewCollection(store, spec.Collection,
				docstore.WithKeyField(spec.KeyField),
				docstore.WithLogger(logger),
			)

			cur := docstore.Cursor{LastKey: spec.StartAfter}
			total := 0

			res := coll.PaginateCursor(ctx, &cur, spec.Filter, spec.PageSize, func(ctx context.Context, window []docstore.Document, args ...any) docstore.Result {
				total += len(window)
				logger.Info().
					Int("window", cur.Windows+1).
					Int("documents", len(window)).
					Msg("processed window")

				return docstore.OK(len(window))
			})

			if err := res.Err(); err != nil {
				logger.Error().Err(err).Interface("last_key", cur.LastKey).Msg("walk aborted; resume with --start-after")
				return err
			}

			logger.Info().Int("documents", total).Int("windows", cur.Windows).Msg("walk complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.collection, "collection", "c", "", "collection to traverse (overrides the job file)")
	cmd.Flags().StringVar(&flags.keyField, "key", "_id", "primary key field (overrides the job file)")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 100, "documents per window (overrides the job file)")
	cmd.Flags().StringVar(&flags.filterJSON, "filter", "", "JSON query filter (overrides the job file)")
	cmd.Flags().StringVar(&flags.startAfter, "start-after", "", "resume traversal after this key (overrides the job file)")
	cmd.Flags().StringVar(&jobFile, "job", "", "yaml job file")

	return cmd
}
