package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/likearthian/docstore"
)

func newCountCmd(root *rootOptions) *cobra.Command {
	var collection string
	var keyField string
	var filterJSON string
	var pageSize int

	cmd := &cobra.Command{
		Use:   "count",
		Short: "count the documents matching a filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			if collection == "" {
				return fmt.Errorf("no collection given")
			}

			var filter map[string]any
			if filterJSON != "" {
				if err := json.Unmarshal([]byte(filterJSON), &filter); err != nil {
					return fmt.Errorf("invalid --filter. %s", err.Error())
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := docstore.Connect(ctx, root.uri, root.db)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			coll := docstore.NewCollection(store, collection,
				docstore.WithKeyField(keyField),
				docstore.WithLogger(logger),
			)

			total := 0
			res := coll.Paginate(ctx, filter, pageSize, func(_ context.Context, window []docstore.Document, _ ...any) docstore.Result {
				total += len(window)
				return docstore.OK(len(window))
			})

			if err := res.Err(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "collection to count")
	cmd.Flags().StringVar(&keyField, "key", "_id", "primary key field")
	cmd.Flags().StringVar(&filterJSON, "filter", "", "JSON query filter")
	cmd.Flags().IntVar(&pageSize, "page-size", 1000, "documents per window")

	return cmd
}
