package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/likearthian/docstore"
)

func newLoadCmd(root *rootOptions) *cobra.Command {
	var collection string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "load <file.ndjson>",
		Short: "bulk insert newline-delimited JSON documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if collection == "" {
				return fmt.Errorf("no collection given")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := docstore.Connect(ctx, root.uri, root.db)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			coll := docstore.NewCollection(store, collection, docstore.WithLogger(logger))

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			flush := func(docs []docstore.Document) error {
				ops := docstore.Map(docs, func(doc docstore.Document) docstore.BulkOp {
					return docstore.Insert(doc)
				})

				res := coll.BulkWrite(ctx, ops)
				if err := res.Err(); err != nil {
					return err
				}

				logger.Info().Int("documents", len(docs)).Msg("batch inserted")
				return nil
			}

			var batch []docstore.Document
			total := 0
			scanner := bufio.NewScanner(file)
			scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}

				var doc docstore.Document
				if err := json.Unmarshal(line, &doc); err != nil {
					return fmt.Errorf("invalid document on line %d. %s", total+1, err.Error())
				}

				batch = append(batch, doc)
				total++

				if len(batch) >= batchSize {
					if err := flush(batch); err != nil {
						return err
					}
					batch = batch[:0]
				}
			}

			if err := scanner.Err(); err != nil {
				return err
			}

			if len(batch) > 0 {
				if err := flush(batch); err != nil {
					return err
				}
			}

			logger.Info().Int("documents", total).Msg("load complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "target collection")
	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "documents per bulk write")

	return cmd
}
