package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/notes/internal/config"
	"github.com/vango-dev/notes/internal/errors"
	"github.com/vango-dev/notes/internal/notes"
)

func exportCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of all notes to S3",
		Long: `Write a JSON snapshot of every note to the configured bucket.

Examples:
  NOTES_S3_BUCKET=backups notes export
  NOTES_S3_ENDPOINT=http://localhost:9000 NOTES_S3_PATH_STYLE=true notes export`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Export.Bucket == "" {
				return errors.New("N503")
			}
			logger, err := setupLogger(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := notes.Open(ctx, cfg.Database, notes.WithLogger(logger.With("component", "notes")))
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := newExporter(cfg).Export(ctx, store)
			if err != nil {
				return errors.New("N504").WithDetail(err.Error()).Wrap(err)
			}
			success(cmd, "Exported %d notes to s3://%s/%s (%d bytes)", res.Count, res.Bucket, res.Key, res.Bytes)
			return nil
		},
	}
}
