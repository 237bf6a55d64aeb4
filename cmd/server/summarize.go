package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/medreport/viewer/internal/backend"
	"github.com/medreport/viewer/internal/config"
	"github.com/medreport/viewer/internal/logging"
	"github.com/medreport/viewer/internal/render"
	"github.com/medreport/viewer/internal/session"
	"github.com/medreport/viewer/internal/storage"
	"github.com/medreport/viewer/internal/upload"
)

var errSubmitFailed = errors.New("summarization failed")

func summarizeCmd(opts *rootOptions) *cobra.Command {
	var backendURL string

	cmd := &cobra.Command{
		Use:   "summarize <file>",
		Short: "Upload a report and print both views",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if backendURL != "" {
				cfg.Backend.BaseURL = backendURL
			}
			return runSummarize(cmd, cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&backendURL, "backend-url", "", "override backend.base_url")
	return cmd
}

func runSummarize(cmd *cobra.Command, cfg *config.AppConfig, path string) error {
	logger := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, "console")

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tmpDir, err := os.MkdirTemp("", "medreport-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	store, err := storage.NewLocalStore(tmpDir)
	if err != nil {
		return err
	}

	client := backend.NewClient(cfg.UploadURL(), cfg.BackendTimeout(), logger)
	uploads := upload.NewManager(client, store, logger)
	sess := session.NewManager(session.Options{Logger: logger}).Create()

	name := filepath.Base(path)
	if _, err := uploads.SelectFile(sess, name, mime.TypeByExtension(filepath.Ext(name)), f); err != nil {
		return err
	}

	state := uploads.Submit(cmd.Context(), sess)
	if err := render.Fprint(cmd.OutOrStdout(), state); err != nil {
		return err
	}
	if state.Error != "" {
		return fmt.Errorf("%w: %s", errSubmitFailed, state.Error)
	}
	return nil
}
