package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/GenreGenius/internal/journal"
	"github.com/himanishpuri/GenreGenius/internal/render"
	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
	"github.com/himanishpuri/GenreGenius/pkg/logger"
)

func init() {
	rootCmd.AddCommand(predictCmd)
}

var predictCmd = &cobra.Command{
	Use:   "predict [YOUTUBE_URL]",
	Short: "Predict the genre of a YouTube track",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	var source string
	if len(args) == 1 {
		source = args[0]
	}

	client, err := newHTTPClient()
	if err != nil {
		return err
	}
	opts := []genregenius.Option{
		genregenius.WithEndpoint(cfg.Client.Endpoint),
		genregenius.WithHTTPClient(client),
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			// The journal is for operators; a broken one must not block predictions.
			logger.Warnf("Journal disabled: %v", err)
		} else {
			defer j.Close()
			opts = append(opts, genregenius.WithJournal(j))
		}
	}

	session := genregenius.NewSession(opts...)
	session.OnChange(render.New(cmd.OutOrStdout()).Snapshot)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Submit(source); err != nil {
		return err
	}

	snap, err := session.Wait(ctx)
	if err != nil {
		session.Cancel()
		return errors.New("interrupted")
	}
	if snap.Terminal() && snap.Err != nil {
		return snap.Err
	}
	return nil
}

// newHTTPClient bounds connection setup and response headers by
// client.open_timeout while leaving the event stream itself unbounded.
func newHTTPClient() (*http.Client, error) {
	timeout, err := cfg.OpenTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	transport.DialContext = (&net.Dialer{Timeout: timeout}).DialContext
	return &http.Client{Transport: transport}, nil
}
