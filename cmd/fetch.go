package main

import (
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/parking-cli/internal/config"
	"github.com/sells-group/parking-cli/internal/source"
)

var fetchDest string

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Download a published extract",
	Long:  "Downloads a ticket extract (typically a ZIP of shard CSVs) over http(s) or ftp with rate limiting; http requests are retried on transient failures. The URL defaults to source.url.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		rawURL := cfg.Source.URL
		if len(args) == 1 {
			rawURL = args[0]
		}
		if rawURL == "" {
			return eris.New("fetch: no url given and source.url is unset")
		}

		dest, err := fetchDestination(rawURL, fetchDest)
		if err != nil {
			return err
		}

		start := time.Now()
		n, err := newDownloader(cfg).DownloadToFile(cmd.Context(), rawURL, dest)
		if err != nil {
			return err
		}

		zap.L().Info("fetch complete",
			zap.String("url", rawURL),
			zap.String("dest", dest),
			zap.Int64("bytes", n),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Fprintln(cmd.OutOrStdout(), dest)
		return nil
	},
}

func newDownloader(c *config.Config) *source.Downloader {
	return source.NewDownloader(source.DownloadOptions{
		UserAgent:  c.Source.UserAgent,
		Timeout:    time.Duration(c.Source.TimeoutSecs) * time.Second,
		MaxRetries: c.Source.MaxRetries,
		RateLimit:  rate.Limit(c.Source.RequestsPerSec),
	})
}

// fetchDestination uses dest when set, else the last element of the URL path.
func fetchDestination(rawURL, dest string) (string, error) {
	if dest != "" {
		return dest, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetch: parse url")
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", eris.Errorf("fetch: cannot derive a file name from %q, pass --dest", rawURL)
	}
	return name, nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDest, "dest", "", "destination file (default: last URL path element)")
	rootCmd.AddCommand(fetchCmd)
}
