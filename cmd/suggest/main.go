// Command suggest prints the keywords Imagga suggests for local files. It
// reads the same environment and settings file as the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/chinmina/imagga-bridge/internal/config"
	"github.com/chinmina/imagga-bridge/internal/imagga"
	"github.com/chinmina/imagga-bridge/internal/resource"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var locale string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "suggest [flags] <file>...",
		Short: "Print keyword suggestions for image files",
		Long: `Uploads each file to Imagga and prints the suggested keywords, one per
line, as "<confidence><TAB><keyword>".

Configuration is read from the environment (IMAGGA_BASIC_AUTH_KEY and
friends) and from IMAGGA_SETTINGS_FILE when set.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(cmd.ErrOrStderr(), verbose)

			tag, err := parseLocale(locale)
			if err != nil {
				return err
			}

			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("error reading config: %w", err)
			}

			return run(cmd.Context(), cfg, tag, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&locale, "locale", "l", "", "language of the keywords, as a BCP 47 tag (default: English)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log requests and cache activity")

	return cmd
}

func run(ctx context.Context, cfg config.Config, locale language.Tag, paths []string, out io.Writer) error {
	client := &http.Client{
		Timeout: time.Duration(cfg.Server.OutgoingHTTPTimeoutSeconds) * time.Second,
	}

	factory, caches, err := imagga.Setup(ctx, cfg.Cache, imagga.WithHTTPClient(client))
	if err != nil {
		return err
	}
	defer caches.Close()

	adapter, err := factory.Create(cfg.Imagga.Settings)
	if err != nil {
		return err
	}

	for _, path := range paths {
		res, err := resource.OpenFile(path)
		if err != nil {
			return err
		}

		keywords, err := adapter.Keywords(ctx, res, locale)
		if err != nil {
			var ierr *imagga.Error
			if errors.As(err, &ierr) {
				return fmt.Errorf("%s: %s", path, ierr.Message())
			}
			return fmt.Errorf("%s: %w", path, err)
		}

		if len(paths) > 1 {
			fmt.Fprintf(out, "==> %s <==\n", path)
		}
		for _, k := range keywords {
			fmt.Fprintf(out, "%.2f\t%s\n", k.Confidence, k.Text)
		}
	}

	return nil
}

func parseLocale(value string) (language.Tag, error) {
	if value == "" {
		return language.Und, nil
	}

	tag, err := language.Parse(value)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", value, err)
	}
	return tag, nil
}

func configureLogging(w io.Writer, verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).
		Level(level).
		With().Timestamp().Logger()
}
