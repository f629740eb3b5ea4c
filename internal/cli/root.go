// Package cli implements the dashboard command: the web server and the
// terminal commands that manage users and products directly.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"admin-dashboard/internal/config"
	"admin-dashboard/internal/logging"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	usersURL    string
	productsURL string
	logLevel    string
	logFormat   string
}

// load resolves the configuration file, the environment and the flags, in
// that order of increasing precedence.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.usersURL != "" {
		cfg.UsersAPIURL = o.usersURL
	}
	if o.productsURL != "" {
		cfg.ProductsAPIURL = o.productsURL
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Admin dashboard for the users and products APIs",
		Long: `dashboard manages the records of two REST APIs: users and products.

"dashboard serve" runs the web dashboard. The users and products commands
list, add, edit and delete records straight from the terminal.

Configuration is read from an optional YAML file (--config), then from the
environment (USERS_API_URL, PRODUCTS_API_URL, ...), then from flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML configuration file")
	flags.StringVar(&opts.usersURL, "users-url", "", "Base URL of the users API")
	flags.StringVar(&opts.productsURL, "products-url", "", "Base URL of the products API")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(
		newServeCmd(opts),
		newUsersCmd(opts),
		newProductsCmd(opts),
	)
	return cmd
}

// reportedError marks an error whose message the user has already seen as
// a notification.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
