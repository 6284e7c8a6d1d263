package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cangate-io/cangate/pkg/log"
)

// Options abstracts an application's configuration: flag registration,
// completion of derived defaults and validation before the run function
// is invoked.
type Options interface {
	// AddFlags binds the options to the given flag set.
	AddFlags(fs *pflag.FlagSet)

	// Complete fills in any fields that are derived from other fields.
	Complete() error

	// Validate checks the options and returns an aggregated error.
	Validate() error
}

// RunFunc is the application's run callback. The context is cancelled on
// SIGINT/SIGTERM.
type RunFunc func(ctx context.Context) error

// App is a thin wrapper around cobra that standardizes option handling,
// config-file loading and signal-aware shutdown for cangate binaries.
type App struct {
	name        string
	short       string
	description string
	opts        Options
	run         RunFunc
	subcommands []*cobra.Command

	configFile string
	cmd        *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithDescription sets the long description shown in help output.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions binds an Options implementation to the App.
func WithOptions(opts Options) Option {
	return func(a *App) { a.opts = opts }
}

// WithRunFunc sets the application's run callback.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.run = run }
}

// WithSubcommands attaches additional cobra subcommands.
func WithSubcommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.subcommands = append(a.subcommands, cmds...) }
}

// NewApp creates a new App with the given name and short description.
func NewApp(name, short string, options ...Option) *App {
	a := &App{
		name:  name,
		short: short,
	}
	for _, o := range options {
		o(a)
	}
	a.cmd = a.buildCommand()
	return a
}

func (a *App) buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.short,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand(cmd)
		},
	}

	if a.opts != nil {
		a.opts.AddFlags(cmd.Flags())
	}
	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "",
		"Path to the configuration file (YAML). Flags take precedence.")

	for _, sub := range a.subcommands {
		cmd.AddCommand(sub)
	}

	return cmd
}

func (a *App) runCommand(cmd *cobra.Command) error {
	if a.opts != nil {
		if err := a.loadConfig(cmd.Flags()); err != nil {
			return err
		}
		if err := a.opts.Complete(); err != nil {
			return err
		}
		if err := a.opts.Validate(); err != nil {
			return err
		}
	}

	if a.run == nil {
		return nil
	}

	ctx := SetupSignalContext()
	return a.run(ctx)
}

// loadConfig merges an optional YAML config file underneath the flag values.
// Values set explicitly on the command line always win.
func (a *App) loadConfig(fs *pflag.FlagSet) error {
	v := viper.New()

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("/etc/%s", a.name))
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one is not.
		if a.configFile != "" {
			return fmt.Errorf("failed to read config file %s: %w", a.configFile, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		return nil
	}

	log.Debug("Loaded configuration file", "file", v.ConfigFileUsed())

	// Apply file values only for flags the user did not set explicitly.
	var applyErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if applyErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			applyErr = fmt.Errorf("invalid config value for %s: %w", f.Name, err)
		}
	})

	return applyErr
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the application and exits non-zero on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.name, err)
		os.Exit(1)
	}
}
