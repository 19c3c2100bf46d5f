package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vk/splode/internal/app"
	"github.com/vk/splode/internal/resolve"
)

// Process exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
	ExitPartial = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// NewRootCommand builds the command tree. Every tree has its own viper
// instance, so trees built in tests do not share settings.
func NewRootCommand(outW io.Writer) *cobra.Command {
	v := viper.New()
	app.SetDefaults(v)

	root := &cobra.Command{
		Use:   "splode",
		Short: "Decompose a datablock working file into linked external units",
		Long: `splode splits every datablock of a working file into its own unit file
below the project root (_<kinds>/<name>.<ext>) and rewires references into
links. Reference cycles are kept together in the unit of one carrier.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file (default is ./splode.yaml when present)")
	pf.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	bind(v, app.KeyLogLevel, pf.Lookup("log-level"))
	bind(v, app.KeyLogFormat, pf.Lookup("log-format"))

	root.AddCommand(
		newExplodeCommand(v),
		newCyclesCommand(v),
		newLsCommand(v),
		newResolveCycleCommand(v),
	)
	return root
}

func bind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag.Name, err))
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("%s: %v", cmd.CommandPath(), err)}
		}
		return nil
	}
}

// loadApp merges the configuration sources and builds the App.
func loadApp(cmd *cobra.Command, v *viper.Viper, workingFile string) (*app.App, error) {
	if err := readConfigFile(cmd, v); err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	app.BindEnv(v)

	raw, err := app.FromViper(v)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	raw.WorkingFile = workingFile
	cfg, err := app.NewConfig(raw)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("invalid configuration: %v", err)}
	}
	return app.NewApp(cmd.OutOrStdout(), cfg), nil
}

func readConfigFile(cmd *cobra.Command, v *viper.Viper) error {
	file, _ := cmd.Flags().GetString("config")
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName("splode")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read splode.yaml: %w", err)
		}
	}
	return nil
}

func newExplodeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explode WORKING_FILE",
		Short: "Extract every datablock of the working file into its own unit",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, v, args[0])
			if err != nil {
				return err
			}
			report, err := a.Explode(cmd.Context())
			if err != nil {
				return err
			}
			app.WriteReport(cmd.OutOrStdout(), report)

			if problems := report.Problems(); problems > 0 {
				return &ExitError{Code: ExitPartial, Message: fmt.Sprintf("decomposition finished with %d problem(s)", problems)}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("root", "//", "Unit root; '//' is the directory of the working file.")
	f.StringP("output", "o", "", "Write the rewired working file to this path.")
	f.Bool("resolve-cycles", false, "Split embedded cycle members out of their carrier unit afterwards.")
	f.Bool("in-process", false, "Run the secondary pass in this process instead of a child.")
	f.Duration("resolve-timeout", resolve.DefaultTimeout, "Hard timeout of one secondary pass.")
	f.String("executable", "", "Binary launched for the secondary pass (default: this binary).")
	bind(v, app.KeyRoot, f.Lookup("root"))
	bind(v, app.KeyOutput, f.Lookup("output"))
	bind(v, app.KeyResolveCycles, f.Lookup("resolve-cycles"))
	bind(v, app.KeyInProcess, f.Lookup("in-process"))
	bind(v, app.KeyResolveTimeout, f.Lookup("resolve-timeout"))
	bind(v, app.KeyExecutable, f.Lookup("executable"))
	return cmd
}

func newCyclesCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles WORKING_FILE",
		Short: "Preview the reference cycles of the working file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, v, args[0])
			if err != nil {
				return err
			}
			preview, err := a.Cycles(cmd.Context())
			if preview != nil {
				app.WriteCycles(cmd.OutOrStdout(), preview)
			}
			return err
		},
	}
	cmd.Flags().Int("limit", 10, "Number of raw cycles to show.")
	bind(v, app.KeyPreviewLimit, cmd.Flags().Lookup("limit"))
	return cmd
}

func newLsCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls PATH",
		Short: "List the datablocks and links of a unit file or a directory of units",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, v, "")
			if err != nil {
				return err
			}
			listings, err := a.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			app.WriteListing(cmd.OutOrStdout(), listings)
			return nil
		},
	}
	cmd.Flags().String("ext", "hcl", "Unit file extension when listing a directory.")
	bind(v, app.KeyUnitExtension, cmd.Flags().Lookup("ext"))
	return cmd
}

func newResolveCycleCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:    resolve.ChildCommand,
		Short:  "Run one secondary cycle resolution read from stdin",
		Hidden: true,
		Args:   exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, v, "")
			if err != nil {
				return err
			}
			status, err := a.ResolveCycle(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			if status != resolve.StatusOK {
				return &ExitError{Code: status.Code(), Message: status.String()}
			}
			return nil
		},
	}
}
