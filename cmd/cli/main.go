package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iho/financeager/internal/cli"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/infrastructure/config"
	"github.com/iho/financeager/internal/infrastructure/logger"
	"github.com/iho/financeager/internal/transport"
)

const (
	exitFailure     = 1
	exitUsageOrConf = 2
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(exitUsageOrConf)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newApp(cfg, os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	stop()

	os.Exit(code)
}

type app struct {
	cfg      *config.Config
	out      io.Writer
	errOut   io.Writer
	newProxy func(transport.Config) (transport.Proxy, error)

	backend  string
	period   string
	stacked  bool
	logLevel string

	exitCode int
}

func newApp(cfg *config.Config, out, errOut io.Writer) *app {
	return &app{
		cfg:      cfg,
		out:      out,
		errOut:   errOut,
		newProxy: transport.New,
	}
}

// execute runs the command line args and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(escapeNegativeNumbers(args))
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		return exitUsageOrConf
	}
	return a.exitCode
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "financeager",
		Short:        "Personal ledger",
		Long:         `Record dated, categorized expenses and earnings and list them per period.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&a.backend, "backend", "b", a.cfg.Backend, "Backend to run commands on (none, local, rpc, grpc, http)")
	root.PersistentFlags().StringVarP(&a.period, "period", "p", "", "Period to operate on (default: current year)")
	root.PersistentFlags().BoolVarP(&a.stacked, "stacked-layout", "s", a.cfg.StackedLayout, "List earnings and expenses in separate sections")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "disabled", "Diagnostic log level written to stderr (debug, info, warn, error, disabled)")

	root.AddCommand(
		a.startCmd(),
		a.stopCmd(),
		a.addCmd(),
		a.entryCmd(domain.CommandRemove, "Remove an entry"),
		a.entryCmd(domain.CommandGet, "Show an entry"),
		a.updateCmd(),
		a.listCmd(),
		a.periodsCmd(),
	)

	return root
}

func (a *app) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   domain.CommandStart,
		Short: "Serve the ledger over gRPC until stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch(cmd.Context(), domain.CommandStart, domain.Params{})
		},
	}
}

func (a *app) stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   domain.CommandStop,
		Short: "Stop the ledger service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch(cmd.Context(), domain.CommandStop, domain.Params{})
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	var category, date string

	cmd := &cobra.Command{
		Use:   "add NAME VALUE",
		Short: "Add an entry; negative values are expenses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := domain.Params{"name": args[0], "value": args[1]}
			setIfChanged(cmd, params, "category", category)
			setIfChanged(cmd, params, "date", date)
			return a.dispatch(cmd.Context(), domain.CommandAdd, params)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category of the entry")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date of the entry (YYYY-MM-DD or MM-DD, default: today)")

	return cmd
}

func (a *app) entryCmd(command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command + " EID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch(cmd.Context(), command, domain.Params{"eid": args[0]})
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	var name, value, category, date string

	cmd := &cobra.Command{
		Use:   "update EID",
		Short: "Change fields of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := domain.Params{"eid": args[0]}
			setIfChanged(cmd, params, "name", name)
			setIfChanged(cmd, params, "value", value)
			setIfChanged(cmd, params, "category", category)
			setIfChanged(cmd, params, "date", date)
			return a.dispatch(cmd.Context(), domain.CommandUpdate, params)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	cmd.Flags().StringVarP(&value, "value", "v", "", "New value")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category")
	cmd.Flags().StringVarP(&date, "date", "d", "", "New date")

	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var name, category, date string

	cmd := &cobra.Command{
		Use:   domain.CommandList,
		Short: "List the entries of a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := domain.Params{}
			setIfChanged(cmd, params, "name", name)
			setIfChanged(cmd, params, "category", category)
			setIfChanged(cmd, params, "date", date)
			return a.dispatch(cmd.Context(), domain.CommandList, params)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Only entries whose name contains this")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only categories whose name contains this")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Only entries whose date contains this")

	return cmd
}

func (a *app) periodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   domain.CommandPeriods,
		Short: "List the known periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch(cmd.Context(), domain.CommandPeriods, domain.Params{})
		},
	}
}

// dispatch runs command on the selected backend. Command and transport
// failures are printed by the dispatcher and only set the exit code; an
// unknown backend is a configuration error.
func (a *app) dispatch(ctx context.Context, command string, params domain.Params) error {
	backend, err := transport.ParseBackend(a.backend)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  a.logLevel,
		Format: a.cfg.LogFormat,
		Output: a.errOut,
	})

	proxy, err := a.newProxy(transport.ConfigFromAppConfig(a.cfg, backend, log))
	if err != nil {
		return err
	}
	defer proxy.Close()

	if a.period != "" {
		params["period"] = a.period
	}

	d := cli.NewDispatcher(proxy, cli.Options{
		Backend: backend,
		Layout:  a.cfg.Layout.Domain(),
		Stacked: a.stacked,
		Out:     a.out,
		Err:     a.errOut,
		Logger:  log,
	})

	if outcome := d.Run(ctx, command, params); outcome != cli.OutcomeOK {
		a.exitCode = exitFailure
	}
	return nil
}

func setIfChanged(cmd *cobra.Command, params domain.Params, flag, value string) {
	if cmd.Flags().Changed(flag) {
		params[flag] = value
	}
}

// escapeNegativeNumbers moves positional negative amounts such as "-2.5"
// behind a "--" terminator so that they are not parsed as shorthand flags.
// Values of flags ("--value -3") stay in place.
func escapeNegativeNumbers(args []string) []string {
	var kept, moved []string

	for i, arg := range args {
		if arg == "--" {
			return args
		}
		if isNegativeNumber(arg) && !followsValueFlag(args, i) {
			moved = append(moved, arg)
			continue
		}
		kept = append(kept, arg)
	}

	if len(moved) == 0 {
		return args
	}
	return append(append(kept, "--"), moved...)
}

func isNegativeNumber(arg string) bool {
	if !strings.HasPrefix(arg, "-") {
		return false
	}
	_, err := strconv.ParseFloat(arg, 64)
	return err == nil
}

// boolFlags take no value, so a number following them is positional.
var boolFlags = map[string]bool{"--stacked-layout": true, "-s": true, "--help": true, "-h": true}

func followsValueFlag(args []string, i int) bool {
	if i == 0 {
		return false
	}
	prev := args[i-1]
	if !strings.HasPrefix(prev, "-") || strings.Contains(prev, "=") || isNegativeNumber(prev) {
		return false
	}
	return !boolFlags[prev]
}
