package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/flowbind"
	"github.com/wippyai/flowbind/locator"
	"github.com/wippyai/flowbind/native"
	_ "github.com/wippyai/flowbind/native/dylib"
	"github.com/wippyai/flowbind/native/wasm"
	"github.com/wippyai/flowbind/runtime"
)

type options struct {
	config      string
	driver      string
	lib         string
	verbose     bool
	interactive bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "flowrun [-i FILE]",
		Short:         "Inspect and call Flow modules through the native runtime",
		Version:       flowbind.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.interactive {
				return cmd.Help()
			}
			if len(args) != 1 {
				return fmt.Errorf("interactive mode needs a source file")
			}
			return runInteractive(cmd.Context(), opts, args[0])
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.config, "config", "", "locator config file (YAML)")
	flags.StringVar(&opts.driver, "driver", "", "native driver: "+strings.Join(native.Drivers(), ", "))
	flags.StringVar(&opts.lib, "lib", "", "load the runtime library from this path")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log library loading and releases")
	root.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse and call functions in a TUI")

	root.AddCommand(
		newInspectCmd(opts),
		newCallCmd(opts),
		newDriversCmd(),
	)
	return root
}

func setupLogging(verbose bool) error {
	log := zap.NewNop()
	if verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	locator.SetLogger(log)
	runtime.SetLogger(log)
	wasm.SetLogger(log)
	return nil
}

// openRuntime builds a locator from the flags and creates a runtime.
func openRuntime(ctx context.Context, opts *options) (*runtime.Runtime, error) {
	cfg, err := locator.LoadConfig(opts.config)
	if err != nil {
		return nil, err
	}
	if opts.driver != "" {
		cfg.Driver = opts.driver
	}
	if opts.lib != "" {
		cfg.Path = opts.lib
	}
	return runtime.New(ctx, runtime.WithLocator(locator.New(cfg)))
}

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the functions a source file declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, opts)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			mod, err := rt.LoadFile(ctx, args[0])
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			out, err := mod.Inspect()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))
			return nil
		},
	}
}

func newCallCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "call FILE FUNC [ARGS...]",
		Short: "Call a function; arguments are parsed by declared parameter type",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, opts)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			mod, err := rt.LoadFile(ctx, args[0])
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			info, err := mod.Info(args[1])
			if err != nil {
				return err
			}
			callArgs, err := parseArgs(info, args[2:])
			if err != nil {
				return err
			}

			result, err := mod.Invoke(ctx, rt, info.Name, callArgs...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatResult(result))
			return nil
		},
	}
}

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List the registered native drivers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range native.Drivers() {
				marker := " "
				if name == native.DefaultDriver {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
		},
	}
}
