package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/strcalc/internal/calculator"
	"github.com/example/strcalc/internal/config"
	"github.com/example/strcalc/internal/logging"
	"github.com/example/strcalc/internal/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var negErr *calculator.NegativeNumbersError
		if !errors.As(err, &negErr) {
			fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error: ")+err.Error())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "strcalc",
		Short:         "String calculator",
		Long: `strcalc sums the integers embedded in a delimited string.

Inputs may declare their own delimiters on a first line starting with "//",
for example "//;\n1;2". Numbers above 1000 are ignored and negative numbers
are rejected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newAddCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				_ = json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "strcalc version %s\n", version)
		},
	}
}

type addOutput struct {
	Input      string   `json:"input"`
	Sum        int      `json:"sum"`
	Delimiters []string `json:"delimiters,omitempty"`
	Numbers    []int    `json:"numbers,omitempty"`
	Ignored    []int    `json:"ignored,omitempty"`
	Negatives  []int    `json:"negatives,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func newAddCmd() *cobra.Command {
	var (
		fromStdin bool
		unescape  bool
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "add [input]",
		Short: "Sum the numbers in an input string",
		Example: `  strcalc add "1,2,5"
  strcalc add '//$,@\n1$2@3'
  printf '//;\n1;2' | strcalc add --stdin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd.InOrStdin(), args, fromStdin)
			if err != nil {
				return err
			}
			if unescape && !fromStdin {
				input = unescapeInput(input)
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			return runAdd(cmd.OutOrStdout(), cmd.ErrOrStderr(), input, jsonOut, verbose)
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the input from stdin")
	cmd.Flags().BoolVar(&unescape, "unescape", true, `Treat literal \n in the argument as a newline`)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show delimiters, summed and ignored numbers")
	return cmd
}

func readInput(stdin io.Reader, args []string, fromStdin bool) (string, error) {
	if fromStdin {
		if len(args) > 0 {
			return "", fmt.Errorf("cannot combine --stdin with an argument")
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSuffix(string(b), "\n"), nil
	}
	if len(args) == 0 {
		return "", nil
	}
	return args[0], nil
}

func unescapeInput(s string) string {
	return strings.NewReplacer(`\r\n`, "\n", `\n`, "\n").Replace(s)
}

func runAdd(stdout, stderr io.Writer, input string, jsonOut, verbose bool) error {
	res, err := calculator.New().Evaluate(input)
	out := addOutput{Input: input, Sum: res.Sum, Numbers: res.Numbers, Ignored: res.Ignored}
	for _, r := range res.Delimiters {
		out.Delimiters = append(out.Delimiters, string(r))
	}
	if err != nil {
		var negErr *calculator.NegativeNumbersError
		if errors.As(err, &negErr) {
			out.Negatives = negErr.Numbers
		}
		out.Error = err.Error()
	}

	if jsonOut {
		if encErr := json.NewEncoder(stdout).Encode(out); encErr != nil {
			return encErr
		}
		return err
	}
	if err != nil {
		fmt.Fprintln(stderr, color.New(color.FgRed).Sprint("error: ")+err.Error())
		return err
	}
	fmt.Fprintln(stdout, res.Sum)
	if verbose {
		dim := color.New(color.FgHiBlack)
		fmt.Fprintln(stdout, dim.Sprintf("delimiters: %q", out.Delimiters))
		fmt.Fprintln(stdout, dim.Sprintf("numbers:    %v", res.Numbers))
		if len(res.Ignored) > 0 {
			fmt.Fprintln(stdout, color.New(color.FgYellow).Sprintf("ignored:    %v (above %d)", res.Ignored, calculator.MaxValue))
		}
	}
	return nil
}

func newServeCmd() *cobra.Command {
	var (
		port    string
		devKeys []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, cfg, logger, devKeys...)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")
	cmd.Flags().StringSliceVar(&devKeys, "dev-key", nil, "Accept this API key when mongo is not configured (repeatable)")
	return cmd
}
