// Command mjs is a minimal CLI around package jsctx: it evaluates a script
// file (or stdin) in a single sandboxed Context and prints the completion
// value.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/simonw/micro-javascript-sub000/jsctx"
)

func main() {
	var (
		memoryLimitBytes int
		timeLimit        float64
		configPath       string
		raw              bool
	)

	rootCmd := &cobra.Command{
		Use:           "mjs",
		Short:         "Evaluate sandboxed scripts",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	evalCmd := &cobra.Command{
		Use:   "eval [file]",
		Short: "Evaluate a script file, or stdin if no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args)
			if err != nil {
				return err
			}

			cfg, err := resolveConfig(configPath, memoryLimitBytes, timeLimit)
			if err != nil {
				return err
			}

			ctx := jsctx.NewContext(cfg)
			result, err := ctx.Eval(string(src))
			if err != nil {
				if jsErr, ok := err.(jsctx.JSError); ok {
					fmt.Fprintf(os.Stderr, "%s: %s\n", jsErr.JSName(), jsErr.Error())
					os.Exit(1)
				}
				return err
			}

			return printResult(result, raw)
		},
	}
	evalCmd.Flags().IntVar(&memoryLimitBytes, "memory-limit", 0, "coarse memory-estimate ceiling in bytes (0 = unbounded)")
	evalCmd.Flags().Float64Var(&timeLimit, "time-limit", 0, "wall-clock budget in seconds (0 = unbounded)")
	evalCmd.Flags().StringVar(&configPath, "config", "", "path to a JSON or YAML resource-limit config (overrides --memory-limit/--time-limit)")
	evalCmd.Flags().BoolVar(&raw, "raw", false, "print the result as a bare string instead of JSON")

	rootCmd.AddCommand(evalCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readSource(args []string) ([]byte, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", args[0], err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}

func resolveConfig(path string, memoryLimitBytes int, timeLimit float64) (*jsctx.ResourceConfig, error) {
	if path == "" {
		if memoryLimitBytes == 0 && timeLimit == 0 {
			return nil, nil
		}
		return &jsctx.ResourceConfig{MemoryLimitBytes: memoryLimitBytes, TimeLimitSecs: timeLimit}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	switch ext := extOf(path); ext {
	case ".yaml", ".yml":
		return jsctx.LoadResourceConfigYAML(data)
	default:
		return jsctx.LoadResourceConfigJSON(data)
	}
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

func printResult(result any, raw bool) error {
	if raw {
		if s, ok := result.(string); ok {
			fmt.Println(s)
			return nil
		}
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		fmt.Printf("%v\n", result)
		return nil
	}
	fmt.Println(string(encoded))
	return nil
}
