package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	projectDir string
	verbose    bool
	quietFlag  bool
	jsonFlag   bool
	fromDBFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "symdex",
	Short: "symdex - Rust symbol and documentation index",
	Long: `symdex extracts the items of a Rust crate (modules, types, traits, impls,
functions, constants, macros) together with their doc comments, resolves
pub use re-exports, and answers questions about them from the command line
or over MCP.

The crate is read from the current directory unless --dir is given. Settings
come from .symdex/config.yml and SYMDEX_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <dir>/.symdex/config.yml)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "crate root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress bars and non-error output")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&fromDBFlag, "from-db", false, "answer from the last stored snapshot instead of analysing the sources")
}

// globalOptions collects the persistent flags for the run helpers.
func globalOptions() options {
	return options{
		ConfigFile: cfgFile,
		Verbose:    verbose,
		Quiet:      quietFlag,
		JSON:       jsonFlag,
		FromDB:     fromDBFlag,
	}
}

// dirArg returns the optional [dir] positional argument, falling back to --dir.
func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return projectDir
}
