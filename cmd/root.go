package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"testplan/internal/api"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeNotFound indicates an unknown task id or project.
	ExitCodeNotFound = 2
	// ExitCodeImportFailed indicates an awaited import ended in the failed state.
	ExitCodeImportFailed = 3
)

// rootCmd represents the base command for the testplan application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "testplan",
	Short: "Import feature trees as versioned test plans",
	Long: `testplan turns Gherkin-style feature trees into versioned test plans on
Azure DevOps / TFS. Major and minor versions get a new plan next to the old
ones; patch releases and re-imports replace the current plan.

Run 'testplan serve' to start the import service, then submit and follow
imports with 'testplan import', 'testplan status' and 'testplan tasks'.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "testplan version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var failed *ImportFailedError
	if errors.As(err, &failed) {
		return ExitCodeImportFailed
	}

	if api.IsNotFound(err) {
		return ExitCodeNotFound
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newPlansCmd())
	rootCmd.AddCommand(newDecideCmd())
	rootCmd.AddCommand(newClassifyCmd())
}
