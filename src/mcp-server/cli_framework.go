// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/helper/posix"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/logger"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server/templates"
)

// cliHelpData holds the data used to populate the CLI help template.
//
// Fields:
//   - ExeName: The name of the executable binary for command examples
//   - InstructionsFlagName: The formatted instructions flag name (e.g., "--instructions")
//   - ConfigFlagName: The formatted config flag name (e.g., "--config")
//   - HelpFlagName: The formatted help flag name (e.g., "--help")
type cliHelpData struct {
	ExeName              string
	InstructionsFlagName string
	ConfigFlagName       string
	HelpFlagName         string
}

// CLIFramework integrates Cobra CLI with MCP server capabilities.
//
// Key features:
//   - Dynamic executable naming based on actual binary path (not hardcoded)
//   - [Gopls-style] --instructions flag printing the workflows sent to MCP clients
//   - Configuration file support via --config flag or MCP_SANDBOX_CONFIG_FILE environment variable
//   - Default MCP server startup when no arguments are provided
//   - Graceful shutdown that releases every tracked container, browser and port stream
//
// [Gopls-style]: https://tip.golang.org/gopls/features/mcp#instructions-to-the-model
type CLIFramework struct {
	configFile string
	config     *Config
	embed      templates.EmbedFS
	version    string

	in  io.Reader
	out io.Writer
}

// NewCLIFramework creates a new CLI framework instance with MCP server integration.
//
// Configuration loading is deferred until the command runs so the --config
// flag can override configFile. A non-nil deps.Config skips loading entirely.
//
// Example usage:
//
//	framework := NewCLIFramework("", ServerDependencies{
//	    Embed:   templates.MagicEmbed,
//	    Version: version.Version,
//	})
//	if err := framework.BuildRootCommand().Execute(); err != nil {
//	    os.Exit(1)
//	}
func NewCLIFramework(configFile string, deps ServerDependencies) *CLIFramework {
	embed := deps.Embed
	if embed == nil {
		embed = templates.MagicEmbed
	}
	return &CLIFramework{
		configFile: configFile,
		config:     deps.Config,
		embed:      embed,
		version:    deps.Version,
		in:         os.Stdin,
		out:        os.Stdout,
	}
}

// BuildRootCommand creates the root Cobra command with integrated MCP server capabilities.
//
// Command behavior:
//   - With --instructions: Prints the server instructions for the loaded configuration and exits
//   - Without arguments: Starts the MCP server on stdio (default behavior)
//   - With arguments: Fails with an "unexpected arguments" error
func (cf *CLIFramework) BuildRootCommand() *cobra.Command {
	exeName := posix.GetExecutableName()

	rootCmd := &cobra.Command{
		Use:          exeName,
		Short:        "Docker, browser and documentation sandbox served over MCP",
		Version:      cf.version,
		SilenceUsage: true,
	}

	// Cobra normally adds this during Execute; it is needed earlier so the
	// help text can name it.
	rootCmd.Flags().BoolP("help", "h", false, "help for "+exeName)

	var showInstructions bool
	rootCmd.PersistentFlags().BoolVar(&showInstructions, "instructions", false, "print the usage workflows sent to MCP clients")
	rootCmd.PersistentFlags().StringVar(&cf.configFile, "config", cf.configFile, "path to MCP server configuration file (JSON or YAML)")

	instructionsFlagName, configFlagName, helpFlagName := extractFlagNames(rootCmd)

	longDesc, examples, err := cf.loadAndExecuteCLIHelpTemplate(exeName, instructionsFlagName, configFlagName, helpFlagName)
	if err != nil {
		// The template is embedded, so this only fails on a broken build.
		panic(fmt.Sprintf("failed to process CLI help template: %v", err))
	}
	rootCmd.Long = longDesc
	rootCmd.Example = examples

	rootCmd.RunE = cf.createRootCommandRunE(&showInstructions, exeName, rootCmd.RunE)
	rootCmd.SetIn(cf.in)
	rootCmd.SetOut(cf.out)

	return rootCmd
}

// loadAndExecuteCLIHelpTemplate renders cli_help.md and splits it into the
// Long description and the Examples section.
func (cf *CLIFramework) loadAndExecuteCLIHelpTemplate(exeName, instructionsFlagName, configFlagName, helpFlagName string) (longDesc, examples string, err error) {
	templateBytes, err := cf.embed.ReadFile("cli_help.md")
	if err != nil {
		return "", "", fmt.Errorf("failed to load CLI help template: %w", err)
	}

	tmpl, err := template.New("cli_help").Parse(string(templateBytes))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse CLI help template: %w", err)
	}

	var result strings.Builder
	if err := tmpl.Execute(&result, cliHelpData{
		ExeName:              exeName,
		InstructionsFlagName: instructionsFlagName,
		ConfigFlagName:       configFlagName,
		HelpFlagName:         helpFlagName,
	}); err != nil {
		return "", "", fmt.Errorf("failed to execute CLI help template: %w", err)
	}

	return cf.parseTemplateResult(result.String())
}

// parseTemplateResult parses the template execution result to extract Long description and Examples.
// It looks for the "## Examples" marker and splits the content accordingly.
//
// Returns:
//   - longDesc: The Long description text (everything before "## Examples")
//   - examples: The Examples section text (everything after "## Examples")
//   - err: Parsing errors if the template format is invalid
func (cf *CLIFramework) parseTemplateResult(templateResult string) (longDesc, examples string, err error) {
	const examplesMarker = "## Examples"
	markerIndex := strings.Index(templateResult, examplesMarker)
	if markerIndex == -1 {
		return "", "", fmt.Errorf("CLI help template has invalid format - missing '## Examples' section")
	}

	lineStart := strings.LastIndex(templateResult[:markerIndex], "\n")
	if lineStart == -1 {
		lineStart = 0
	} else {
		lineStart++
	}

	lineEnd := strings.Index(templateResult[markerIndex:], "\n")
	if lineEnd == -1 {
		lineEnd = len(templateResult)
	} else {
		lineEnd += markerIndex
	}

	longDesc = strings.TrimSpace(templateResult[:lineStart])
	examples = strings.TrimSpace(templateResult[lineEnd:])

	return longDesc, examples, nil
}

// extractFlagNames extracts formatted flag names from the root command.
// If a flag lookup fails, the default name is returned.
func extractFlagNames(rootCmd *cobra.Command) (instructionsFlagName, configFlagName, helpFlagName string) {
	instructionsFlagName = "--instructions"
	if f := rootCmd.PersistentFlags().Lookup("instructions"); f != nil {
		instructionsFlagName = "--" + f.Name
	}

	configFlagName = "--config"
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil {
		configFlagName = "--" + f.Name
	}

	helpFlagName = "--help"
	if f := rootCmd.Flags().Lookup("help"); f != nil {
		helpFlagName = "--" + f.Name
	}

	return instructionsFlagName, configFlagName, helpFlagName
}

// loadConfig returns the injected configuration or loads it from the
// --config path, falling back to MCP_SANDBOX_CONFIG_FILE.
func (cf *CLIFramework) loadConfig() (*Config, error) {
	if cf.config != nil {
		return cf.config, nil
	}
	config, err := loadConfig(cf.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cf.config = config
	return config, nil
}

// startMCPServer starts the MCP server directly without requiring a subcommand.
//
// SIGINT and SIGTERM trigger a graceful shutdown, which is reported as
// success. Tracked resources are released before it returns.
func (cf *CLIFramework) startMCPServer() error {
	config, err := cf.loadConfig()
	if err != nil {
		return err
	}
	l := lifecycleLogger(config, os.Stderr)
	if cf.version != "" {
		appVersion = cf.version
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, func() {
		l.Printf("\rReceived shutdown signal, releasing sandbox resources...")
	})

	l.Printf("%s MCP server started.", serverName)
	return serve(ctx, config, cf.in, cf.out)
}

// lifecycleLogger returns the logger for startup and shutdown notices.
// With JSON logging every stderr line must stay machine-readable, so the
// notices are written as JSON lines as well.
func lifecycleLogger(config *Config, w io.Writer) logger.Logger {
	if strings.EqualFold(config.Logging.Format, "json") {
		return logger.NewMCPLogger(w, false)
	}
	l := logger.NewCLILogger()
	l.SetOutput(w)
	return l
}

// printInstructions writes the server instructions for the tools that the
// loaded configuration enables, as MCP clients receive them.
//
// [gopls]: https://tip.golang.org/gopls/features/mcp#instructions-to-the-model
func (cf *CLIFramework) printInstructions() error {
	config, err := cf.loadConfig()
	if err != nil {
		return err
	}

	// Handlers are never invoked here, so no sandbox is needed.
	instructions, err := loadInstructions(createTools(config, newSandboxHandlers(nil, config)))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cf.out, instructions)
	return err
}

// createRootCommandRunE creates the RunE function for the root command.
// showInstructions is read at run time, after flag parsing.
func (cf *CLIFramework) createRootCommandRunE(showInstructions *bool, exeName string, originalRunE func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if *showInstructions {
			return cf.printInstructions()
		}
		if len(args) == 0 {
			return cf.startMCPServer()
		}
		if originalRunE != nil {
			return originalRunE(cmd, args)
		}
		return fmt.Errorf("unexpected arguments: %s for %q", strings.Join(args, " "), exeName)
	}
}
