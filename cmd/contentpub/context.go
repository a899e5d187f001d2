package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"contentpub/internal/config"
	"contentpub/internal/logging"
	"contentpub/internal/prompt"
	"contentpub/internal/workflow"
)

type globalFlags struct {
	config  string
	verbose bool
	yes     bool
	dir     string
	env     string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg, c.flags.verbose)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// prompter asks on the terminal when stdin is interactive and no answers
// were supplied as flags; otherwise it answers from the flags.
func (c *commandContext) prompter(cmd *cobra.Command) prompt.Prompter {
	scripted := c.flags.yes || c.flags.dir != "" || c.flags.env != ""
	if !scripted && prompt.IsInteractive(os.Stdin) && isStdout(cmd.OutOrStdout()) {
		return prompt.NewTerminal()
	}
	return &prompt.Scripted{
		Directory:   c.flags.dir,
		Environment: c.flags.env,
		Yes:         c.flags.yes,
		Out:         cmd.OutOrStdout(),
	}
}

func isStdout(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout
}

// withManager runs fn with a workflow manager that is closed afterwards.
func (c *commandContext) withManager(cmd *cobra.Command, fn func(*workflow.Manager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	mgr := workflow.NewManager(cfg, c.prompter(cmd), logger)
	defer mgr.Close()
	return fn(mgr)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
