package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/josephlewis42/minsh/core"
	"github.com/josephlewis42/minsh/core/config"
	"github.com/josephlewis42/minsh/core/job"
	"github.com/josephlewis42/minsh/core/logger"
)

var (
	cfgPath    string
	reaperFlag string
	logPath    string
)

// loadConfig reads the configuration, falling back to the embedded defaults
// when no config.yaml exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(afero.NewOsFs(), cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// rootCmd starts the interactive shell when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "minsh",
	Short: "A small interactive job-control shell.",
	Long: `minsh is an interactive shell with pipelines, background execution and
job control: foreground children own the controlling terminal, and child
state changes are reaped either signal-driven or by polling.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if reaperFlag != "" {
			cfg.Reaper = reaperFlag
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		mode := job.ModeSignal
		if cfg.Reaper == config.ReaperPolling {
			mode = job.ModePolling
		}

		var events *logger.SessionLogger
		if logPath != "" {
			fd, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err != nil {
				return err
			}
			defer fd.Close()
			events = logger.NewJsonLinesLogRecorder(fd).NewSession()
		}

		session, err := job.NewSession(os.Stdin, os.Stdout, os.Stderr, mode)
		if err != nil {
			return err
		}

		sh, err := core.NewShell(cfg, session, events)
		if err != nil {
			return err
		}

		return sh.Run()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
	rootCmd.Flags().StringVar(&reaperFlag, "reaper", "", "child detection mode override: signal or polling")
	rootCmd.Flags().StringVar(&logPath, "log", "", "append session events to this JSON-lines file")
}
