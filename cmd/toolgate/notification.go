package main

import (
	"maps"

	"github.com/spf13/cobra"

	"github.com/armatrix/toolgate/hook"
	"github.com/armatrix/toolgate/internal/config"
	"github.com/armatrix/toolgate/internal/hookexec"
)

var notificationCmd = &cobra.Command{
	Use:   "notification",
	Short: "Handle a Notification payload from stdin",
	Long: `Reads one Notification JSON payload from stdin and runs the configured
notification hooks with TOOLGATE_MESSAGE exported into each command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		payload, err := hook.Decode(cmd.InOrStdin())
		if err != nil {
			return err
		}

		root := resolveProjectDir(payload.Cwd)
		settings, err := config.Load(config.DefaultPaths(root)...)
		if err != nil {
			return err
		}

		env := maps.Clone(settings.Env)
		if env == nil {
			env = map[string]string{}
		}
		env["TOOLGATE_MESSAGE"] = payload.Message

		runner := hookexec.New(env, logger)
		for _, res := range runner.RunAll(cmd.Context(), settings.NotificationHooks) {
			logger.Debug("notification hook finished",
				"command", res.Command, "exit", res.ExitCode, "duration", res.Duration)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notificationCmd)
}
