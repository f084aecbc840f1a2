package cmd

import "conductor/internal/api"

var startCmd = newTransitionCmd(transitionCommand{
	intent:   api.IntentStart,
	use:      "start",
	short:    "Start a service and wait until it is running",
	progress: "Starting",
	long: `Start a service on the remote control plane.

The start command is re-sent until the service reports RUNNING or the retry
budget of the kind is exhausted (10 attempts by default).

Examples:
  conductor start broker bk1 --group broker
  conductor start worker wk1 -g worker -o json`,
})

func init() {
	rootCmd.AddCommand(startCmd)
}
