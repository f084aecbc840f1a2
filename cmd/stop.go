package cmd

import "conductor/internal/api"

var stopCmd = newTransitionCmd(transitionCommand{
	intent:   api.IntentStop,
	use:      "stop",
	short:    "Stop a service and wait until it reports no state",
	progress: "Stopping",
	long: `Stop a service on the remote control plane.

The stop command is re-sent until the service reports no state. A service
that does not exist counts as stopped.

Examples:
  conductor stop worker wk1 --group worker
  conductor stop stream st1 -g default -q`,
})

func init() {
	rootCmd.AddCommand(stopCmd)
}
