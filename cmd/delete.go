package cmd

import "conductor/internal/api"

var deleteCmd = newTransitionCmd(transitionCommand{
	intent:   api.IntentDelete,
	use:      "delete",
	short:    "Delete a service and wait until it is gone",
	progress: "Deleting",
	long: `Delete a service on the remote control plane.

The delete command is re-sent until the service is no longer found.

Examples:
  conductor delete topic t1 --group topic`,
})

func init() {
	rootCmd.AddCommand(deleteCmd)
}
