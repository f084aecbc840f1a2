package cmd

import "conductor/internal/api"

var createCmd = newTransitionCmd(transitionCommand{
	intent:   api.IntentCreate,
	use:      "create",
	short:    "Create a service from its workspace spec",
	progress: "Creating",
	long: `Create a service from the spec stored in a workspace file.

Nothing is created when the service already exists.

Examples:
  conductor create broker bk1 --group broker --workspace ws1`,
})

func init() {
	rootCmd.AddCommand(createCmd)
}
