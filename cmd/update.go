package cmd

import "conductor/internal/api"

var updateCmd = newTransitionCmd(transitionCommand{
	intent:   api.IntentUpdate,
	use:      "update",
	short:    "Update the settings of a service",
	progress: "Updating",
	long: `Update the settings of a service. Values are parsed as YAML, so numbers and
lists keep their type.

Examples:
  conductor update broker bk1 -g broker --set xmx=2048
  conductor update worker wk1 -g worker --set 'freePorts=[5000,5001]'`,
})

func init() {
	rootCmd.AddCommand(updateCmd)
}
