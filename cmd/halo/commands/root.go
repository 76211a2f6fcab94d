package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

// RootCmd is the root command for halo
var RootCmd = &cobra.Command{
	Use:              "halo",
	Short:            "halo space credentials node",
	TraverseChildren: true,
}
