package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for Cadence
var RootCmd = &cobra.Command{
	Use:              "cadence",
	Short:            "cadence proof-of-authority delta consensus",
	TraverseChildren: true,
}
