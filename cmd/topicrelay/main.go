package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relayforge/topicrelay/cmd/topicrelay/internal"
	"github.com/relayforge/topicrelay/cmd/topicrelay/internal/serve"
	"github.com/relayforge/topicrelay/cmd/topicrelay/internal/version"
)

func NewTopicrelayCommand() *cobra.Command {
	short := fmt.Sprintf("topicrelay - multi-tenant feedback relay v%s", internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "topicrelay",
		Short:   short,
		Example: "topicrelay serve",
	}

	cmd.AddCommand(
		serve.NewServeCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewTopicrelayCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
