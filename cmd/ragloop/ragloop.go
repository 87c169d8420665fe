// Package ragloopcmder is the root ragloop command.
package ragloopcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/ragloop/cmd/ragloop/chat"
	configcmder "github.com/papercomputeco/ragloop/cmd/ragloop/config"
	ingestcmder "github.com/papercomputeco/ragloop/cmd/ragloop/ingest"
	searchcmder "github.com/papercomputeco/ragloop/cmd/ragloop/search"
	servecmder "github.com/papercomputeco/ragloop/cmd/ragloop/serve"
	tracescmder "github.com/papercomputeco/ragloop/cmd/ragloop/traces"
	versioncmder "github.com/papercomputeco/ragloop/cmd/version"
	"github.com/papercomputeco/ragloop/pkg/config"
)

const ragloopLongDesc string = `ragloop answers questions with retrieval-augmented generation.

Each question is embedded, the closest documents are pulled from a vector
index, and a chat model answers with those documents as context. Every
exchange can be recorded to an observability sink.

Common commands:
  ragloop serve --ingest ./docs    Load a directory and run the API server
  ragloop chat                     Chat with the knowledge base in the terminal
  ragloop ingest ./docs            Load documents into a persistent vector store
  ragloop search "query"           Search a running server
  ragloop traces                   Show recorded exchanges`

const ragloopShortDesc string = "ragloop - retrieval-augmented chat"

func NewRagloopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ragloop",
		Short:        ragloopShortDesc,
		Long:         ragloopLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String(config.FlagConfigDir, "", "Override the .ragloop/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(tracescmder.NewTracesCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
