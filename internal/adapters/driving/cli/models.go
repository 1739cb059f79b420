package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models offered by post-processing providers",
}

var modelsListCmd = &cobra.Command{
	Use:   "list [provider]",
	Short: "List models, fetching them when none are cached",
	Long: `List the models of a provider. The selected provider is used when none
is given. A cached list is shown when available; otherwise it is fetched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModels(cmd, args, false)
	},
}

var modelsRefreshCmd = &cobra.Command{
	Use:   "refresh [provider]",
	Short: "Fetch the model list of a provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModels(cmd, args, true)
	},
}

func init() {
	modelsCmd.PersistentFlags().BoolVar(&modelsJSON, "json", false, "output as JSON")
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsRefreshCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string, force bool) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	providerID := store.Snapshot().Text(domain.KeyPostProcessProviderID)
	if len(args) == 1 {
		providerID = args[0]
	}
	if providerID == "" {
		return errors.New("no provider selected; pass one or run 'scribe provider use <provider>'")
	}

	models, cached := store.GetModels(providerID)
	if force || !cached {
		refresh, err := store.RefreshModels(cmd.Context(), providerID)
		if err != nil {
			return err
		}
		if refresh.Stale {
			return errors.New("model list changed while fetching; try again")
		}
		models = refresh.Models
	}

	if modelsJSON {
		if models == nil {
			models = []string{}
		}
		return writeJSON(cmd, models)
	}

	selected := store.Snapshot().StringMap(domain.KeyPostProcessModels)[providerID]
	if len(models) == 0 {
		cmd.Printf("No models available for %s\n", providerID)
		return nil
	}
	for _, m := range models {
		marker := " "
		if m == selected {
			marker = "*"
		}
		cmd.Printf("%s %s\n", marker, m)
	}
	return nil
}
