package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

const verifyTimeout = 10 * time.Second

var (
	providerVerify bool
	providerKey    string
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Configure post-processing providers",
	Long:  `Select the post-processing provider and set its API key, base URL and model.`,
	RunE:  runProviderList,
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers",
	RunE:  runProviderList,
}

var providerUseCmd = &cobra.Command{
	Use:   "use <provider>",
	Short: "Select the provider used for post-processing",
	Args:  cobra.ExactArgs(1),
	RunE:  runProviderUse,
}

var providerAPIKeyCmd = &cobra.Command{
	Use:   "api-key <provider>",
	Short: "Set the API key of a provider",
	Long: `Set the API key of a provider. The key is read from the terminal without
echo unless --key is given. An empty key clears the stored key.

With --verify the provider is contacted before the key is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runProviderAPIKey,
}

var providerBaseURLCmd = &cobra.Command{
	Use:   "base-url <provider> <url>",
	Short: "Set the base URL of a self-hosted provider",
	Args:  cobra.ExactArgs(2),
	RunE:  runProviderBaseURL,
}

var providerModelCmd = &cobra.Command{
	Use:   "model <provider> <model>",
	Short: "Select the model of a provider",
	Args:  cobra.ExactArgs(2),
	RunE:  runProviderModel,
}

func init() {
	providerAPIKeyCmd.Flags().BoolVar(&providerVerify, "verify", false, "check the key against the provider before saving")
	providerAPIKeyCmd.Flags().StringVar(&providerKey, "key", "", "API key (read from the terminal when omitted)")

	providerCmd.AddCommand(providerListCmd)
	providerCmd.AddCommand(providerUseCmd)
	providerCmd.AddCommand(providerAPIKeyCmd)
	providerCmd.AddCommand(providerBaseURLCmd)
	providerCmd.AddCommand(providerModelCmd)
	rootCmd.AddCommand(providerCmd)
}

func runProviderList(cmd *cobra.Command, _ []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	snap := store.Snapshot()
	selected := snap.Text(domain.KeyPostProcessProviderID)
	keys := snap.StringMap(domain.KeyPostProcessAPIKeys)
	models := snap.StringMap(domain.KeyPostProcessModels)

	for _, p := range snap.Providers() {
		marker := " "
		if p.ID == selected {
			marker = "*"
		}
		cmd.Printf("%s %-12s %s\n", marker, p.ID, p.Label)
		cmd.Printf("    Base URL: %s\n", p.BaseURL)
		if p.RequiresAPIKey {
			if keys[p.ID] != "" {
				cmd.Printf("    API Key:  %s\n", domain.MaskSecret(keys[p.ID]))
			} else {
				cmd.Println("    API Key:  (not set)")
			}
		}
		if models[p.ID] != "" {
			cmd.Printf("    Model:    %s\n", models[p.ID])
		}
	}
	return nil
}

func runProviderUse(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	if _, ok := store.Snapshot().Provider(args[0]); !ok {
		return fmt.Errorf("%w: %s", domain.ErrProviderNotFound, args[0])
	}
	pending := store.UpdateSetting(cmd.Context(), domain.KeyPostProcessProviderID, domain.String(args[0]))
	if err := awaitUpdate(cmd, pending); err != nil {
		return err
	}
	cmd.Printf("Post-processing provider set to %s\n", args[0])
	return nil
}

func runProviderAPIKey(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	provider, ok := store.Snapshot().Provider(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrProviderNotFound, args[0])
	}

	apiKey := providerKey
	if !cmd.Flags().Changed("key") {
		cmd.Printf("Enter API key for %s: ", provider.Label)
		apiKey = readSecret(cmd)
	}

	if providerVerify && apiKey != "" {
		if wiring == nil || wiring.Validator == nil {
			return errors.New("provider verification not configured")
		}
		cmd.Print("Validating key... ")
		ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
		err := wiring.Validator(ctx, provider, apiKey)
		cancel()
		if err != nil {
			cmd.Println("FAILED")
			return fmt.Errorf("validating %s key: %w", provider.ID, err)
		}
		cmd.Println("OK")
	}

	pending, err := store.SetProviderAPIKey(cmd.Context(), provider.ID, apiKey)
	if err != nil {
		return err
	}
	if err := awaitUpdate(cmd, pending); err != nil {
		return err
	}

	if apiKey == "" {
		cmd.Printf("API key for %s cleared\n", provider.ID)
	} else {
		cmd.Printf("API key for %s saved (%s)\n", provider.ID, domain.MaskSecret(apiKey))
	}
	return nil
}

func runProviderBaseURL(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	pending, err := store.SetProviderBaseURL(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if err := awaitUpdate(cmd, pending); err != nil {
		return err
	}
	cmd.Printf("Base URL for %s set to %s\n", args[0], args[1])
	return nil
}

func runProviderModel(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	pending, err := store.SetProviderModel(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if err := awaitUpdate(cmd, pending); err != nil {
		return err
	}
	cmd.Printf("Model for %s set to %s\n", args[0], args[1])
	return nil
}
