package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

var (
	promptName string
	promptText string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage post-processing prompts",
	Long: `Manage the prompts used to post-process transcriptions.

Prompt text may contain ${output}, which is replaced by the transcription.`,
	RunE: runPromptsList,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts",
	RunE:  runPromptsList,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the text of a prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsShow,
}

var promptsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a prompt",
	Long:  `Create a prompt. The text is read from standard input when --text is omitted.`,
	RunE:  runPromptsAdd,
}

var promptsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change the name or text of a prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsUpdate,
}

var promptsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsDelete,
}

var promptsSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Select the prompt used for post-processing",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsSelect,
}

func init() {
	promptsAddCmd.Flags().StringVar(&promptName, "name", "", "prompt name")
	promptsAddCmd.Flags().StringVar(&promptText, "text", "", "prompt text")
	_ = promptsAddCmd.MarkFlagRequired("name")

	promptsUpdateCmd.Flags().StringVar(&promptName, "name", "", "new prompt name")
	promptsUpdateCmd.Flags().StringVar(&promptText, "text", "", "new prompt text")

	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsAddCmd)
	promptsCmd.AddCommand(promptsUpdateCmd)
	promptsCmd.AddCommand(promptsDeleteCmd)
	promptsCmd.AddCommand(promptsSelectCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsList(cmd *cobra.Command, _ []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	selected, _ := store.Snapshot().SelectedPromptID()
	prompts := store.Prompts()
	if len(prompts) == 0 {
		cmd.Println("No prompts configured")
		return nil
	}
	for _, p := range prompts {
		marker := " "
		if p.ID == selected {
			marker = "*"
		}
		cmd.Printf("%s %-34s %s\n", marker, p.ID, p.Name)
	}
	return nil
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}
	prompt, err := findPrompt(store.Prompts(), args[0])
	if err != nil {
		return err
	}
	cmd.Printf("%s\n\n%s\n", prompt.Name, prompt.Text)
	return nil
}

func runPromptsAdd(cmd *cobra.Command, _ []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	text := promptText
	if !cmd.Flags().Changed("text") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading prompt text: %w", err)
		}
		text = strings.TrimSpace(string(data))
	}

	prompt, err := store.AddPrompt(cmd.Context(), promptName, text)
	if err != nil {
		return err
	}
	cmd.Printf("Added prompt %s (%s)\n", prompt.Name, prompt.ID)
	return nil
}

func runPromptsUpdate(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	prompt, err := findPrompt(store.Prompts(), args[0])
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("name") {
		prompt.Name = promptName
	}
	if cmd.Flags().Changed("text") {
		prompt.Text = promptText
	}

	if err := store.UpdatePrompt(cmd.Context(), prompt); err != nil {
		return err
	}
	cmd.Printf("Updated prompt %s\n", prompt.ID)
	return nil
}

func runPromptsDelete(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}
	if err := store.DeletePrompt(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted prompt %s\n", args[0])
	return nil
}

func runPromptsSelect(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	prompt, err := findPrompt(store.Prompts(), args[0])
	if err != nil {
		return err
	}
	id := prompt.ID
	pending := store.UpdateSetting(cmd.Context(), domain.KeyPostProcessSelectedPromptID, domain.OptionalString(&id))
	if err := awaitUpdate(cmd, pending); err != nil {
		return err
	}
	cmd.Printf("Selected prompt %s\n", prompt.Name)
	return nil
}

func findPrompt(prompts []domain.Prompt, id string) (domain.Prompt, error) {
	for _, p := range prompts {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Prompt{}, fmt.Errorf("%w: prompt %s", domain.ErrNotFound, id)
}
