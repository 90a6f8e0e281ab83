package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/presence-station/internal/assistant"
	"github.com/kozaktomas/presence-station/internal/voice"
)

var askCmd = &cobra.Command{
	Use:   "ask <text>",
	Short: "Send a voice command or question as text",
	Long: `Route text the way a spoken command is routed: known phrases switch the
fan or the light, anything else is answered by the configured assistant
(ASSISTANT_PROVIDER: openai, gemini or ollama).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.commands.HandleCommand(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if resp.Kind == voice.KindCommand {
		fmt.Printf("[%s] %s\n", resp.Action, resp.Text)
		return nil
	}
	fmt.Println(resp.Text)
	if u, ok := a.assistant.(assistant.UsageReporter); ok {
		usage := u.GetUsage()
		fmt.Printf("(%d input / %d output tokens)\n", usage.InputTokens, usage.OutputTokens)
	}
	return nil
}
