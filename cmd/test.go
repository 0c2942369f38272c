package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CosmoTheDev/feishu-notifier/internal/event"
	"github.com/CosmoTheDev/feishu-notifier/internal/notify"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long: `Loads the configuration and sends the "Feishu 通知测试" message to the
configured receiver. Unlike hook and listen, a failed send exits non-zero.`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	target := resolveTarget()
	if target.Err != nil {
		return fmt.Errorf("feishu setup failed: %w", target.Err)
	}

	ev := event.Event{Type: string(models.CategorySetupTest)}
	res := newPipeline().HandleAs(context.Background(), ev, models.CategorySetupTest, target)
	if res.Outcome != notify.OutcomeDelivered {
		return fmt.Errorf("feishu setup failed: %w", res.Err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Feishu setup successful."))
	if res.MessageID != "" {
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("message id: "+res.MessageID))
	}
	return nil
}
