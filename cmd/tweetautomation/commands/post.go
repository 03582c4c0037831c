package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/tweet-automation/internal/model"
	"github.com/LeventeLantos/tweet-automation/internal/service"
)

var (
	postText       string
	postAttachment string
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post a record immediately and wait for its outcome",
	Long: `Store a new immediate record, post it with the saved credentials and
print the final status once the posting service has answered.`,
	RunE: runPost,
}

func init() {
	postCmd.Flags().StringVar(&postText, "text", "",
		"Text to post (required)")
	postCmd.Flags().StringVar(&postAttachment, "attachment", "",
		"Path to a media file to attach")

	postCmd.MarkFlagRequired("text")
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	a.sched.Start()

	now := time.Now()
	rec, err := a.auto.Submit(ctx, service.Draft{
		Text:           postText,
		AttachmentPath: postAttachment,
		Date:           now,
		Clock:          now,
		Immediate:      true,
	})
	if err != nil {
		return err
	}

	final, err := waitTerminal(ctx, a.auto, rec.ID, a.cfg.Post.Timeout+5*time.Second)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "record %d: %s (outcome %d)\n", final.ID, final.Status, final.OutcomeCode)
	if final.Status != model.Sent {
		return fmt.Errorf("record %d was not posted", final.ID)
	}
	return nil
}

type recordGetter interface {
	Record(ctx context.Context, id int64) (model.Record, bool)
}

// waitTerminal polls until the record reaches Sent or Failed.
func waitTerminal(ctx context.Context, g recordGetter, id int64, timeout time.Duration) (model.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		rec, ok := g.Record(ctx, id)
		if !ok {
			return model.Record{}, fmt.Errorf("record %d disappeared", id)
		}
		if rec.Status.Terminal() {
			return rec, nil
		}

		select {
		case <-ctx.Done():
			return rec, fmt.Errorf("waiting for record %d: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}
