package tool

import (
	"context"
)

// Function names of the message toolkit. The executor agent treats
// AskUserFunction as a request to pause the flow.
const (
	NotifyUserFunction = "message_notify_user"
	AskUserFunction    = "message_ask_user"
)

type notifyArgs struct {
	Text        string   `json:"text" description:"Message text shown to the user"`
	Attachments []string `json:"attachments,omitempty" description:"(Optional) file paths to attach"`
}

type askArgs struct {
	Text                string   `json:"text" description:"Question for the user"`
	Attachments         []string `json:"attachments,omitempty" description:"(Optional) file paths relevant to the question"`
	SuggestUserTakeover string   `json:"suggest_user_takeover,omitempty" enum:"none,browser" description:"(Optional) suggest that the user takes over an interactive operation"`
}

// Notifier receives user notifications sent by the agent.
type Notifier func(ctx context.Context, text string, attachments []string)

// NewMessageToolkit creates the "message" provider. notify may be nil.
func NewMessageToolkit(notify Notifier, optFns ...func(o *ToolkitOptions)) *Toolkit {
	return NewToolkit("message", []Tool{
		NewTypedTool(NotifyUserFunction,
			"Send a message to the user without waiting for a reply. Use it to acknowledge a request or report progress.",
			func(ctx context.Context, args notifyArgs) (any, error) {
				if notify != nil {
					notify(ctx, args.Text, args.Attachments)
				}

				return "continue", nil
			}),
		NewTypedTool(AskUserFunction,
			"Ask the user a question and wait for the answer. Use it when clarification, confirmation or extra information is required.",
			func(_ context.Context, _ askArgs) (any, error) {
				return "waiting for user reply", nil
			}),
	}, optFns...)
}
