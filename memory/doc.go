// Package memory holds the conversation transcript each agent replays to its
// model. The first message is the agent's system prompt, inserted by the
// agent on first use; tool results of bulky functions can be compacted to a
// placeholder between plan steps to bound prompt growth.
package memory
