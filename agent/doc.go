// Package agent contains the language-model agents of planact. The package
// focuses on three concerns:
//
//  1. The tool-calling loop shared by every agent (BaseAgent)
//  2. Plan synthesis and revision (Planner)
//  3. Step execution and the final summary (Executor)
//
// Execution model:
//   - Invoke, CreatePlan, UpdatePlan, ExecuteStep and Summarize return
//     iter.Seq2[core.Event, error] streams that do nothing until ranged over
//   - Each model turn dispatches at most one tool call; its result is stored
//     in the agent's memory.Memory and fed back on the next turn
//   - Breaking out of a stream is the only early exit and leaves the
//     transcript consistent for a later invocation
//
// An agent instance serializes its invocations; a concurrent Invoke returns
// core.ErrAgentBusy.
package agent
