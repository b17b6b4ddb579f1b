// Package runner drives a conversation to a final model answer.
//
// Loop alternates model calls and tool dispatch until the model replies
// without tool calls, the call budget is spent or a model call fails.
// Dispatcher runs the tools a model turn asked for concurrently and returns
// one result per call, in request order.
//
// Invariant:
//   - every MODEL turn with tool calls is followed by exactly one USER turn
//     holding their results, position for position.
//
// Flow:
//
//	user(text|image) -> model(tool_call...) -> user(tool_result...) -> model(text)
package runner
