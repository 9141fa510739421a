// Package ctxlocal provides per-task stacks carried on a context.Context.
//
// Go has no goroutine-local storage, so the unit of isolation is the
// context handed down a call chain. A [Stack] is a process-wide service:
// [Stack.Bind] attaches a private slot to a context and every Push, Pop and
// Top made through that context (or any context derived from it) operates on
// that slot only. Two requests never see each other's entries because they
// never share a slot.
//
//	var requests = ctxlocal.New[*Request]("request")
//
//	ctx = requests.Bind(ctx)
//	_ = requests.Push(ctx, req)
//	defer requests.Pop(ctx)
//
//	cur, ok := requests.Top(ctx)
//
// Work handed to another goroutine should use [Stack.Detach], which gives the
// goroutine a snapshot of the stack instead of the live slot.
package ctxlocal
