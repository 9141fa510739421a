package internal

import (
	"github.com/dmitrymomot/flagon/pkg/signal"
)

// TemplateEvent is the payload of the template signals.
type TemplateEvent struct {
	Data map[string]any
	Name string
}

// Signals are the notifications an App emits. The sender is always the
// App and the context is the one bound to the request or application
// context, so receivers can reach them with CurrentRequestContext.
type Signals struct {
	AppContextPushed      *signal.Signal[*AppContext]
	AppContextTearingDown *signal.Signal[error]
	AppContextPopped      *signal.Signal[*AppContext]
	RequestStarted        *signal.Signal[*RequestContext]
	RequestFinished       *signal.Signal[*Response]
	RequestTearingDown    *signal.Signal[error]
	GotRequestException   *signal.Signal[error]
	MessageFlashed        *signal.Signal[FlashMessage]
	BeforeRenderTemplate  *signal.Signal[TemplateEvent]
	TemplateRendered      *signal.Signal[TemplateEvent]
}

func newSignals() *Signals {
	return &Signals{
		AppContextPushed:      signal.New[*AppContext]("appcontext-pushed"),
		AppContextTearingDown: signal.New[error]("appcontext-tearing-down"),
		AppContextPopped:      signal.New[*AppContext]("appcontext-popped"),
		RequestStarted:        signal.New[*RequestContext]("request-started"),
		RequestFinished:       signal.New[*Response]("request-finished"),
		RequestTearingDown:    signal.New[error]("request-tearing-down"),
		GotRequestException:   signal.New[error]("got-request-exception"),
		MessageFlashed:        signal.New[FlashMessage]("message-flashed"),
		BeforeRenderTemplate:  signal.New[TemplateEvent]("before-render-template"),
		TemplateRendered:      signal.New[TemplateEvent]("template-rendered"),
	}
}
