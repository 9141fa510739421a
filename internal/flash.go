package internal

import (
	"context"
	"slices"
)

// flashesKey is the session key holding pending flashed messages.
const flashesKey = "_flashes"

// FlashMessage is a message stored for the next request.
type FlashMessage struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Flash stores message in the session so the next request can show it.
// The category defaults to "message". Without a secret key the session is
// null and Flash fails with ErrNullSession.
//
// Example:
//
//	if err := c.Flash("Profile saved", "success"); err != nil {
//	    return nil, err
//	}
//	return c.Redirect(u), nil
func Flash(ctx context.Context, message string, category ...string) error {
	rc, err := requestContextOf(ctx)
	if err != nil {
		return err
	}

	msg := FlashMessage{Category: "message", Message: message}
	if len(category) > 0 && category[0] != "" {
		msg.Category = category[0]
	}

	s := rc.Session()
	var pending []FlashMessage
	if v, ok := s.Get(flashesKey); ok {
		pending = decodeFlashes(v)
	}
	if err := s.Set(flashesKey, append(pending, msg)); err != nil {
		return err
	}

	rc.app.signals.MessageFlashed.Send(rc, rc.app, msg)
	return nil
}

// FlashedMessages removes the flashed messages from the session and
// returns them. The first call of a request loads them; later calls in
// the same request return the same messages. With categories only
// messages of those categories are returned. Outside a request it fails
// with ErrOutsideRequestContext.
func FlashedMessages(ctx context.Context, categories ...string) ([]FlashMessage, error) {
	rc, err := requestContextOf(ctx)
	if err != nil {
		return nil, err
	}

	rc.mu.Lock()
	loaded := rc.flashesLoaded
	rc.mu.Unlock()

	if !loaded {
		var flashes []FlashMessage
		s := rc.Session()
		if _, ok := s.Get(flashesKey); ok {
			v, _, _ := s.Pop(flashesKey)
			flashes = decodeFlashes(v)
		}
		rc.mu.Lock()
		rc.flashes = flashes
		rc.flashesLoaded = true
		rc.mu.Unlock()
	}

	rc.mu.Lock()
	flashes := slices.Clone(rc.flashes)
	rc.mu.Unlock()

	if len(categories) == 0 {
		return flashes, nil
	}
	return slices.DeleteFunc(flashes, func(m FlashMessage) bool {
		return !slices.Contains(categories, m.Category)
	}), nil
}

// decodeFlashes accepts the stored form as well as what a JSON round
// trip of the session produces.
func decodeFlashes(v any) []FlashMessage {
	switch v := v.(type) {
	case []FlashMessage:
		return slices.Clone(v)
	case []any:
		out := make([]FlashMessage, 0, len(v))
		for _, item := range v {
			switch item := item.(type) {
			case FlashMessage:
				out = append(out, item)
			case map[string]any:
				category, _ := item["category"].(string)
				message, _ := item["message"].(string)
				out = append(out, FlashMessage{Category: category, Message: message})
			case []any:
				if len(item) == 2 {
					category, _ := item[0].(string)
					message, _ := item[1].(string)
					out = append(out, FlashMessage{Category: category, Message: message})
				}
			}
		}
		return out
	default:
		return nil
	}
}

// requestContextOf returns ctx itself when it is a request context, and
// the current request context otherwise.
func requestContextOf(ctx context.Context) (*RequestContext, error) {
	if rc, ok := ctx.(*RequestContext); ok {
		return rc, nil
	}
	return CurrentRequestContext(ctx)
}
