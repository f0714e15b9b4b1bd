package core

import (
	"fmt"

	"github.com/keshon/orator/internal/platform"
)

const EmbedColor = 0xb01e66

// GenericErrorMessage is sent when an action fails and the dispatcher notifies users.
const GenericErrorMessage = "Something went wrong while running that command."

// InsufficientParams is the notice for a command invoked with too few parameters.
func InsufficientParams(usage string) string {
	return fmt.Sprintf("Insufficient parameters. Usage: `%s`", usage)
}

// Response is what an action may return. DM redirects it to the invoker's private channel.
type Response struct {
	Content string
	Embed   *platform.Embed
	File    *platform.File
	DM      bool
}

func (r *Response) Outgoing() *platform.Outgoing {
	return &platform.Outgoing{Content: r.Content, Embed: r.Embed, File: r.File}
}

// Empty reports whether there is nothing to send.
func (r *Response) Empty() bool {
	return r == nil || r.Outgoing().Empty()
}

// Normalize converts an action result into a Response. It returns nil for results that
// mean "send nothing".
func Normalize(v any) *Response {
	var r *Response
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		r = &Response{Content: v}
	case Response:
		r = &v
	case *Response:
		r = v
	case *platform.Embed:
		r = &Response{Embed: v}
	case platform.Embed:
		r = &Response{Embed: &v}
	case *platform.File:
		r = &Response{File: v}
	case fmt.Stringer:
		r = &Response{Content: v.String()}
	default:
		r = &Response{Content: fmt.Sprint(v)}
	}
	if r.Empty() {
		return nil
	}
	return r
}
