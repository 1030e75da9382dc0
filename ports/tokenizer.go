package ports

import "github.com/layer-3/garuda/core"

// Tokenizer converts sessions to and from the signed cookie value handed to
// browsers. The cookie carries the opaque session token, not session state.
type Tokenizer interface {
	SessionToCookie(session *core.Session) (string, error)
	CookieToSessionToken(cookie string) (string, error)
}
