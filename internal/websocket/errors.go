// internal/websocket/errors.go
package websocket

import "errors"

var ErrHubStopped = errors.New("websocket hub stopped")
