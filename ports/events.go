package ports

import "context"

// LoginEvent is published after a successful challenge verification.
type LoginEvent struct {
	Account   string `json:"account"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	LoginType string `json:"login_type"`
	NewUser   bool   `json:"new_user"`
}

// EventPublisher publishes auth events to notify other services.
type EventPublisher interface {
	PublishLogin(ctx context.Context, event LoginEvent) error
	PublishLogout(ctx context.Context, userID, sessionID string) error
}
