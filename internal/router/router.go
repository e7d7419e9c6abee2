package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chatlink/backend/internal/apperror"
	"chatlink/backend/internal/friends"
	"chatlink/backend/internal/registry"
)

// Envelope is the optional JSON frame for targeted delivery. Frames that do
// not parse as an envelope are treated as plain text and echoed back.
type Envelope struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Delivery is the frame a recipient receives for a targeted message.
type Delivery struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// Router decides a message's destination and delivers it through the
// connection registry. Delivery is best-effort against the current registry
// snapshot: a send either succeeds synchronously or fails fast, it never
// blocks on a recipient.
type Router struct {
	registry *registry.Registry
	friends  *friends.Service
}

// New creates a Router over the given registry and friend service.
func New(reg *registry.Registry, fr *friends.Service) *Router {
	return &Router{
		registry: reg,
		friends:  fr,
	}
}

// Route handles one inbound frame from senderID.
//
// A frame that parses as an Envelope with a recipient is delivered to that
// recipient, provided the two users have an accepted relationship; an
// offline recipient yields registry.ErrUnreachable for the sender to handle.
// Any other frame is echoed back to the sender with an "Echo: " marker.
func (rt *Router) Route(ctx context.Context, senderID string, payload []byte) error {
	log.Printf("WS %s says: %s", senderID, payload)

	var env Envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.To != "" {
		return rt.deliver(ctx, senderID, env)
	}

	echo := fmt.Sprintf("Echo: %s", payload)
	return rt.registry.Send(senderID, []byte(echo))
}

func (rt *Router) deliver(ctx context.Context, senderID string, env Envelope) error {
	if env.To == senderID {
		return apperror.Validation("cannot send a message to yourself")
	}

	accepted, err := rt.friends.AreFriends(ctx, senderID, env.To)
	if err != nil {
		return err
	}
	if !accepted {
		return apperror.Validation("recipient is not in your friends")
	}

	frame, err := json.Marshal(Delivery{From: senderID, Body: env.Body})
	if err != nil {
		return fmt.Errorf("router: encoding delivery: %w", err)
	}

	return rt.registry.Send(env.To, frame)
}
