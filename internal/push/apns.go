// Package push delivers alerts to devices of users who are not connected.
package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// ErrTokenInvalid means the device token is no longer registered and should be cleared
var ErrTokenInvalid = errors.New("device token is no longer valid")

// Message is a device alert
type Message struct {
	Title string
	Body  string
	Badge int
	Data  map[string]string
}

// Pusher sends alerts to a device token
type Pusher interface {
	Push(ctx context.Context, deviceToken string, msg Message) error
}

// APNsOptions configures token-based APNs authentication
type APNsOptions struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// APNs delivers alerts through the Apple Push Notification service
type APNs struct {
	client *apns2.Client
	topic  string
}

// NewAPNs creates a new APNs pusher from a .p8 signing key
func NewAPNs(opts APNsOptions) (*APNs, error) {
	authKey, err := token.AuthKeyFromFile(opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   opts.KeyID,
		TeamID:  opts.TeamID,
	})
	if opts.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNs{client: client, topic: opts.Topic}, nil
}

// Push sends msg to deviceToken
func (a *APNs) Push(ctx context.Context, deviceToken string, msg Message) error {
	p := payload.NewPayload().
		AlertTitle(msg.Title).
		AlertBody(msg.Body).
		Badge(msg.Badge).
		Sound("default")
	for k, v := range msg.Data {
		p.Custom(k, v)
	}

	res, err := a.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		if res.Reason == apns2.ReasonBadDeviceToken || res.Reason == apns2.ReasonUnregistered {
			return ErrTokenInvalid
		}
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}

	log.Debug().Str("apns_id", res.ApnsID).Msg("Push notification sent")
	return nil
}
