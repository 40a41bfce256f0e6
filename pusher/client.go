package pusher

import (
	"context"
	"evroaming/internal/config"
	"evroaming/internal/eventlog"
	"evroaming/telemetry"
	"evroaming/utility"

	"github.com/pusher/pusher-http-go/v5"
)

type trigger interface {
	Trigger(channel string, eventName string, data interface{}) error
}

// MessagePusher forwards response summaries to a Pusher channel for dashboards.
type MessagePusher struct {
	client trigger
}

func NewPusher(conf *config.Config) (*MessagePusher, error) {
	if !conf.Pusher.Enabled {
		return nil, nil
	}
	if conf.Pusher.AppID == "" {
		return nil, utility.MissingParameter("Pusher", "AppID")
	}
	if conf.Pusher.Key == "" {
		return nil, utility.MissingParameter("Pusher", "Key")
	}
	if conf.Pusher.Secret == "" {
		return nil, utility.MissingParameter("Pusher", "Secret")
	}
	client := &pusher.Client{
		AppID:   conf.Pusher.AppID,
		Key:     conf.Pusher.Key,
		Secret:  conf.Pusher.Secret,
		Cluster: conf.Pusher.Cluster,
		Secure:  true,
	}
	return &MessagePusher{client: client}, nil
}

// Observe pushes every response event; the payload is the stored record
// form, which stays well below the channel message size limit.
func (p *MessagePusher) Observe(_ context.Context, event *telemetry.Event) error {
	if event.Kind != telemetry.KindResponse {
		return nil
	}
	return p.client.Trigger(string(Responses), event.Operation, eventlog.NewRecord(event))
}
