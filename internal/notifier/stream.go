package notifier

import (
	"context"
	"fmt"

	rediscommon "github.com/Hans-Rafael/glup-water-reminder/common/redis"

	"github.com/go-redis/redis/v8"
)

// 下发给设备中继的命令
const (
	CommandCancelAll = "cancel_all"
	CommandSchedule  = "schedule"
)

// DeviceCommand 写入通知流的命令
type DeviceCommand struct {
	Command      string        `json:"command"`
	UserID       string        `json:"user_id"`
	Notification *Notification `json:"notification,omitempty"`
}

// StreamGateway 通过 Redis Streams 把通知命令交给设备中继
type StreamGateway struct {
	client *redis.Client
	stream string
	userID string
}

func NewStreamGateway(client *redis.Client, stream, userID string) *StreamGateway {
	return &StreamGateway{client: client, stream: stream, userID: userID}
}

func (g *StreamGateway) CancelAll(ctx context.Context) error {
	return g.publish(ctx, DeviceCommand{Command: CommandCancelAll, UserID: g.userID})
}

func (g *StreamGateway) Schedule(ctx context.Context, n Notification) error {
	return g.publish(ctx, DeviceCommand{Command: CommandSchedule, UserID: g.userID, Notification: &n})
}

func (g *StreamGateway) publish(ctx context.Context, cmd DeviceCommand) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, g.client, g.stream, cmd); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", cmd.Command, g.stream, err)
	}
	return nil
}
