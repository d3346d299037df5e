package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/reminder"
)

// Publisher JSON 发布接口（由 common/mqtt.Client 实现）
type Publisher interface {
	PublishJSON(topic string, v interface{}) error
}

// Topics 用户相关的 MQTT 主题
type Topics struct {
	Notifications string
	Reminder      string
	Feedback      string
}

// UserTopics glup/<user>/{notifications,reminder,feedback}
func UserTopics(userID string) Topics {
	base := fmt.Sprintf("glup/%s/", userID)
	return Topics{
		Notifications: base + "notifications",
		Reminder:      base + "reminder",
		Feedback:      base + "feedback",
	}
}

// MQTTGateway 通过 MQTT 下发通知命令
type MQTTGateway struct {
	pub    Publisher
	topic  string
	userID string
}

func NewMQTTGateway(pub Publisher, userID string) *MQTTGateway {
	return &MQTTGateway{pub: pub, topic: UserTopics(userID).Notifications, userID: userID}
}

func (g *MQTTGateway) CancelAll(ctx context.Context) error {
	return g.pub.PublishJSON(g.topic, DeviceCommand{Command: CommandCancelAll, UserID: g.userID})
}

func (g *MQTTGateway) Schedule(ctx context.Context, n Notification) error {
	return g.pub.PublishJSON(g.topic, DeviceCommand{Command: CommandSchedule, UserID: g.userID, Notification: &n})
}

// reminderEvent 前台提醒卡片事件
type reminderEvent struct {
	Event    string             `json:"event"` // show | hide
	Reminder *reminder.Reminder `json:"reminder,omitempty"`
	At       time.Time          `json:"at"`
}

// DevicePublisher 把前台提醒与喝水反馈推送到设备（实现 reminder.Presenter 与 reminder.Feedback）
type DevicePublisher struct {
	pub    Publisher
	topics Topics
	now    func() time.Time
}

func NewDevicePublisher(pub Publisher, userID string) *DevicePublisher {
	return &DevicePublisher{pub: pub, topics: UserTopics(userID), now: time.Now}
}

func (d *DevicePublisher) Show(ctx context.Context, r reminder.Reminder) error {
	return d.pub.PublishJSON(d.topics.Reminder, reminderEvent{Event: "show", Reminder: &r, At: r.ShownAt})
}

func (d *DevicePublisher) Hide(ctx context.Context) error {
	return d.pub.PublishJSON(d.topics.Reminder, reminderEvent{Event: "hide", At: d.now()})
}

func (d *DevicePublisher) Play(ctx context.Context, req reminder.FeedbackRequest) error {
	return d.pub.PublishJSON(d.topics.Feedback, req)
}
