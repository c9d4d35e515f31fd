package notifications

import (
	"context"
	"log"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "rt:user:"
	roomChannelPrefix = "rt:room:"
	broadcastChannel  = "rt:broadcast"
)

// Notifier publishes realtime events into Redis channels so every instance's
// gateway can deliver to its locally connected sockets. A nil Redis client
// turns every publish into a no-op; the gateway then delivers locally only.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether cross-instance fan-out is available.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends an event payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishRoom sends an event payload to a room's channel.
func (n *Notifier) PublishRoom(ctx context.Context, roomID string, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, RoomChannel(roomID), payload).Err()
}

// PublishBroadcast sends an event payload to all connected users on all instances.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// StartPatternSubscriber subscribes to all realtime channels and calls
// onMessage for each incoming message until ctx is cancelled. Panics in the
// handler are contained so one bad payload cannot kill the subscriber.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", roomChannelPrefix+"*", broadcastChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in realtime subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// RoomChannel derives the Redis channel name for a room.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// ParseChannel classifies an incoming channel name. kind is "user", "room" or
// "broadcast"; ok is false for anything unrecognized.
func ParseChannel(channel string) (kind string, userID uint, roomID string, ok bool) {
	switch {
	case channel == broadcastChannel:
		return "broadcast", 0, "", true
	case strings.HasPrefix(channel, userChannelPrefix):
		id64, err := strconv.ParseUint(strings.TrimPrefix(channel, userChannelPrefix), 10, 32)
		if err != nil {
			return "", 0, "", false
		}
		return "user", uint(id64), "", true
	case strings.HasPrefix(channel, roomChannelPrefix):
		return "room", 0, strings.TrimPrefix(channel, roomChannelPrefix), true
	}
	return "", 0, "", false
}
