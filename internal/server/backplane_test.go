package server

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Nothing listens on this address; the redis clients never dial during
// construction or close.
const unusedRedisAddr = "127.0.0.1:1"

func TestInProcessBackplane(t *testing.T) {
	bp, err := NewBackplane(BackplaneConfig{}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &gochannel.GoChannel{}, bp.Publisher)
	require.Same(t, bp.Publisher, bp.Subscriber)
	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close())
}

func TestRedisBackplaneRequiresAddress(t *testing.T) {
	_, err := NewBackplane(BackplaneConfig{RedisEnabled: true}, zerolog.Nop())
	require.Error(t, err)
}

func TestRedisBackplaneClosesCleanly(t *testing.T) {
	bp, err := NewBackplane(BackplaneConfig{RedisEnabled: true, RedisAddr: unusedRedisAddr}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &redisstream.Publisher{}, bp.Publisher)
	require.IsType(t, &redisstream.Subscriber{}, bp.Subscriber)

	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close())
	require.Error(t, bp.Publisher.Publish(topic, message.NewMessage("1", []byte("{}"))))
}

func TestRedisBackplaneReleasesPublisherWhenSubscriberFails(t *testing.T) {
	var pub *redisstream.Publisher
	origPub, origSub := newRedisPublisher, newRedisSubscriber
	t.Cleanup(func() { newRedisPublisher, newRedisSubscriber = origPub, origSub })

	newRedisPublisher = func(cfg redisstream.PublisherConfig, logger watermill.LoggerAdapter) (*redisstream.Publisher, error) {
		p, err := origPub(cfg, logger)
		pub = p
		return p, err
	}
	newRedisSubscriber = func(redisstream.SubscriberConfig, watermill.LoggerAdapter) (*redisstream.Subscriber, error) {
		return nil, errors.New("boom")
	}

	_, err := NewBackplane(BackplaneConfig{RedisEnabled: true, RedisAddr: unusedRedisAddr}, zerolog.Nop())
	require.ErrorContains(t, err, "create redis subscriber")
	require.NotNil(t, pub)
	require.ErrorContains(t, pub.Publish(topic, message.NewMessage("1", []byte("{}"))), "publisher closed")
}

func TestRedisBackplanePublisherFailure(t *testing.T) {
	origPub := newRedisPublisher
	t.Cleanup(func() { newRedisPublisher = origPub })
	newRedisPublisher = func(redisstream.PublisherConfig, watermill.LoggerAdapter) (*redisstream.Publisher, error) {
		return nil, errors.New("boom")
	}

	_, err := NewBackplane(BackplaneConfig{RedisEnabled: true, RedisAddr: unusedRedisAddr}, zerolog.Nop())
	require.ErrorContains(t, err, "create redis publisher")
}
