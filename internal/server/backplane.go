package server

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dev-dami/relaychat/internal/logging"
)

var (
	newRedisPublisher  = redisstream.NewPublisher
	newRedisSubscriber = redisstream.NewSubscriber
)

// BackplaneConfig selects how relay instances share messages.
type BackplaneConfig struct {
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Backplane carries messages from whichever instance received them to every
// instance's HandleMessages loop. Without Redis it is an in-process channel.
type Backplane struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	closers []func() error
}

func (c BackplaneConfig) redisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func NewBackplane(cfg BackplaneConfig, logger zerolog.Logger) (*Backplane, error) {
	wlog := logging.NewWatermill(logger)

	if !cfg.RedisEnabled {
		pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wlog)
		return &Backplane{
			Publisher:  pubsub,
			Subscriber: pubsub,
			closers:    []func() error{pubsub.Close},
		}, nil
	}

	if cfg.RedisAddr == "" {
		return nil, errors.New("redis backplane needs an address")
	}
	marshaler := redisstream.DefaultMarshallerUnmarshaller{}

	// Publisher and subscriber each close the client they are given, so
	// they get one each.
	pubClient := redis.NewClient(cfg.redisOptions())
	pub, err := newRedisPublisher(redisstream.PublisherConfig{
		Client:     pubClient,
		Marshaller: marshaler,
	}, wlog)
	if err != nil {
		_ = pubClient.Close()
		return nil, errors.Wrap(err, "create redis publisher")
	}

	// No consumer group: every instance reads the whole stream.
	subClient := redis.NewClient(cfg.redisOptions())
	sub, err := newRedisSubscriber(redisstream.SubscriberConfig{
		Client:       subClient,
		Unmarshaller: marshaler,
	}, wlog)
	if err != nil {
		_ = subClient.Close()
		_ = pub.Close()
		return nil, errors.Wrap(err, "create redis subscriber")
	}

	return &Backplane{
		Publisher:  pub,
		Subscriber: sub,
		closers:    []func() error{sub.Close, pub.Close},
	}, nil
}

// Close releases the publisher, subscriber and any client behind them.
func (b *Backplane) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}
