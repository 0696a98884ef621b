//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"personfinder/internal/notify"
	"personfinder/internal/platform/config"
	"personfinder/internal/platform/kafka"
	"personfinder/pkg/platform/outbox"
	outboxmemory "personfinder/pkg/platform/outbox/store/memory"
	"personfinder/pkg/testutil/containers"
)

type KafkaRelaySuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
}

func TestKafkaRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaRelaySuite))
}

func (s *KafkaRelaySuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaRelaySuite) TestRelayDeliversToTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "personfinder.events.relay"
	s.broker.CreateTopic(s.T(), topic)

	client, err := kafka.New(ctx, config.KafkaConfig{
		Brokers:  []string{s.broker.Broker},
		Topic:    topic,
		ClientID: "personfinder-test",
	})
	s.Require().NoError(err)
	defer client.Close()

	events := outboxmemory.NewInMemoryStore()
	event := outbox.NewEvent(outbox.EventPersonTombstoned, "haiti", "haiti/person.9", time.Now().UTC(), nil)
	s.Require().NoError(events.Append(ctx, event))

	relay := notify.NewRelay(events, notify.NewKafkaPublisher(client, topic))
	published, err := relay.Flush(ctx)
	s.Require().NoError(err)
	s.Equal(1, published)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("haiti/person.9", string(records[0].Key))

	var decoded outbox.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &decoded))
	s.Equal(event.ID, decoded.ID)
}
