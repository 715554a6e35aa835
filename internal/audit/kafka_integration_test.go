//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"machinelaw/internal/audit"
	"machinelaw/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	sink     *audit.KafkaSink
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redpanda = mgr.GetRedpanda(s.T())

	sink, err := audit.NewKafkaSink(context.Background(), s.redpanda.Brokers, "machinelaw.audit.test", nil)
	s.Require().NoError(err)
	s.sink = sink
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.sink != nil {
		s.sink.Close()
	}
}

func (s *KafkaSinkSuite) TestAppendRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	publisher := audit.NewPublisher(s.sink)
	err := publisher.Emit(ctx, audit.Event{
		Action:      audit.ActionLawEvaluated,
		SessionID:   "session_20250601_120000_aaaa0001",
		SubjectHash: "ab12cd34ef56ab12",
		Law:         "zorgtoeslagwet",
		Service:     "TOESLAGEN",
	})
	s.Require().NoError(err)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics("machinelaw.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())

	records := fetches.Records()
	s.Require().NotEmpty(records)

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(audit.ActionLawEvaluated, got.Action)
	s.Equal("zorgtoeslagwet", got.Law)
	s.Equal("ab12cd34ef56ab12", string(records[0].Key))
	s.NotEmpty(got.ID)
	s.False(got.Timestamp.IsZero())
}
