package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	pkgkafka "FinSight/pkg/kafka"
)

func TestAlertPublisherCloseLeavesProducerOpen(t *testing.T) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers([]string{"127.0.0.1:1"}),
		pkgkafka.WithMaxAttempts(1),
		pkgkafka.WithTimeouts(200*time.Millisecond, 200*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("producer: %v", err)
	}
	defer producer.Close()

	pub := NewKafkaAlertPublisher(producer, "alerts")
	if err := pub.Close(); err != nil {
		t.Fatalf("close publisher: %v", err)
	}

	// The log collector keeps publishing through the same producer after
	// the alert sink shuts down. A refused connection is expected here; a
	// closed writer is not.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = producer.Publish(ctx, "ops_logs", nil, "still open")
	if errors.Is(err, io.ErrClosedPipe) {
		t.Fatal("closing the alert publisher closed the shared producer")
	}
}
