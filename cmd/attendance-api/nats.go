// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

const (
	// natsConnectTimeout is the timeout for connecting to NATS.
	natsConnectTimeout = 10 * time.Second
	// natsShutdownTimeout is the timeout for draining the NATS connection.
	natsShutdownTimeout = 25 * time.Second
	// httpShutdownTimeout is the timeout for shutting down the HTTP server.
	httpShutdownTimeout = 25 * time.Second
)

// setupNATS establishes the NATS connection used for both messaging and the
// JetStream KV stores.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.DrainTimeout(natsShutdownTimeout),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection established", "nats_url", env.NatsURL)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.ErrorContext(ctx, "async NATS error inside subscription",
					logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue)
				return
			}
			slog.ErrorContext(ctx, "async NATS error outside subscription", logging.ErrKey, err)
		}),
		nats.ClosedHandler(func(conn *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed")
			gracefulCloseWG.Done()
			done <- os.Interrupt
		}),
		nats.Timeout(natsConnectTimeout),
	)
	if err != nil {
		return nil, err
	}

	// Account for the NATS connection in the graceful shutdown.
	gracefulCloseWG.Add(1)

	return natsConn, nil
}

// repositories groups the NATS KV repositories of the service.
type repositories struct {
	AttendanceRecord *store.NatsAttendanceRecordRepository
	Meeting          *store.NatsMeetingRepository
}

// getKeyValueStores binds the JetStream KV buckets backing the ledger and
// the meeting read-model, creating them when absent.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, err
	}

	recordsKV, err := getKeyValueStore(ctx, js, store.KVStoreNameAttendanceRecords)
	if err != nil {
		return nil, err
	}

	meetingsKV, err := getKeyValueStore(ctx, js, store.KVStoreNameMeetings)
	if err != nil {
		return nil, err
	}

	return &repositories{
		AttendanceRecord: store.NewNatsAttendanceRecordRepository(recordsKV),
		Meeting:          store.NewNatsMeetingRepository(meetingsKV),
	}, nil
}

func getKeyValueStore(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}

	slog.InfoContext(ctx, "creating NATS KV bucket", "bucket", bucket)
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	})
}

// createNatsSubscriptions subscribes the handler to the service's subjects
// on the shared queue group.
func createNatsSubscriptions(ctx context.Context, handler domain.MessageHandler, natsConn *nats.Conn) error {
	subjects := []string{
		models.AttendanceJoinSubject,
		models.AttendanceLeaveSubject,
		models.AttendanceSessionHistorySubject,
		models.MeetingDirectoryUpdatedSubject,
	}

	for _, subject := range subjects {
		if _, err := natsConn.QueueSubscribe(subject, models.AttendanceAPIQueue, func(m *nats.Msg) {
			handler.HandleMessage(ctx, &natsMessage{m})
		}); err != nil {
			return err
		}
		slog.InfoContext(ctx, "subscribed to NATS subject", "subject", subject)
	}

	return nil
}

// natsMessage adapts *nats.Msg to the domain.Message interface.
type natsMessage struct {
	msg *nats.Msg
}

func (m *natsMessage) Subject() string {
	return m.msg.Subject
}

func (m *natsMessage) Data() []byte {
	return m.msg.Data
}

func (m *natsMessage) Respond(data []byte) error {
	return m.msg.Respond(data)
}

func (m *natsMessage) HasReply() bool {
	return m.msg.Reply != ""
}

// gracefulShutdown stops the HTTP server, drains the NATS connection, and
// waits for both to finish.
func gracefulShutdown(httpServer *http.Server, natsConn *nats.Conn, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Info("shutting down attendance service")

	// Stop the background tasks.
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("error shutting down HTTP server")
	}

	if natsConn != nil && !natsConn.IsClosed() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		}
	}

	gracefulCloseWG.Wait()
	slog.Info("attendance service stopped")
}
