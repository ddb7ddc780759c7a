// Package event implementa el boundary de invocación de jobs por cola:
// un scheduler externo publica mensajes chicos y acá se despachan los
// jobs batch, de a uno por vez (sin workers paralelos internos).
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"archive-access/internal/jobs/propagate"
	"archive-access/internal/jobs/sweep"
	"archive-access/internal/platform/logger"

	"github.com/rabbitmq/amqp091-go"
)

const defaultQueue = "access-jobs"

// jobMessage es el payload esperado:
//
//	{"job":"propagate","args":{"backfill":true,"sync":"index_to_properties"}}
//	{"job":"sweep"}
type jobMessage struct {
	Job  string          `json:"job"`
	Args json.RawMessage `json:"args,omitempty"`
}

type JobConsumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string

	propagate *propagate.Job
	sweep     *sweep.Job
	log       logger.Logger

	shutdown chan struct{}
	wg       sync.WaitGroup
	enabled  bool
}

// NewJobConsumer conecta a la cola. URI vacía deja el consumer
// deshabilitado sin error (deploy sin broker sigue funcionando).
func NewJobConsumer(uri, queue string, pj *propagate.Job, sj *sweep.Job, log logger.Logger) (*JobConsumer, error) {
	queue = strings.TrimSpace(queue)
	if queue == "" {
		queue = defaultQueue
	}

	c := &JobConsumer{
		queue:     queue,
		propagate: pj,
		sweep:     sj,
		log:       log,
		shutdown:  make(chan struct{}),
	}

	if strings.TrimSpace(uri) == "" {
		log.Warn("amqp uri empty, job consumption disabled", nil)
		return c, nil
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("amqp connect: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	// Un job por vez: los batch son secuenciales por diseño.
	if err := channel.Qos(1, 0, false); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp qos: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.enabled = true
	return c, nil
}

func (c *JobConsumer) Start() error {
	if !c.enabled {
		return nil
	}

	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.shutdown:
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				c.handle(d)
			}
		}
	}()

	c.log.Info("job consumer started", map[string]any{"queue": c.queue})
	return nil
}

func (c *JobConsumer) handle(d amqp091.Delivery) {
	var msg jobMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.log.Warn("dropping malformed job message", map[string]any{"error": err.Error()})
		_ = d.Nack(false, false) // sin requeue: nunca va a parsear mejor
		return
	}

	ctx := context.Background()

	switch msg.Job {
	case "propagate":
		var args propagate.Args
		if len(msg.Args) > 0 {
			if err := json.Unmarshal(msg.Args, &args); err != nil {
				c.log.Warn("dropping propagate message with bad args", map[string]any{"error": err.Error()})
				_ = d.Nack(false, false)
				return
			}
		}
		// Los jobs son idempotentes: si falla, ack igual y que el
		// scheduler re-publique; re-encolar acá podría loopear.
		_ = c.propagate.Run(ctx, args)
		_ = d.Ack(false)
	case "sweep":
		_ = c.sweep.Run(ctx)
		_ = d.Ack(false)
	default:
		c.log.Warn("dropping unknown job", map[string]any{"job": msg.Job})
		_ = d.Nack(false, false)
	}
}

func (c *JobConsumer) Close() error {
	close(c.shutdown)
	c.wg.Wait()

	if !c.enabled {
		return nil
	}
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}
