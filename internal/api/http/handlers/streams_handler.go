package handlers

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/realtime"
)

// StreamsHandler serves the server-sent-event feeds. Streams live until the client goes
// away or ctx, the server lifetime, is cancelled.
type StreamsHandler struct {
	ctx        context.Context
	broker     *realtime.Broker
	bufferSize int
	heartbeat  time.Duration
	logger     *zap.Logger
}

// NewStreamsHandler constructs handler.
func NewStreamsHandler(ctx context.Context, broker *realtime.Broker, bufferSize int, heartbeat time.Duration, logger *zap.Logger) *StreamsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamsHandler{ctx: ctx, broker: broker, bufferSize: bufferSize, heartbeat: heartbeat, logger: logger}
}

// Admin GET /admin/events.
func (h *StreamsHandler) Admin(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	stream := realtime.NewStream(h.bufferSize, h.heartbeat)
	h.broker.SubscribeAdmin(stream)
	h.serve(c, stream, func() { h.broker.UnsubscribeAdmin(stream) })
	return nil
}

// Customer GET /customer/events.
func (h *StreamsHandler) Customer(c *fiber.Ctx) error {
	user, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	customerID := user.ID
	stream := realtime.NewStream(h.bufferSize, h.heartbeat)
	h.broker.Subscribe(customerID, stream)
	h.serve(c, stream, func() { h.broker.Unsubscribe(customerID, stream) })
	return nil
}

func (h *StreamsHandler) serve(c *fiber.Ctx, stream *realtime.Stream, unsubscribe func()) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		if err := stream.Run(h.ctx, w); err != nil {
			h.logger.Debug("event stream ended", zap.String("stream", stream.ID()), zap.Error(err))
		}
	}))
}
