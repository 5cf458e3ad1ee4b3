package ivr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"ivr-platform/internal/telephony"
	"ivr-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers exposes the engine as provider webhooks. Every handler runs inside
// one error boundary: any error or panic becomes HTTP 500 with the apology
// markup, except gate rejections which are HTTP 400 JSON.
type Handlers struct {
	Engine *Engine
}

// Register mounts the webhooks on rg behind guard.
func (h Handlers) Register(rg gin.IRoutes, guard gin.HandlerFunc) {
	rg.POST("/ivr/flow", guard, h.Flow)
	rg.POST("/ivr/recording", guard, h.Recording)
	rg.POST("/ivr/status", guard, h.Status)
}

func (h Handlers) Flow(c *gin.Context) {
	h.respond(c, "flow", func(ctx context.Context) (telephony.Response, error) {
		f, err := telephony.Bind[telephony.FlowForm](c)
		if err != nil {
			return telephony.Response{}, err
		}
		return h.Engine.HandleFlow(ctx, f)
	})
}

func (h Handlers) Recording(c *gin.Context) {
	h.respond(c, "recording", func(ctx context.Context) (telephony.Response, error) {
		f, err := telephony.Bind[telephony.RecordingForm](c)
		if err != nil {
			return telephony.Response{}, err
		}
		return h.Engine.HandleRecording(ctx, f)
	})
}

func (h Handlers) Status(c *gin.Context) {
	h.respond(c, "status", func(ctx context.Context) (telephony.Response, error) {
		f, err := telephony.Bind[telephony.StatusForm](c)
		if err != nil {
			return telephony.Response{}, err
		}
		return h.Engine.HandleStatus(ctx, f)
	})
}

func (h Handlers) respond(c *gin.Context, endpoint string, fn func(ctx context.Context) (telephony.Response, error)) {
	log := logger.FromGin(c).With(
		slog.String("endpoint", endpoint),
		slog.String("call_sid", c.Request.PostFormValue("CallSid")),
	)
	ctx := logger.With(c.Request.Context(), log)

	defer func() {
		if p := recover(); p != nil {
			log.Error("ivr webhook panic", slog.Any("panic", p))
			_ = c.Error(fmt.Errorf("panic: %v", p))
			writeApology(c)
		}
	}()

	resp, err := fn(ctx)
	if err != nil {
		var gate *GateError
		if errors.As(err, &gate) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gate)
			return
		}
		log.Error("ivr webhook failed", slog.Any("err", err))
		_ = c.Error(err)
		writeApology(c)
		return
	}

	xml, err := telephony.RenderTwiML(resp)
	if err != nil {
		log.Error("twiml render failed", slog.Any("err", err))
		_ = c.Error(err)
		writeApology(c)
		return
	}
	writeTwiML(c, http.StatusOK, xml)
}

func writeApology(c *gin.Context) {
	xml, err := telephony.RenderTwiML(telephony.Apology())
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	writeTwiML(c, http.StatusInternalServerError, xml)
	c.Abort()
}

func writeTwiML(c *gin.Context, status int, xml string) {
	c.Header("Content-Type", "application/xml")
	c.String(status, xml)
}
