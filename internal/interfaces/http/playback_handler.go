package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/progress-engine/internal/catalog"
	"github.com/pot-code/progress-engine/internal/domain"
	infra "github.com/pot-code/progress-engine/internal/infrastructure"
	"github.com/pot-code/progress-engine/internal/infrastructure/auth"
	"github.com/pot-code/progress-engine/internal/infrastructure/logging"
	"github.com/pot-code/progress-engine/internal/infrastructure/validate"
	"go.uber.org/zap"
)

// PlaybackHandler streams heartbeats over a websocket, one reply per frame
type PlaybackHandler struct {
	lessonUseCase domain.LessonUseCase
	catalog       domain.CatalogGateway
	websocket     *infra.Websocket
	jwtUtil       *auth.JWTUtil
	validator     validate.Validator
	writeWait     time.Duration
}

func NewPlaybackHandler(
	LessonUseCase domain.LessonUseCase,
	Catalog domain.CatalogGateway,
	Websocket *infra.Websocket,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
) *PlaybackHandler {
	return &PlaybackHandler{LessonUseCase, Catalog, Websocket, JWTUtil, Validator, 10 * time.Second}
}

type playbackError struct {
	Error interface{} `json:"error"`
}

func (ph *PlaybackHandler) HandlePlayback(c echo.Context) error {
	uid, err := userID(ph.jwtUtil, c)
	if err != nil {
		return err
	}
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	return ph.websocket.WithHeartbeat(func(ctx context.Context, conn *websocket.Conn) error {
		return ph.serveFrame(ctx, conn, uid, traceID)
	})(c)
}

// serveFrame read one heartbeat and reply, only connection failures end the stream
func (ph *PlaybackHandler) serveFrame(ctx context.Context, conn *websocket.Conn, uid, traceID string) error {
	_, message, err := conn.ReadMessage()
	if err != nil {
		return err
	}

	// role and purchases must be re-read for every frame of a long lived connection
	ctx = catalog.WithScope(ctx, ph.catalog)
	reply, err := ph.report(ctx, uid, message)
	if err != nil {
		if _, body := errorResponse(err, traceID); body != nil {
			reply = playbackError{body}
		}
		logging.ExtractLoggerFromContext(ctx).Debug("playback heartbeat rejected",
			zap.String("user.id", uid), zap.Error(err))
	}

	conn.SetWriteDeadline(time.Now().Add(ph.writeWait))
	return conn.WriteJSON(reply)
}

func (ph *PlaybackHandler) report(ctx context.Context, uid string, message []byte) (interface{}, error) {
	hb := new(domain.HeartbeatModel)
	if err := json.Unmarshal(message, hb); err != nil {
		return nil, domain.NewInputError("body", "malformed heartbeat")
	}
	if errs := ph.validator.Struct(hb); errs != nil {
		return nil, &domain.InputError{Fields: errs}
	}
	return ph.lessonUseCase.ReportHeartbeat(ctx, uid, hb)
}
