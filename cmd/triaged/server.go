package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modqueue/triage/directory"
	"github.com/modqueue/triage/engine"
	"github.com/modqueue/triage/escalation"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
)

// HTTP gateway bridging a chat transport to the engine. The transport posts
// inbound events here and renders the returned outbound items.
type Server struct {
	logger *slog.Logger
	engine *engine.Engine
	echo   *echo.Echo
}

func NewServer(eng *engine.Engine, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())

	srv := &Server{
		logger: logger,
		engine: eng,
		echo:   e,
	}

	e.GET("/healthz", srv.handleHealthz)
	e.POST("/event/direct", srv.handleDirect)
	e.POST("/event/channel", srv.handleChannel)
	e.POST("/event/mod", srv.handleMod)
	e.POST("/event/choice", srv.handleChoice)
	return srv
}

func (s *Server) Run(bind string) error {
	s.logger.Info("starting event gateway", "bind", bind)
	return s.echo.Start(bind)
}

type textEvent struct {
	User directory.User `json:"user"`
	Text string         `json:"text"`
}

type choiceEvent struct {
	User     directory.User `json:"user"`
	Node     string         `json:"node"`
	Selected []string       `json:"selected"`
}

type outboundResponse struct {
	Outbound []engine.Outbound `json:"outbound"`
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDirect(c echo.Context) error {
	var evt textEvent
	if err := c.Bind(&evt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	outs := s.engine.ProcessDirectMessage(c.Request().Context(), evt.User, evt.Text)
	return c.JSON(http.StatusOK, outboundResponse{Outbound: outs})
}

func (s *Server) handleChannel(c echo.Context) error {
	var msg directory.Message
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.engine.ProcessChannelMessage(c.Request().Context(), msg); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, outboundResponse{})
}

func (s *Server) handleMod(c echo.Context) error {
	var evt textEvent
	if err := c.Bind(&evt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	outs := s.engine.ProcessModMessage(c.Request().Context(), evt.User, evt.Text)
	return c.JSON(http.StatusOK, outboundResponse{Outbound: outs})
}

func (s *Server) handleChoice(c echo.Context) error {
	var evt choiceEvent
	if err := c.Bind(&evt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	outs := s.engine.ProcessChoice(c.Request().Context(), evt.User, engine.NodeID(evt.Node), evt.Selected)
	return c.JSON(http.StatusOK, outboundResponse{Outbound: outs})
}

// Notifier delivering notices over plain "incoming webhook" POSTs. A missing
// URL drops the notice with a log line, which keeps local runs quiet.
type WebhookNotifier struct {
	UserWebhookURL string
	ModWebhookURL  string
	Logger         *slog.Logger
}

var _ escalation.Notifier = (*WebhookNotifier)(nil)

type userWebhookBody struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type modWebhookBody struct {
	Text string `json:"text"`
}

func (n *WebhookNotifier) SendUser(ctx context.Context, userID string, notice escalation.Notice) error {
	if n.UserWebhookURL == "" {
		n.Logger.Info("dropping user notice, no webhook configured", "user", userID, "title", notice.Title)
		return nil
	}
	return postWebhook(ctx, n.UserWebhookURL, userWebhookBody{UserID: userID, Title: notice.Title, Body: notice.Body})
}

func (n *WebhookNotifier) SendModChannel(ctx context.Context, text string) error {
	if n.ModWebhookURL == "" {
		n.Logger.Info("dropping mod channel message, no webhook configured", "text", text)
		return nil
	}
	return postWebhook(ctx, n.ModWebhookURL, modWebhookBody{Text: text})
}

func postWebhook(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
