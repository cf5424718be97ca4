package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modqueue/triage/engine"
)

func postJSON(t *testing.T, srv *httptest.Server, path string, payload any) (*http.Response, outboundResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	assert.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBuffer(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	var out outboundResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestGatewayEvents(t *testing.T) {
	assert := assert.New(t)

	gateway := NewServer(engine.EngineTestFixture(), slog.Default())
	srv := httptest.NewServer(gateway.echo)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	assert.NoError(err)
	resp.Body.Close()
	assert.Equal(http.StatusOK, resp.StatusCode)

	resp, out := postJSON(t, srv, "/event/direct", textEvent{
		User: engine.FixtureReporter,
		Text: engine.ReportKeyword,
	})
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Len(out.Outbound, 1)
	assert.Contains(out.Outbound[0].Text, "Thank you for starting the reporting process.")

	_, out = postJSON(t, srv, "/event/direct", textEvent{
		User: engine.FixtureReporter,
		Text: "https://chat.example.com/100/200/301",
	})
	assert.Len(out.Outbound, 3)
	prompt := out.Outbound[2].Prompt
	assert.NotNil(prompt)
	assert.NotEmpty(prompt.Options)

	// answer the widget through the choice endpoint
	resp, out = postJSON(t, srv, "/event/choice", choiceEvent{
		User:     engine.FixtureReporter,
		Node:     string(prompt.Node),
		Selected: []string{"Spam"},
	})
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("You selected spam.", out.Outbound[0].Text)

	// an empty-queue review request round-trips through the mod endpoint
	_, out = postJSON(t, srv, "/event/mod", textEvent{
		User: engine.FixtureBystand,
		Text: engine.ReviewKeyword,
	})
	assert.Len(out.Outbound, 1)
	assert.Equal("There are no reviews to review.", out.Outbound[0].Text)
}

func TestGatewayChannelEvent(t *testing.T) {
	assert := assert.New(t)

	eng := engine.EngineTestFixture()
	gateway := NewServer(eng, slog.Default())
	srv := httptest.NewServer(gateway.echo)
	defer srv.Close()

	resp, _ := postJSON(t, srv, "/event/channel", map[string]any{
		"id": "310", "guildId": "100", "channelId": "200",
		"author": engine.FixtureAuthor,
		"text":   "hello there",
	})
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal(0, eng.Queue.Len())
}

func TestGatewayBadRequest(t *testing.T) {
	assert := assert.New(t)

	gateway := NewServer(engine.EngineTestFixture(), slog.Default())
	srv := httptest.NewServer(gateway.echo)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/event/direct", "application/json", bytes.NewBufferString("{not json"))
	assert.NoError(err)
	resp.Body.Close()
	assert.Equal(http.StatusBadRequest, resp.StatusCode)
}
