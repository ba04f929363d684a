package handlers

import (
	"github.com/sirupsen/logrus"

	"scribeview/sync-engine/internal/apiclient"
	"scribeview/sync-engine/internal/engine"
	"scribeview/sync-engine/internal/worker"
	"scribeview/sync-engine/internal/ws"
)

// PushClient is what handlers need from the websocket client: read the
// state and trigger a manual reconnect out of the terminal failed state.
type PushClient interface {
	State() ws.State
	Connect(url, token string) error
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Engine    *engine.Engine
	API       *apiclient.Client
	Push      PushClient
	Exports   *worker.Dispatcher
	ExportDir string
	PushURL   string
	PushToken string
	Logger    *logrus.Logger
}

// NewApplicationHandler creates an ApplicationHandler with the given
// dependencies.
func NewApplicationHandler(eng *engine.Engine, api *apiclient.Client, push PushClient, exports *worker.Dispatcher, exportDir, pushURL, pushToken string, logger *logrus.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		Engine:    eng,
		API:       api,
		Push:      push,
		Exports:   exports,
		ExportDir: exportDir,
		PushURL:   pushURL,
		PushToken: pushToken,
		Logger:    logger,
	}
}
