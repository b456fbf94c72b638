package download

import (
	"context"

	"github.com/binbin1213/GAGA-Client/internal/command"
	"github.com/binbin1213/GAGA-Client/internal/events"
	"github.com/binbin1213/GAGA-Client/internal/history"
	"github.com/binbin1213/GAGA-Client/internal/license"
	"github.com/binbin1213/GAGA-Client/internal/model"
	"github.com/binbin1213/GAGA-Client/internal/postprocess"
)

// Authorizer returns the credentials of a currently valid authorization
type Authorizer interface {
	Credentials(ctx context.Context) (license.Credentials, error)
}

// KeyResolver obtains the content keys of a protected stream
type KeyResolver interface {
	ResolveKeys(ctx context.Context, req license.KeyRequest) ([]model.ContentKey, error)
}

// CommandRunner runs the downloader, streaming its output
type CommandRunner interface {
	Stream(ctx context.Context, tool string, args []string, dir string, onLine command.LineHandler) error
}

// PostProcessor finishes the downloaded artifacts
type PostProcessor interface {
	Process(ctx context.Context, job postprocess.Job) (postprocess.Result, error)
	Cleanup(workDir string)
}

// HistoryRecorder receives finished tasks
type HistoryRecorder interface {
	Append(ctx context.Context, r history.Record) (history.Record, error)
}

// EventBus carries the events of the running tools
type EventBus interface {
	Subscribe(h events.Handler, channels ...events.Channel) *events.Subscription
	Publish(e events.Event)
}
