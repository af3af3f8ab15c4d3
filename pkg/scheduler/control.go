package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/ipc"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/registry"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

type controlRequest struct {
	req   ipc.Request
	reply chan ipc.Response
}

// StatusReport is the payload of the status command.
type StatusReport struct {
	Uptime  string            `json:"uptime"`
	Theme   string            `json:"theme"`
	Socket  string            `json:"socket,omitempty"`
	Overlap OverlapPolicy     `json:"overlap"`
	Items   []registry.Status `json:"items"`
}

// Handle passes a control request to the loop and waits for its response.
// It implements ipc.Handler.
func (e *Engine) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	cr := controlRequest{req: req, reply: make(chan ipc.Response, 1)}
	select {
	case e.requests <- cr:
	case <-e.done:
		return ipc.Fail(ipc.KindShuttingDown, "bar is shutting down")
	case <-ctx.Done():
		return ipc.Fail(ipc.KindShuttingDown, "bar is shutting down")
	}
	select {
	case resp := <-cr.reply:
		return resp
	case <-e.done:
		return ipc.Fail(ipc.KindShuttingDown, "bar is shutting down")
	case <-ctx.Done():
		return ipc.Fail(ipc.KindShuttingDown, "bar is shutting down")
	}
}

// handleRequest runs on the loop. Most commands answer immediately; a
// custom event answers once the item call completes.
func (e *Engine) handleRequest(ctx context.Context, cr controlRequest) error {
	req := cr.req
	respond := func(r ipc.Response) { cr.reply <- r }

	switch req.Command {
	case ipc.CmdGetBarItems:
		respond(ipc.OK(e.reg.Items()))

	case ipc.CmdRefreshAll:
		for i := 0; i < e.reg.Len(); i++ {
			e.submit(ctx, i, job{kind: jobRefresh, trigger: item.TriggerRefresh})
		}
		respond(ipc.OK(nil))

	case ipc.CmdClick:
		if req.Instance == "" {
			respond(ipc.Fail(ipc.KindBadRequest, "click requires an instance"))
			return nil
		}
		if req.Button == 0 {
			req.Button = i3.ButtonLeft
		}
		if _, err := e.reg.Find(req.Instance); err != nil {
			respond(ipc.Fail(ipc.KindNotFound, "%v", err))
			return nil
		}
		e.dispatchClick(ctx, req.ClickEvent())
		respond(ipc.OK(nil))

	case ipc.CmdSignal:
		slot, err := e.reg.Find(req.Target)
		if err != nil {
			respond(ipc.Fail(ipc.KindNotFound, "%v", err))
			return nil
		}
		e.submit(ctx, slot.Index, job{kind: jobRefresh, trigger: item.TriggerSignal})
		respond(ipc.OK(nil))

	case ipc.CmdCustom:
		slot, err := e.reg.Find(req.Target)
		if err != nil {
			respond(ipc.Fail(ipc.KindNotFound, "%v", err))
			return nil
		}
		// The item call answers through cr.reply.
		e.submit(ctx, slot.Index, job{
			kind:    jobCustom,
			trigger: item.TriggerCustom,
			args:    req.CustomArgs(),
			reply:   cr.reply,
		})

	case ipc.CmdGetTheme:
		respond(ipc.OK(e.theme))

	case ipc.CmdSetTheme:
		th, err := setTheme(e.theme, req.Path, req.Value)
		if err != nil {
			respond(ipc.Fail(ipc.KindBadRequest, "%v", err))
			return nil
		}
		e.theme = th
		e.logger.Info("theme updated", "path", req.Path)
		respond(ipc.OK(nil))
		return e.render()

	case ipc.CmdGetBar:
		respond(ipc.OK(e.renderer.Render(e.reg.Visible(), e.theme)))

	case ipc.CmdGetConfig:
		respond(ipc.OK(e.cfg.Settings))

	case ipc.CmdStatus:
		respond(ipc.OK(StatusReport{
			Uptime:  time.Since(e.started).Round(time.Second).String(),
			Theme:   e.theme.Name,
			Socket:  e.cfg.SocketPath,
			Overlap: e.cfg.Overlap,
			Items:   e.reg.AllStatus(),
		}))

	case ipc.CmdShutdown:
		respond(ipc.OK(nil))
		select {
		case <-e.shutdown:
		default:
			close(e.shutdown)
		}

	default:
		respond(ipc.Fail(ipc.KindUnknownCommand, "unknown command %q", req.Command))
	}
	return nil
}

// setTheme applies one dotted-path change. An empty path replaces the whole
// theme.
func setTheme(current theme.Theme, path string, raw json.RawMessage) (theme.Theme, error) {
	if len(raw) == 0 {
		return current, fmt.Errorf("set_theme requires a value")
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return current, fmt.Errorf("invalid value: %w", err)
	}
	return current.Set(path, value)
}
