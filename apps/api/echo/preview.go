package echoapi

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/editor"
)

const (
	previewWriteWait  = 10 * time.Second
	previewPongWait   = 60 * time.Second
	previewPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// tokens travel in the query string, so the origin is not what authenticates the socket
	CheckOrigin: func(r *http.Request) bool { return true },
}

// previewFrame is pushed to the client after every change of the session.
type previewFrame struct {
	State editor.State  `json:"state"`
	HTML  template.HTML `json:"html"`
}

// preview streams the rendered session state over a websocket until the client hangs up
// or the session ends.
func (api *editorApi) preview(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	states, unsubscribe, err := api.svc.Subscribe(ctx.Param("sid"), actor)
	if err != nil {
		return err
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	defer conn.Close()

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(previewPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case state, ok := <-states:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(previewWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return nil
			}
			frame, err := renderFrame(state)
			if err != nil {
				api.logger.Error("rendering preview", err, core.Person{ID: actor.ID, Username: actor.Username})
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(previewWriteWait))
			if err = conn.WriteJSON(frame); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(previewWriteWait))
			if err = conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}

func renderFrame(state editor.State) (previewFrame, error) {
	html, err := blocktree.RenderHTML(state.Blocks, state.CurrentBreakpoint)
	if err != nil {
		return previewFrame{}, err
	}
	return previewFrame{State: state, HTML: html}, nil
}

// readPump drains the client messages so pongs and close frames get processed.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(previewPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(previewPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
