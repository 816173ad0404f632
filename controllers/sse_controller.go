package controllers

import (
	"io"

	"obratools/notify"

	"github.com/gin-gonic/gin"
)

type SSEController struct {
	Hub *notify.Hub
}

func NewSSEController(hub *notify.Hub) *SSEController { return &SSEController{Hub: hub} }

// Stream mantiene la conexión abierta y reenvía cada evento publicado en el
// hub hasta que el cliente se desconecta. No hay replay: el cliente debe
// recargar el estado completo al (re)conectar.
func (sc *SSEController) Stream(c *gin.Context) {
	ch, cancel := sc.Hub.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	_, _ = c.Writer.WriteString(": connected\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Event, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
