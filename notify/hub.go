package notify

import (
	"encoding/json"
	"sync"

	"github.com/gin-contrib/sse"
	"github.com/rs/zerolog/log"
)

// Nombres de evento publicados por el backend.
const (
	EventoHerramientaCreated = "herramienta:created"
	EventoHerramientaUpdated = "herramienta:updated"
	EventoHerramientaEstado  = "herramienta:estado"
	EventoHerramientaDeleted = "herramienta:deleted"
	EventoPrestamoCreated    = "prestamo:created"
	EventoPrestamoClosed     = "prestamo:closed"
)

const subBuffer = 16

// Hub reparte eventos a los visores SSE conectados. No hay replay ni
// garantía de entrega: quien se conecta tarde debe recargar estado completo.
type Hub struct {
	mu   sync.Mutex
	subs map[chan sse.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan sse.Event]struct{})}
}

// Subscribe registra un visor. La función de cierre lo retira del hub y
// cierra el canal; es segura de llamar más de una vez.
func (h *Hub) Subscribe() (<-chan sse.Event, func()) {
	ch := make(chan sse.Event, subBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// cerrar bajo el lock para que Publish nunca escriba a un canal cerrado
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish serializa el payload una sola vez y lo escribe a cada visor.
// Un visor lento o desconectado se salta; nunca afecta al resto ni al
// request que originó el evento.
func (h *Hub) Publish(evento string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("evento", evento).Msg("sse payload marshal failed")
		return
	}
	ev := sse.Event{Event: evento, Data: string(data)}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Count informa cuántos visores hay conectados.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
