package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorgonia/gaussnet"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

type info struct {
	Name  string  `json:"name"`
	Epoch int     `json:"epoch"`
	Step  int64   `json:"step"`
	Cost  float32 `json:"cost"`
}

// Encoder streams the cost of every step to websocket clients. Steps taken while no client is
// listening are dropped.
type Encoder struct {
	info chan info
}

var upgrader = websocket.Upgrader{} // use default options

func NewEncoder() *Encoder {
	return &Encoder{info: make(chan info, 64)}
}

func (enc *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer c.Close()
	for {
		var msg info
		select {
		case msg = <-enc.info:
		case <-r.Context().Done():
			return
		}
		b, err := json.Marshal(msg)
		if err != nil {
			log.Println("marshal:", err)
			return
		}
		if err = c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Println("write:", err)
			return
		}
	}
}

func (enc *Encoder) Encode(ms gaussnet.MetaState) error {
	select {
	case enc.info <- info{Name: ms.Name(), Epoch: ms.Epoch(), Step: ms.Steps(), Cost: ms.Cost()}:
	default:
	}
	return nil
}

func (enc *Encoder) Flush() error { return nil }

// encoders fans a step out to several encoders.
type encoders []gaussnet.OutputEncoder

func (es encoders) Encode(ms gaussnet.MetaState) error {
	for _, e := range es {
		if err := e.Encode(ms); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (es encoders) Flush() error {
	for _, e := range es {
		if err := e.Flush(); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
