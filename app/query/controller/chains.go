package controller

import (
	"net/http"
)

type chainResponse struct {
	ID     uint64  `json:"id"`
	Name   string  `json:"name"`
	Height *uint64 `json:"height"`
}

// HandleChains lists registered chains with their last known archive height.
func (c *Controller) HandleChains(w http.ResponseWriter, _ *http.Request) {
	registered := c.App.Registry.All()
	out := make([]chainResponse, 0, len(registered))
	for _, ch := range registered {
		item := chainResponse{ID: ch.ID, Name: ch.Name}
		if c.App.Tracker != nil {
			if h, ok := c.App.Tracker.Height(ch.ID); ok {
				item.Height = &h
			}
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"chains": out})
}
