// Package dashboard is the read-only operator TUI of spec.md §12.5: it
// polls a running node's admin HTTP /handles endpoint and renders the
// registered-service count as a termui gauge and plot. It is a client
// only — it never touches the core directly.
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

type handleCount struct {
	Count int `json:"count"`
}

// Run starts the dashboard against a node's admin HTTP address (e.g.
// ":7000") and blocks until 'q' or Ctrl-C.
func Run(adminAddr string) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("dashboard: init termui: %w", err)
	}
	defer ui.Close()

	gauge := widgets.NewGauge()
	gauge.Title = "registered services"
	gauge.SetRect(0, 0, 50, 3)

	plot := widgets.NewPlot()
	plot.Title = "handle count over time"
	plot.Data = [][]float64{make([]float64, 0, 60)}
	plot.SetRect(0, 3, 50, 20)

	client := &http.Client{Timeout: 2 * time.Second}
	samples := make([]float64, 0, 60)

	poll := func() {
		resp, err := client.Get("http://" + adminAddr + "/handles")
		if err != nil {
			return
		}
		defer resp.Body.Close()
		var hc handleCount
		if json.NewDecoder(resp.Body).Decode(&hc) != nil {
			return
		}
		samples = append(samples, float64(hc.Count))
		if len(samples) > 60 {
			samples = samples[len(samples)-60:]
		}
		plot.Data[0] = samples
		gauge.Percent = clampPercent(hc.Count)
		ui.Render(gauge, plot)
	}

	poll()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-ticker.C:
			poll()
		}
	}
}

func clampPercent(n int) int {
	if n > 100 {
		return 100
	}
	if n < 0 {
		return 0
	}
	return n
}
