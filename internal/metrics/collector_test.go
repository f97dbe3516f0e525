package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dshills/reactive"
)

// gatherValue returns the value of the named metric for a registry label.
func gatherValue(t *testing.T, reg *prometheus.Registry, name, registry string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue(m, "registry") != registry {
				continue
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				return m.GetCounter().GetValue(), true
			case dto.MetricType_GAUGE:
				return m.GetGauge().GetValue(), true
			}
		}
	}
	return 0, false
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestCollector_ReportsStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector()
	reg.MustRegister(c)

	ev := reactive.NewEvent[int](reactive.WithName("clicks"))
	h1 := ev.Hook(func(int) {})
	h2 := ev.Hook(func(int) {})
	defer h1.Close()
	defer h2.Close()
	c.Add("clicks", ev)

	for i := range 3 {
		if err := ev.Invoke(i); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		metric string
		want   float64
	}{
		{"reactive_invocations_total", 3},
		{"reactive_callbacks_total", 6},
		{"reactive_callback_panics_total", 0},
		{"reactive_subscribers", 2},
		{"reactive_poisoned", 0},
	}
	for _, tt := range tests {
		got, ok := gatherValue(t, reg, tt.metric, "clicks")
		if !ok {
			t.Errorf("%s{registry=clicks} not found", tt.metric)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %v, want %v", tt.metric, got, tt.want)
		}
	}
}

func TestCollector_ReportsPoison(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector()
	reg.MustRegister(c)

	p := reactive.NewProperty(0, reactive.WithName("count"))
	b := p.BindChanged(func(int) { panic("boom") })
	defer b.Close()
	c.Add("count", p)

	_ = p.Set(1)

	if got, _ := gatherValue(t, reg, "reactive_callback_panics_total", "count"); got != 1 {
		t.Errorf("panics = %v, want 1", got)
	}
	if got, _ := gatherValue(t, reg, "reactive_poisoned", "count"); got != 1 {
		t.Errorf("poisoned = %v, want 1", got)
	}

	p.ClearPoison()
	if got, _ := gatherValue(t, reg, "reactive_poisoned", "count"); got != 0 {
		t.Errorf("poisoned after ClearPoison = %v, want 0", got)
	}
}

func TestCollector_AddRemove(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(WithNamespace("app"), WithConstLabels(prometheus.Labels{"instance": "test"}))
	reg.MustRegister(c)

	c.Add("b", reactive.NewEvent[string]())
	c.Add("a", reactive.NewEvent[string]())

	names := c.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("Names() = %v, want [a b]", names)
	}
	if _, ok := gatherValue(t, reg, "app_subscribers", "a"); !ok {
		t.Error("app_subscribers{registry=a} not found")
	}

	c.Remove("a")
	if _, ok := gatherValue(t, reg, "app_subscribers", "a"); ok {
		t.Error("removed source still reported")
	}
	if _, ok := gatherValue(t, reg, "app_subscribers", "b"); !ok {
		t.Error("app_subscribers{registry=b} not found")
	}
}
