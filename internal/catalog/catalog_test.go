package catalog

import (
	"testing"

	"profiled/pkg/types"
)

func TestUpsertNeverOverwrites(t *testing.T) {
	c := New()
	if !c.Upsert(types.Profile{ID: "a", ModelID: "org/a", Name: "first"}) {
		t.Fatalf("expected insert")
	}
	if c.Upsert(types.Profile{ID: "a", ModelID: "org/other", Name: "second"}) {
		t.Fatalf("expected existing entry to be kept")
	}
	p, _ := c.Get("a")
	if p.Name != "first" || p.ModelID != "org/a" {
		t.Fatalf("entry overwritten: %+v", p)
	}
}

func TestListReturnsCopy(t *testing.T) {
	c := New()
	c.Upsert(types.Profile{ID: "a"})
	c.Upsert(types.Profile{ID: "b"})
	out := c.List()
	out[0].ID = "z"
	if c.List()[0].ID != "a" {
		t.Fatalf("catalog mutated via returned slice")
	}
}

func TestSynthesize(t *testing.T) {
	p := Synthesize("org/Model-X")
	if p.ID != "model-x" || p.Name != "Model-X" || p.ModelID != "org/Model-X" || !p.Synthesized {
		t.Fatalf("unexpected synthesized profile: %+v", p)
	}
	if p.TensorParallelSize != 1 || p.HardwareRequirements.MinGPUs != 1 || p.HardwareRequirements.MinVRAMGB != DefaultMinVRAMGB {
		t.Fatalf("expected conservative defaults: %+v", p)
	}
	if q := Synthesize("/models/weights dir/"); q.ID == "" {
		t.Fatalf("empty id for odd model path: %+v", q)
	}
}

func TestAddDiscovered(t *testing.T) {
	c := New()
	c.Upsert(types.Profile{ID: "model-x", ModelID: "other/model-x"})

	p, added := c.AddDiscovered("org/model-x")
	if !added || p.ID != "model-x-2" || p.ModelID != "org/model-x" {
		t.Fatalf("unexpected discovered profile: added=%v %+v", added, p)
	}
	again, added := c.AddDiscovered("org/model-x")
	if added || again.ID != "model-x-2" {
		t.Fatalf("expected existing match, got added=%v %+v", added, again)
	}
	if got, ok := c.FindByModel("org/model-x"); !ok || got.ID != "model-x-2" {
		t.Fatalf("FindByModel: %+v ok=%v", got, ok)
	}
}
