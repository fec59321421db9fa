package writer

import (
	"testing"

	cfg "github.com/tamzrod/dust-sensor/internal/config"
)

func TestBuildPlan(t *testing.T) {
	slot := uint16(3)
	su := uint8(7)
	c := &cfg.Config{
		Sensor: cfg.SensorConfig{ID: "pm25"},
		Targets: []cfg.TargetConfig{
			{ID: 1, Endpoint: "ep1", UnitID: 1, Address: 40, StatusUnitID: &su},
		},
		Status: cfg.StatusConfig{Slot: &slot, DeviceName: "KITCHEN"},
	}

	plan, err := BuildPlan(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.SensorID != "pm25" || len(plan.Targets) != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.Targets[0].Address != 40 {
		t.Fatalf("address not carried over")
	}
	if plan.Status == nil || plan.Status.BaseSlot != 3 || plan.Status.DeviceName != "KITCHEN" {
		t.Fatalf("unexpected status plan %+v", plan.Status)
	}
	if len(plan.Status.Targets) != 1 || plan.Status.Targets[0].UnitID != 7 {
		t.Fatalf("unexpected status targets %+v", plan.Status.Targets)
	}
}

func TestBuildPlan_StatusDisabled(t *testing.T) {
	c := &cfg.Config{
		Sensor:  cfg.SensorConfig{ID: "pm25"},
		Targets: []cfg.TargetConfig{{ID: 1, Endpoint: "ep1"}},
	}
	plan, err := BuildPlan(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Status != nil {
		t.Fatalf("status should be disabled")
	}
}

func TestBuildEndpointClients_IngestNeedsNoConnection(t *testing.T) {
	c := &cfg.Config{
		Targets: []cfg.TargetConfig{
			{ID: 1, Transport: cfg.TransportIngest, Endpoint: "127.0.0.1:9"},
			{ID: 2, Transport: cfg.TransportIngest, Endpoint: "127.0.0.1:9", UnitID: 2},
		},
	}
	clients, closeAll, err := BuildEndpointClients(c, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeAll()

	if len(clients) != 1 {
		t.Fatalf("expected one client per endpoint, got %d", len(clients))
	}
}
