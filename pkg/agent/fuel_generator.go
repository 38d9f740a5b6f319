package agent

import "github.com/proxima-sim/proxima/pkg/model"

// FuelGenerator converts available He3 into rocket propellant each step:
// kWh_avail = he3_processed * GWh_thermal * 1e6 * efficiency,
// prop_out = kWh_avail / kWh_per_kg_prop.
type FuelGenerator struct {
	Base
	GWhThermal   float64
	Efficiency   float64
	KWhPerKgProp float64
}

// NewFuelGenerator constructs an idle FuelGenerator.
func NewFuelGenerator(id, sectorID string, lifetimeCap int, gWhThermal, efficiency, kWhPerKgProp float64) *FuelGenerator {
	return &FuelGenerator{
		Base:         NewBase(id, "FuelGenerator", sectorID, lifetimeCap),
		GWhThermal:   gWhThermal,
		Efficiency:   efficiency,
		KWhPerKgProp: kWhPerKgProp,
	}
}

// Step converts he3Processed kg of He3 into rocket_fuel, debiting He3 and
// crediting rocket_fuel on the sector's stock.
func (f *FuelGenerator) Step(he3Processed float64) []model.StockFlow {
	f.Tick()
	if f.Retired() || f.Faulted() {
		return nil
	}
	if he3Processed <= 0 {
		f.Mode = model.ModeIdle
		return nil
	}
	f.Mode = model.ModeActive

	kWhAvail := he3Processed * f.GWhThermal * 1e6 * f.Efficiency
	propOut := kWhAvail / f.KWhPerKgProp

	return []model.StockFlow{
		{Source: f.SectorID, Dest: model.ExternalParty, ResourceID: "he3", Delta: he3Processed},
		{Source: model.ExternalParty, Dest: f.SectorID, ResourceID: "rocket_fuel", Delta: propOut},
	}
}
