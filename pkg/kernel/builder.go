package kernel

import (
	"encoding/json"
	"fmt"

	"github.com/proxima-sim/proxima/pkg/agent"
	"github.com/proxima-sim/proxima/pkg/config"
	"github.com/proxima-sim/proxima/pkg/kernelerr"
	"github.com/proxima-sim/proxima/pkg/sector"
)

// Component spec shapes, decoded from a ResolvedComponent's merged
// Defaults via a JSON round-trip (the Builder hands the kernel opaque
// map[string]any; these are the typed views each component Type expects).

type isruModeSpec struct {
	PowerKWh       float64            `json:"power_kwh"`
	Inputs         map[string]float64 `json:"inputs"`
	Outputs        map[string]float64 `json:"outputs"`
	ThroughputTons float64            `json:"throughput_tons"`
	MinPPB         float64            `json:"min_ppb"`
	ModePPB        float64            `json:"mode_ppb"`
	MaxPPB         float64            `json:"max_ppb"`
	Efficiency     float64            `json:"efficiency"`
}

type isruSpec struct {
	LifetimeCapSteps int                     `json:"lifetime_cap_steps"`
	Modes            map[string]isruModeSpec `json:"modes"`
}

type printingRobotSpec struct {
	LifetimeCapSteps    int     `json:"lifetime_cap_steps"`
	ProcessingTimeSteps int     `json:"processing_time_steps"`
	RegolithPerStep     float64 `json:"regolith_per_step"`
	PowerPerStep        float64 `json:"power_per_step"`
}

type assemblyRobotSpec struct {
	LifetimeCapSteps    int `json:"lifetime_cap_steps"`
	ProcessingTimeSteps int `json:"processing_time_steps"`
}

type rocketSpec struct {
	LifetimeCapSteps     int     `json:"lifetime_cap_steps"`
	CruiseSpeedKmPerStep float64 `json:"cruise_speed_km_per_step"`
	LoadingSteps         int     `json:"loading_steps"`
}

type fuelGeneratorSpec struct {
	LifetimeCapSteps int     `json:"lifetime_cap_steps"`
	GWhThermalPerKg  float64 `json:"gwh_thermal_per_kg"`
	Efficiency       float64 `json:"efficiency"`
	KWhPerKgProp     float64 `json:"kwh_per_kg_prop"`
}

type scienceRoverSpec struct {
	LifetimeCapSteps  int     `json:"lifetime_cap_steps"`
	BatteryCapacity   float64 `json:"battery_capacity"`
	MinBatteryToOp    float64 `json:"min_battery_to_op"`
	ScienceGeneration float64 `json:"science_per_step"`
	ChargeRateKWh     float64 `json:"charge_rate_kwh"`
	OperatingPowerKWh float64 `json:"power_per_step"`
}

// Sector-level Params shapes, decoded from SectorComposition.Params.

type energyParams struct {
	GenerationKWh   float64 `json:"generation_kwh"`
	BatteryCapacity float64 `json:"battery_capacity"`
}

type manufacturingParams struct {
	Tau                float64            `json:"tau"`
	Priorities         map[string]float64 `json:"priorities"`
	He3Threshold       float64            `json:"he3_threshold"`
	WaterThreshold     float64            `json:"water_threshold"`
	BacklogMaxAgeSteps int                `json:"backlog_max_age_steps"`
}

type moduleSpecParam struct {
	ShellsNeeded    int    `json:"shells_needed"`
	EquipmentTypeID string `json:"equipment_type_id"`
}

type constructionParams struct {
	ShellStorageCapacity int                        `json:"shell_storage_capacity"`
	ModuleSpecs          map[string]moduleSpecParam `json:"module_specs"`
}

type equipmentInventoryParam struct {
	PhysicalStock float64 `json:"physical_stock"`
	PendingOrders float64 `json:"pending_orders"`
	MinimumLevel  float64 `json:"minimum_level"`
}

type equipmentParams struct {
	Inventory          map[string]equipmentInventoryParam `json:"inventory"`
	BacklogMaxAgeSteps int                                `json:"backlog_max_age_steps"`
}

type transportationParams struct {
	PropPerKg    float64 `json:"prop_per_kg"`
	He3Threshold float64 `json:"he3_threshold"`
}

type scienceParams struct {
	PerRoverPowerKWh float64 `json:"per_rover_power_kwh"`
}

// decodeInto round-trips src (an opaque map[string]any, or nil) through
// JSON into dst, the same pattern config.Builder.getInto uses to turn
// store documents into typed views.
func decodeInto(src any, dst any) error {
	if src == nil {
		return nil
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// buildSectors assembles every sector and its agent fleets from a resolved
// world, keyed by sector id. The returned set also carries ModuleSpecs so
// the kernel can map a construction request's module_type to the equipment
// type id it needs when routing equipment_request events.
func buildSectors(rw *config.ResolvedWorld) (*sectorSet, error) {
	set := &sectorSet{}

	paramsBySector := make(map[string]map[string]any, len(rw.Sectors))
	for _, sc := range rw.Sectors {
		paramsBySector[sc.SectorID] = sc.Params
	}

	for sectorID, params := range paramsBySector {
		switch sectorID {
		case "energy":
			var p energyParams
			if err := decodeInto(params, &p); err != nil {
				return nil, &kernelerr.ConfigError{Collection: "world_systems", ID: sectorID, Err: err}
			}
			set.Energy = sector.NewEnergy(sectorID, p.GenerationKWh, p.BatteryCapacity)

		case "manufacturing":
			var p manufacturingParams
			if err := decodeInto(params, &p); err != nil {
				return nil, &kernelerr.ConfigError{Collection: "world_systems", ID: sectorID, Err: err}
			}
			priorities := make(map[agent.ISRUMode]float64, len(p.Priorities))
			for mode, v := range p.Priorities {
				priorities[agent.ISRUMode(mode)] = v
			}
			tau := p.Tau
			if tau == 0 {
				tau = 1
			}
			m := sector.NewManufacturing(sectorID, tau, priorities, p.BacklogMaxAgeSteps)
			m.He3Threshold = p.He3Threshold
			m.WaterThreshold = p.WaterThreshold
			set.Manufacturing = m

		case "construction":
			var p constructionParams
			if err := decodeInto(params, &p); err != nil {
				return nil, &kernelerr.ConfigError{Collection: "world_systems", ID: sectorID, Err: err}
			}
			specs := make(map[string]sector.ModuleSpec, len(p.ModuleSpecs))
			for moduleType, ms := range p.ModuleSpecs {
				specs[moduleType] = sector.ModuleSpec{ShellsNeeded: ms.ShellsNeeded, EquipmentTypeID: ms.EquipmentTypeID}
			}
			set.Construction = sector.NewConstruction(sectorID, p.ShellStorageCapacity, specs)
			set.ModuleSpecs = specs

		case "equipment":
			var p equipmentParams
			if err := decodeInto(params, &p); err != nil {
				return nil, &kernelerr.ConfigError{Collection: "world_systems", ID: sectorID, Err: err}
			}
			inv := make(map[string]*sector.EquipmentInventory, len(p.Inventory))
			for typeID, spec := range p.Inventory {
				inv[typeID] = &sector.EquipmentInventory{
					PhysicalStock: spec.PhysicalStock, PendingOrders: spec.PendingOrders, MinimumLevel: spec.MinimumLevel,
				}
			}
			set.Equipment = sector.NewEquipment(sectorID, inv, p.BacklogMaxAgeSteps)

		case "transportation":
			var p transportationParams
			if err := decodeInto(params, &p); err != nil {
				return nil, &kernelerr.ConfigError{Collection: "world_systems", ID: sectorID, Err: err}
			}
			set.Transportation = sector.NewTransportation(sectorID, p.PropPerKg, p.He3Threshold)

		case "science":
			var p scienceParams
			if err := decodeInto(params, &p); err != nil {
				return nil, &kernelerr.ConfigError{Collection: "world_systems", ID: sectorID, Err: err}
			}
			set.Science = sector.NewScience(sectorID, p.PerRoverPowerKWh)

		default:
			return nil, &kernelerr.ConfigError{Collection: "world_systems", ID: sectorID, Err: fmt.Errorf("unknown sector id %q", sectorID)}
		}
	}

	if err := set.requireCore(); err != nil {
		return nil, err
	}

	distanceKm := rw.Environment.DistanceKm
	for _, rc := range rw.Components {
		if err := addComponent(set, rc, distanceKm); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// sectorSet holds the six assembled sectors plus bookkeeping the kernel
// needs to route bus events (module specs for equipment_request routing).
type sectorSet struct {
	Energy         *sector.Energy
	Manufacturing  *sector.Manufacturing
	Construction   *sector.Construction
	Equipment      *sector.Equipment
	Transportation *sector.Transportation
	Science        *sector.Science
	ModuleSpecs    map[string]sector.ModuleSpec
	// ScienceRoverTemplate is the first science_rover component encountered,
	// used as the fleet-growth factory when a Science_Rover_EQ module
	// completes.
	ScienceRoverTemplate *config.ResolvedComponent
	// ManufacturingModeConfigs merges every ISRU component template's mode
	// configs, keyed by mode, for the kernel's power-demand and DRR-step
	// calls. ISRU templates can carry different mode sets; where two
	// templates configure the same mode, the one added last wins.
	ManufacturingModeConfigs map[agent.ISRUMode]agent.ISRUModeConfig
}

func (s *sectorSet) requireCore() error {
	missing := []string{}
	if s.Energy == nil {
		missing = append(missing, "energy")
	}
	if s.Manufacturing == nil {
		missing = append(missing, "manufacturing")
	}
	if s.Construction == nil {
		missing = append(missing, "construction")
	}
	if s.Equipment == nil {
		missing = append(missing, "equipment")
	}
	if s.Transportation == nil {
		missing = append(missing, "transportation")
	}
	if s.Science == nil {
		missing = append(missing, "science")
	}
	if len(missing) > 0 {
		return &kernelerr.ConfigError{Collection: "world_systems", Err: fmt.Errorf("missing required sectors: %v", missing)}
	}
	return nil
}

func addComponent(set *sectorSet, rc config.ResolvedComponent, distanceKm float64) error {
	for i := 0; i < rc.Count; i++ {
		id := fmt.Sprintf("%s-%d", rc.TemplateID, i+1)
		switch rc.Type {
		case "isru":
			var s isruSpec
			if err := decodeInto(rc.Defaults, &s); err != nil {
				return &kernelerr.ConfigError{Collection: "component_templates", ID: rc.TemplateID, Err: err}
			}
			modes := make(map[agent.ISRUMode]agent.ISRUModeConfig, len(s.Modes))
			for mode, mc := range s.Modes {
				modes[agent.ISRUMode(mode)] = agent.ISRUModeConfig{
					PowerKWh: mc.PowerKWh, Inputs: mc.Inputs, Outputs: mc.Outputs,
					ThroughputTons: mc.ThroughputTons, MinPPB: mc.MinPPB, ModePPB: mc.ModePPB,
					MaxPPB: mc.MaxPPB, Efficiency: mc.Efficiency,
				}
			}
			set.Manufacturing.Fleet = append(set.Manufacturing.Fleet, agent.NewISRU(id, rc.SectorID, s.LifetimeCapSteps, modes))
			if set.ManufacturingModeConfigs == nil {
				set.ManufacturingModeConfigs = make(map[agent.ISRUMode]agent.ISRUModeConfig)
			}
			for mode, cfg := range modes {
				set.ManufacturingModeConfigs[mode] = cfg
			}

		case "printing_robot":
			var s printingRobotSpec
			if err := decodeInto(rc.Defaults, &s); err != nil {
				return &kernelerr.ConfigError{Collection: "component_templates", ID: rc.TemplateID, Err: err}
			}
			set.Construction.Printers = append(set.Construction.Printers,
				agent.NewPrintingRobot(id, rc.SectorID, s.LifetimeCapSteps, s.ProcessingTimeSteps, s.RegolithPerStep, s.PowerPerStep))

		case "assembly_robot":
			var s assemblyRobotSpec
			if err := decodeInto(rc.Defaults, &s); err != nil {
				return &kernelerr.ConfigError{Collection: "component_templates", ID: rc.TemplateID, Err: err}
			}
			set.Construction.Assemblers = append(set.Construction.Assemblers,
				agent.NewAssemblyRobot(id, rc.SectorID, s.LifetimeCapSteps, s.ProcessingTimeSteps))

		case "rocket":
			var s rocketSpec
			if err := decodeInto(rc.Defaults, &s); err != nil {
				return &kernelerr.ConfigError{Collection: "component_templates", ID: rc.TemplateID, Err: err}
			}
			set.Transportation.Fleet = append(set.Transportation.Fleet,
				agent.NewRocket(id, rc.SectorID, s.LifetimeCapSteps, distanceKm, s.CruiseSpeedKmPerStep, s.LoadingSteps))

		case "fuel_generator":
			var s fuelGeneratorSpec
			if err := decodeInto(rc.Defaults, &s); err != nil {
				return &kernelerr.ConfigError{Collection: "component_templates", ID: rc.TemplateID, Err: err}
			}
			set.Transportation.FuelGenerators = append(set.Transportation.FuelGenerators,
				agent.NewFuelGenerator(id, rc.SectorID, s.LifetimeCapSteps, s.GWhThermalPerKg, s.Efficiency, s.KWhPerKgProp))

		case "science_rover":
			var s scienceRoverSpec
			if err := decodeInto(rc.Defaults, &s); err != nil {
				return &kernelerr.ConfigError{Collection: "component_templates", ID: rc.TemplateID, Err: err}
			}
			set.Science.Fleet = append(set.Science.Fleet,
				agent.NewScienceRover(id, rc.SectorID, s.LifetimeCapSteps, s.ScienceGeneration, s.OperatingPowerKWh,
					s.BatteryCapacity, s.MinBatteryToOp, s.ChargeRateKWh))
			if set.ScienceRoverTemplate == nil {
				tmplCopy := rc
				set.ScienceRoverTemplate = &tmplCopy
			}

		default:
			return &kernelerr.ConfigError{Collection: "component_templates", ID: rc.TemplateID, Err: fmt.Errorf("unknown component type %q", rc.Type)}
		}
	}
	return nil
}

// newScienceRoverFactory returns a constructor Science.OnModuleCompleted can
// call to grow the fleet with a rover matching the given template defaults.
func newScienceRoverFactory(rc config.ResolvedComponent, idSuffix string) (func() *agent.ScienceRover, error) {
	var s scienceRoverSpec
	if err := decodeInto(rc.Defaults, &s); err != nil {
		return nil, &kernelerr.ConfigError{Collection: "component_templates", ID: rc.TemplateID, Err: err}
	}
	return func() *agent.ScienceRover {
		id := fmt.Sprintf("%s-grown-%s", rc.TemplateID, idSuffix)
		return agent.NewScienceRover(id, rc.SectorID, s.LifetimeCapSteps, s.ScienceGeneration, s.OperatingPowerKWh,
			s.BatteryCapacity, s.MinBatteryToOp, s.ChargeRateKWh)
	}, nil
}
