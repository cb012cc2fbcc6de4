package steps

import "time"

// Tuning constants for expansion. Volumes are mL, speeds mL/min, stir
// speeds RPM, pressures mbar, temperatures degrees C.
const (
	DefaultStirSpeed        = 250.0
	DefaultReagentStirSpeed = 200.0

	DefaultMoveSpeed       = 40.0
	DefaultAspirationSpeed = 10.0
	DefaultDispenseSpeed   = 40.0

	DefaultPrimeVolume         = 3.0
	DefaultAirFlushVolume      = 5.0
	DefaultAfterAddWait        = 10 * time.Second
	DefaultCleanBackboneVolume = 3.0

	DefaultFilterExcessFactor   = 1.5
	DefaultFilterVacuumPressure = 400.0
	DefaultVacuumTime           = 10 * time.Second
	DefaultDryTime              = time.Hour
	DefaultDryWasteVolume       = 5.0
	DefaultWashStirTime         = 30 * time.Second
	DefaultWashStirSpeed        = 500.0
	DefaultWashVolume           = 20.0

	DefaultCartridgeDeadVolume = 25.0

	RoomTemperature = 25.0

	// Hardware envelopes used when picking a heater vs a chiller.
	ChillerMinTemp    = -40.0
	ChillerMaxTemp    = 140.0
	HeaterMinTemp     = 18.0
	HeaterMaxTemp     = 360.0
	RotavapMaxStirRPM = 250.0
)

// Separation routine constants.
const (
	SeparationFastStirTime  = 5 * time.Minute
	SeparationFastStirSpeed = 600.0
	SeparationSlowStirTime  = 2 * time.Minute
	SeparationSlowStirSpeed = 30.0
	SeparationSettleTime    = 5 * time.Minute

	SeparationDeadVolume       = 2.5
	SeparationPrimingVolume    = 2.5
	SeparationStepVolume       = 1.0
	SeparationInitialPumpSpeed = 10.0
	SeparationMidPumpSpeed     = 40.0
	SeparationEndPumpSpeed     = 40.0
)

// StirMode selects whether and when a step stirs its vessel. The zero
// value means the step's own default applies.
type StirMode string

const (
	StirOn      StirMode = "on"
	StirOff     StirMode = "off"
	StirSolvent StirMode = "solvent" // start stirring only once solvent is in
)

// SimulatedPhaseChange is the sensor sentinel meaning "phase change now".
// Simulators return it so dry runs terminate the separation loop without a
// real conductivity trace.
const SimulatedPhaseChange = -1.0

// Phase-change discriminant defaults. Empirically chosen for the stock
// conductivity sensor; overridable per step, but do not assume they carry
// over to other sensor types.
const (
	DiscriminantMinPoints   = 6
	DiscriminantSensitivity = 5.0
	DiscriminantMinStd      = 5.0
)
