package lander

func alerting(s Snapshot) bool {
	return (s.Altitude < DangerAltitude && s.Velocity < DangerVelocity) ||
		s.Fuel < FuelCritical ||
		s.Temperature > TemperatureCritical
}

func deriveStatus(s Snapshot) Status {
	switch {
	case s.Aborted:
		return StatusAborted
	case s.Altitude == 0 && s.GearDeployed:
		return StatusLanded
	case alerting(s):
		return StatusAlerting
	default:
		return StatusNominal
	}
}

func derivePhase(altitude float64) Phase {
	switch {
	case altitude > 500:
		return PhaseDescent
	case altitude > GearMaxAltitude:
		return PhaseApproach
	default:
		return PhaseLanding
	}
}

func deriveSystems(s Snapshot) Systems {
	return Systems{
		Propulsion: s.Fuel > 5 && !s.Aborted,
		Navigation: s.Altitude > 0,
		Comms:      true,
		Computer:   true,
		Sensors:    s.Temperature < 280,
		Power:      true,
		Guidance:   s.Altitude > DangerAltitude,
		Control:    true,
	}
}

// Healthy counts the subsystems reporting healthy.
func (s Systems) Healthy() int {
	n := 0
	for _, ok := range []bool{
		s.Propulsion, s.Navigation, s.Comms, s.Computer,
		s.Sensors, s.Power, s.Guidance, s.Control,
	} {
		if ok {
			n++
		}
	}
	return n
}
