package agent

// ThrottleSkip reports whether the agent at index (stable across steps,
// e.g. its position in the sector's fleet slice) is skipped this step
// under a fleet-wide throttle factor. Rather than each agent
// independently rolling random() < throttle, exactly
// floor(throttle*total) agents are skipped per step, chosen as a
// contiguous window that rotates by one position every step (offset is
// typically the current step count t). This keeps step traces
// reproducible across platforms without depending on a PRNG's
// distribution shape.
func ThrottleSkip(index, total int, throttle float64, offset int) bool {
	if total <= 0 || throttle <= 0 {
		return false
	}
	count := int(throttle * float64(total))
	if count <= 0 {
		return false
	}
	if count > total {
		count = total
	}
	pos := ((index-offset)%total + total) % total
	return pos < count
}
