package backend

import "time"

// Backend method names. The capability directory resolves protocol
// operation names (CamelCase) onto these keys.
const (
	MethodResetSystem          = "reset_system"
	MethodGetStatus            = "get_status"
	MethodSetImageMatchingType = "set_image_matching_type"
	MethodAddPart              = "add_part"
	MethodTracePart            = "trace_part"
)

// Durations holds per-method execution estimates in milliseconds. They
// feed the estimators and pace the providers' simulated delays.
type Durations map[string]float64

// DefaultDurations returns the stock estimates for a simulated system.
func DefaultDurations() Durations {
	return Durations{
		MethodResetSystem:          5,
		MethodGetStatus:            10,
		MethodSetImageMatchingType: 10,
		MethodAddPart:              2000,
		MethodTracePart:            2100,
	}
}

// estimate returns the duration for method, or -1 if none is configured.
func (d Durations) estimate(method string) float64 {
	if ms, ok := d[method]; ok {
		return ms
	}
	return -1
}

// delay converts the method's estimate to a time.Duration scaled by
// fraction (e.g. 0.4 for the image-acquisition phase of add_part).
func (d Durations) delay(method string, fraction float64) time.Duration {
	ms, ok := d[method]
	if !ok || ms <= 0 {
		return 0
	}
	return time.Duration(ms * fraction * float64(time.Millisecond))
}

// fixedEstimator builds an estimator returning a constant accepted
// PriorInfo with the method's configured duration.
func (d Durations) fixedEstimator(method string) EstimatorFunc {
	return func([]any) PriorInfo {
		return PriorInfo{
			ExpectedDurationMS: d.estimate(method),
			TriggerResult:      TriggerAccepted,
			ResultMessage:      "",
			ResultCode:         0,
		}
	}
}
