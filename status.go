package partkv

import "fmt"

// Status is a health level derived from usage. Its numeric value is the usage
// percentage at which the level starts.
type Status int

const (
	Healthy    Status = 0
	Acceptable Status = 60
	Alert      Status = 70
	Warning    Status = 80
	Critical   Status = 90
)

// anything under 60% works well; lookups and commits degrade past that
var statusLevels = []Status{Healthy, Acceptable, Alert, Warning, Critical}

func (s Status) String() string {
	switch s {
	case Healthy:
		return "HEALTHY"
	case Acceptable:
		return "ACCEPTABLE"
	case Alert:
		return "ALERT"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// statusFor picks the highest level not above ceil(size/maxSize * 100).
func statusFor(size, maxSize int) Status {
	if maxSize <= 0 {
		return Critical
	}
	pct := ceilDiv(size*100, maxSize)
	result := Healthy
	for _, lvl := range statusLevels {
		if int(lvl) <= pct {
			result = lvl
		}
	}
	return result
}

func usageOf(size, maxSize int) float64 {
	if maxSize <= 0 {
		return 0
	}
	return float64(size) / float64(maxSize)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
