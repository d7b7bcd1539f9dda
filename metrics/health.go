package metrics

// HealthCheck is the outcome of running a single health check.
type HealthCheck struct {
	IsHealthy bool   `bson:"healthy" json:"healthy" yaml:"healthy"`
	Message   string `bson:"message" json:"message" yaml:"message"`
}

// HealthCheckResult pairs a registered check's name and tags with its
// outcome. The name may carry key=value segments,
// e.g. "Name=Database,region=us east".
type HealthCheckResult struct {
	Name  string      `bson:"name" json:"name" yaml:"name"`
	Tags  Tags        `bson:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
	Check HealthCheck `bson:"check" json:"check" yaml:"check"`
}

// HealthStatus is the set of results of one health check run.
type HealthStatus struct {
	Results []HealthCheckResult `bson:"results,omitempty" json:"results,omitempty" yaml:"results,omitempty"`
}

// IsHealthy reports whether every check passed.
func (s HealthStatus) IsHealthy() bool {
	for _, r := range s.Results {
		if !r.Check.IsHealthy {
			return false
		}
	}
	return true
}

// Healthy constructs a passing result.
func Healthy(name, message string, tags ...Tag) HealthCheckResult {
	return HealthCheckResult{Name: name, Tags: tags, Check: HealthCheck{IsHealthy: true, Message: message}}
}

// Unhealthy constructs a failing result.
func Unhealthy(name, message string, tags ...Tag) HealthCheckResult {
	return HealthCheckResult{Name: name, Tags: tags, Check: HealthCheck{Message: message}}
}
