package models

import "errors"

// DeploymentStatus is the lifecycle state of a deployment.
type DeploymentStatus string

const (
	DeploymentDeploying DeploymentStatus = "deploying"
	DeploymentLive      DeploymentStatus = "live"
	DeploymentFailed    DeploymentStatus = "failed"
)

// Terminal reports whether no further transitions are possible from s.
func (s DeploymentStatus) Terminal() bool {
	return s == DeploymentLive || s == DeploymentFailed
}

// CanTransition reports whether s may move to next. The only edges are
// deploying -> live and deploying -> failed; staying put is always allowed.
func (s DeploymentStatus) CanTransition(next DeploymentStatus) bool {
	if s == next {
		return true
	}
	return s == DeploymentDeploying && next.Terminal()
}

// DeploymentConfig is fixed when the deployment is created.
type DeploymentConfig struct {
	Memory  string `json:"memory"`
	Timeout int    `json:"timeout"`
}

// DefaultDeploymentConfig is applied to every new deployment.
var DefaultDeploymentConfig = DeploymentConfig{Memory: "512MB", Timeout: 30}

// DeploymentMetrics is the snapshot attached to a live deployment.
type DeploymentMetrics struct {
	Requests   int    `json:"requests"`
	AvgLatency string `json:"avgLatency"`
	ErrorRate  string `json:"errorRate"`
	Uptime     string `json:"uptime"`
}

// InitialMetrics is what a freshly live deployment reports.
func InitialMetrics() *DeploymentMetrics {
	return &DeploymentMetrics{Requests: 0, AvgLatency: "0ms", ErrorRate: "0%", Uptime: "100%"}
}

// Deployment is one simulated rollout of a project.
type Deployment struct {
	ID         string             `json:"id"`
	ProjectID  string             `json:"projectId"`
	Status     DeploymentStatus   `json:"status"`
	URL        string             `json:"url,omitempty"`
	Error      string             `json:"error,omitempty"`
	DeployedAt Time               `json:"deployedAt"`
	Config     DeploymentConfig   `json:"config"`
	Metrics    *DeploymentMetrics `json:"metrics,omitempty"`
}

var (
	ErrMetricsWithoutLive = errors.New("metrics are only allowed on live deployments")
	ErrErrorWithoutFailed = errors.New("error is only allowed on failed deployments")
	ErrLiveWithoutMetrics = errors.New("live deployment must carry metrics")
	ErrFailedWithoutError = errors.New("failed deployment must carry an error")
)

// Check verifies that metrics are present iff live and error iff failed.
func (d Deployment) Check() error {
	switch d.Status {
	case DeploymentLive:
		if d.Metrics == nil {
			return ErrLiveWithoutMetrics
		}
	case DeploymentFailed:
		if d.Error == "" {
			return ErrFailedWithoutError
		}
	}
	if d.Metrics != nil && d.Status != DeploymentLive {
		return ErrMetricsWithoutLive
	}
	if d.Error != "" && d.Status != DeploymentFailed {
		return ErrErrorWithoutFailed
	}
	return nil
}

// Clone returns a deep copy of d.
func (d Deployment) Clone() Deployment {
	out := d
	if d.Metrics != nil {
		m := *d.Metrics
		out.Metrics = &m
	}
	return out
}

// DeploymentPatch holds the mutable fields of a deployment. Config and
// DeployedAt are deliberately absent.
type DeploymentPatch struct {
	Status  *DeploymentStatus
	URL     *string
	Error   *string
	Metrics *DeploymentMetrics
}

// Apply merges the patch onto d.
func (patch DeploymentPatch) Apply(d *Deployment) {
	if patch.Status != nil {
		d.Status = *patch.Status
	}
	if patch.URL != nil {
		d.URL = *patch.URL
	}
	if patch.Error != nil {
		d.Error = *patch.Error
	}
	if patch.Metrics != nil {
		m := *patch.Metrics
		d.Metrics = &m
	}
}
