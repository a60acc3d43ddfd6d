package kube

// LeaderElectionConfig configures the optional leader-election lock used
// when several replicas of the exporter run against the same cluster so
// only one of them watches and dispatches events at a time.
type LeaderElectionConfig struct {
	Enabled          bool   `yaml:"enabled"`
	LeaderElectionID string `yaml:"leaderElectionID"`
}
