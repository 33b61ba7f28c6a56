package config

// BasicService is the common on/off + bind-address shape shared by the
// service's optional HTTP surfaces (metrics, pprof-style admin probes).
type BasicService struct {
	Enabled   bool     `yaml:"Enabled"`
	Addresses []string `yaml:"Addresses"`
}
