package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TimeLayout is the textual form used for range bounds in config and on the
// command line, e.g. 2023-01-01-00:00. Times are interpreted as UTC.
const TimeLayout = "2006-01-02-15:04"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type RPCConfig struct {
	URL              string `mapstructure:"url"`
	RequestTimeoutMs int    `mapstructure:"requestTimeoutMs"`
	FetchDelayMs     int    `mapstructure:"fetchDelayMs"`
}

type RangeConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type IntervalConfig struct {
	SpanKind   string  `mapstructure:"spanKind"`
	SpanLength float64 `mapstructure:"spanLength"`
	Aligned    bool    `mapstructure:"aligned"`
}

type SamplingConfig struct {
	Policy            string `mapstructure:"policy"`
	ObservationBudget int    `mapstructure:"observationBudget"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory"`
}

type OrchestratorConfig struct {
	Workers                int      `mapstructure:"workers"`
	Endpoints              []string `mapstructure:"endpoints"`
	Project                string   `mapstructure:"project"`
	Zone                   string   `mapstructure:"zone"`
	MachineType            string   `mapstructure:"machineType"`
	BootDiskSize           string   `mapstructure:"bootDiskSize"`
	Repo                   string   `mapstructure:"repo"`
	DataDir                string   `mapstructure:"dataDir"`
	PollIntervalSeconds    int      `mapstructure:"pollIntervalSeconds"`
	MaxPollIntervalSeconds int      `mapstructure:"maxPollIntervalSeconds"`
	CreateConcurrency      int      `mapstructure:"createConcurrency"`
}

type Config struct {
	RPC          RPCConfig          `mapstructure:"rpc"`
	Range        RangeConfig        `mapstructure:"range"`
	Interval     IntervalConfig     `mapstructure:"interval"`
	Sampling     SamplingConfig     `mapstructure:"sampling"`
	Output       OutputConfig       `mapstructure:"output"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Log          LogConfig          `mapstructure:"log"`
}

var Cfg Config

func LoadConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file, %s", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")

		if err := viper.ReadInConfig(); err != nil {
			// env-only operation is the normal mode on worker VMs
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return fmt.Errorf("error reading config file, %s", err)
			}
		}
	}

	// sets e.g. RPC_URL to rpc.url
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv()

	err := viper.Unmarshal(&Cfg)
	if err != nil {
		return fmt.Errorf("error unmarshalling config: %v", err)
	}

	return nil
}

// ParseRangeTime parses a range bound in TimeLayout form as UTC.
func ParseRangeTime(value string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, value, time.UTC)
}

// ValidateExtraction checks every setting the extraction pipeline needs and
// reports all missing or invalid keys in a single error.
func (c *Config) ValidateExtraction() error {
	var problems []string
	if c.RPC.URL == "" {
		problems = append(problems, "rpc.url is not set")
	}
	problems = append(problems, c.validateRange()...)
	if c.Interval.SpanKind == "" {
		problems = append(problems, "interval.spanKind is not set")
	}
	if c.Interval.SpanLength <= 0 {
		problems = append(problems, "interval.spanLength must be a positive number")
	}
	if c.Sampling.Policy == "" {
		problems = append(problems, "sampling.policy must be set explicitly to \"exhaustive\" or \"sampled\"")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateOrchestration checks every setting the VM orchestration layer needs.
func (c *Config) ValidateOrchestration() error {
	var problems []string
	problems = append(problems, c.validateRange()...)
	if c.Orchestrator.Workers <= 0 {
		problems = append(problems, "orchestrator.workers must be a positive number")
	}
	if len(c.Orchestrator.Endpoints) == 0 {
		problems = append(problems, "orchestrator.endpoints is not set")
	}
	if c.Orchestrator.Project == "" {
		problems = append(problems, "orchestrator.project is not set")
	}
	if c.Orchestrator.Repo == "" {
		problems = append(problems, "orchestrator.repo is not set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateRange() []string {
	var problems []string
	start, end := time.Time{}, time.Time{}
	if c.Range.Start == "" {
		problems = append(problems, "range.start is not set")
	} else {
		var err error
		start, err = ParseRangeTime(c.Range.Start)
		if err != nil {
			problems = append(problems, fmt.Sprintf("range.start %q is not in %s form", c.Range.Start, TimeLayout))
		}
	}
	if c.Range.End == "" {
		problems = append(problems, "range.end is not set")
	} else {
		var err error
		end, err = ParseRangeTime(c.Range.End)
		if err != nil {
			problems = append(problems, fmt.Sprintf("range.end %q is not in %s form", c.Range.End, TimeLayout))
		}
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		problems = append(problems, "range.start must be before range.end")
	}
	return problems
}
