package audiopipeline

import (
	"time"

	"github.com/spf13/viper"

	"github.com/pdeljanov/ayane-go/internal/errors"
)

// PortConfig describes a single link's queue capacity and scheduling
// hint, loaded from a host process's configuration file.
type PortConfig struct {
	QueueCapacity  int    `mapstructure:"queue_capacity"`
	ForceAsync     bool   `mapstructure:"force_async"`
}

// PoolConfig describes a named BufferPool's template and preallocation.
type PoolConfig struct {
	Name          string `mapstructure:"name"`
	SampleFormat  string `mapstructure:"sample_format"`
	SampleRate    uint32 `mapstructure:"sample_rate"`
	ChannelLayout string `mapstructure:"channel_layout"`
	FrameLength   uint32 `mapstructure:"frame_length"`
	Preallocate   int    `mapstructure:"preallocate"`
}

// Config is the viper-unmarshaled configuration for a host process
// wiring up an audiopipeline graph, grounded on the teacher's
// internal/conf Settings/Load pattern.
type Config struct {
	DefaultPort PortConfig   `mapstructure:"default_port"`
	Pools       []PoolConfig `mapstructure:"pools"`

	ClockMinPeriod time.Duration `mapstructure:"clock_min_period"`
	ClockMaxPeriod time.Duration `mapstructure:"clock_max_period"`
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("default_port.queue_capacity", defaultQueueCapacity)
	v.SetDefault("default_port.force_async", false)
	v.SetDefault("clock_min_period", 1*time.Millisecond)
	v.SetDefault("clock_max_period", 1*time.Second)
}

// LoadConfig reads configName (without extension) from configPaths using
// viper, merges in defaults, and unmarshals into a Config. A missing
// config file is not an error: defaults alone produce a valid Config.
func LoadConfig(configName string, configPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	setConfigDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.New(err).
				Component(ComponentAudioPipeline).
				Category(errors.CategoryIO).
				Context("config_name", configName).
				Build()
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(err).
			Component(ComponentAudioPipeline).
			Category(errors.CategoryValidation).
			Context("config_name", configName).
			Build()
	}
	return cfg, nil
}

// ParseSampleFormat converts the config's string sample format name into
// a SampleFormat.
func ParseSampleFormat(name string) (SampleFormat, error) {
	switch name {
	case "i16":
		return SampleFormatInt16, nil
	case "i32":
		return SampleFormatInt32, nil
	case "f32":
		return SampleFormatFloat32, nil
	case "f64":
		return SampleFormatFloat64, nil
	case "u8":
		return SampleFormatUint8, nil
	case "i24":
		return SampleFormatInt24, nil
	default:
		return 0, errors.New(nil).
			Component(ComponentAudioPipeline).
			Category(errors.CategoryValidation).
			Context("sample_format", name).
			Build()
	}
}

// ParseChannelLayout converts a config's channel layout name ("mono",
// "stereo", "5.1") into a ChannelSet.
func ParseChannelLayout(name string) (ChannelSet, error) {
	switch name {
	case "mono":
		return ChannelSetMono, nil
	case "stereo":
		return ChannelSetStereo, nil
	case "5.1":
		return ChannelSet5Point1, nil
	default:
		return 0, errors.New(nil).
			Component(ComponentAudioPipeline).
			Category(errors.CategoryValidation).
			Context("channel_layout", name).
			Build()
	}
}
