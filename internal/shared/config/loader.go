package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "GEOCONQUEST"

func newViper() (*viper.Viper, error) {
	v := viper.New()
	// 默认值要逐键注册，AutomaticEnv 才能覆盖到嵌套字段（GEOCONQUEST_RULES_CELL_SIZE）
	var flat map[string]any
	if err := mapstructure.Decode(defaults(), &flat); err != nil {
		return nil, err
	}
	for k, val := range flat {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("viper unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func load(configPath string) (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}
	c, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	set(c)

	if configPath != "" {
		// 热更新：新配置校验失败时保留旧值
		v.OnConfigChange(func(e fsnotify.Event) {
			next, err := decode(v)
			if err != nil {
				log.Printf("config reload rejected, file=%s err=%v", e.Name, err)
				return
			}
			log.Printf("config reloaded, file=%s", e.Name)
			set(next)
		})
		v.WatchConfig()
	}
	return c, nil
}
