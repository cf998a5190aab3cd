package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const defaultConfigRelPath = "configs/conf.yml"

var (
	mu        sync.RWMutex
	conf      = defaults()
	listeners []func(Config)
)

// Load 读取配置：cfgName 非空时优先使用（相对路径基于当前目录），
// 否则从当前目录开始向上查找 configs/conf.yml；都找不到时只用默认值与环境变量。
func Load(cfgName string) (Config, error) {
	curDir, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	path := cfgName
	switch {
	case cfgName == "":
		path = findConfigUpward(curDir)
	case !filepath.IsAbs(cfgName):
		path = filepath.Join(curDir, cfgName)
	}
	if path != "" && !fileExist(path) {
		return Config{}, fmt.Errorf("config file not exist, configPath=%v", path)
	}
	return load(path)
}

// Conf 返回当前生效的配置副本，热更新后读到新值。
func Conf() Config {
	mu.RLock()
	defer mu.RUnlock()
	return conf
}

// OnChange 注册热更新回调，只在新配置校验通过后触发。
func OnChange(fn func(Config)) {
	mu.Lock()
	listeners = append(listeners, fn)
	mu.Unlock()
}

func set(next Config) {
	mu.Lock()
	conf = next
	fns := append([]func(Config){}, listeners...)
	mu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
}

func findConfigUpward(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, defaultConfigRelPath)
		if fileExist(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func fileExist(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}
