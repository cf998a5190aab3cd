package logs

import (
	"path/filepath"
	"testing"

	"GeoConquest/internal/shared/config"

	"go.uber.org/zap/zapcore"
)

func TestInit_写文件并可调级别(t *testing.T) {
	dir := t.TempDir()
	err := Init("test", config.LogConfig{FileDir: filepath.Join(dir, "app.log"), Level: "warn", MaxSize: 1})
	if err != nil {
		t.Fatalf("init err=%v", err)
	}
	if Logger().Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("warn 级别下 info 不应输出")
	}
	SetLevel("debug")
	if !Logger().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("期望热更新到 debug")
	}
	SetLevel("nonsense")
	if !Logger().Core().Enabled(zapcore.InfoLevel) || Logger().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("非法级别应回退到 info")
	}
	Kit().Info("kit logger works")
}
