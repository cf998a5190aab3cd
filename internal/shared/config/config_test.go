package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConf(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write err=%v", err)
	}
	return path
}

func TestLoad_文件覆盖默认值(t *testing.T) {
	path := writeConf(t, `
store:
  driver: mongodb
rules:
  defense_bonus: 1.5
  tick_interval: 30s
sync:
  poll_interval: 1s
catalog:
  - id: recruit
    name: Recruit
    cost: 60
    target: owned-territory
    effect: 10
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load err=%v", err)
	}
	if c.Store.Driver != StoreMongoDB || c.Rules.DefenseBonus != 1.5 || c.Rules.TickInterval != 30*time.Second {
		t.Fatalf("got=%+v", c)
	}
	// 未写的键保持默认
	if c.Rules.Retaliation != 0.8 || c.Sync.RequestTimeout != 5*time.Second || c.Gate.WSPath != "/ws" {
		t.Fatalf("期望保留默认值, got=%+v", c)
	}
	if it, ok := c.ShopCatalog().Get("recruit"); !ok || it.Cost != 60 {
		t.Fatalf("期望自定义目录, got=%+v", it)
	}
	if Conf().Rules.DefenseBonus != 1.5 {
		t.Fatalf("期望全局配置已更新")
	}
}

func TestLoad_环境变量覆盖(t *testing.T) {
	t.Setenv("GEOCONQUEST_RULES_ATTACK_ENERGY_COST", "7")
	t.Setenv("GEOCONQUEST_GATE_PORT", "9000")
	c, err := Load(writeConf(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("load err=%v", err)
	}
	if c.Rules.AttackEnergyCost != 7 || c.Gate.Port != 9000 {
		t.Fatalf("got rules=%+v gate=%+v", c.Rules, c.Gate)
	}
}

func TestLoad_非法配置报错(t *testing.T) {
	if _, err := Load(writeConf(t, "store:\n  driver: redis\n")); err == nil {
		t.Fatalf("期望未知存储驱动报错")
	}
	if _, err := Load(writeConf(t, "rules:\n  retaliation: 1.5\n")); err == nil {
		t.Fatalf("期望规则校验报错")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("期望文件不存在报错")
	}
}

func TestLoad_道具效果可以为负(t *testing.T) {
	body := "catalog:\n  - id: sabotage\n    cost: 200\n    target: enemy-territory\n    effect: -15\n"
	c, err := Load(writeConf(t, body))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if it, found := c.ShopCatalog().Get("sabotage"); !found || it.Effect != -15 || it.Target != "enemy-territory" {
		t.Fatalf("item=%+v found=%v", it, found)
	}
}

func TestShopCatalog_默认目录(t *testing.T) {
	if _, ok := defaults().ShopCatalog().Get("sabotage"); !ok {
		t.Fatalf("期望内置目录")
	}
}
