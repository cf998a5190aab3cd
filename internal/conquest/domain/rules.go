package domain

import (
	"fmt"
	"time"
)

// Rules 是一局游戏的全部可调参数。服务端与客户端必须使用同一份规则，
// 否则乐观预测会和权威结果不一致（依然正确，只是多一次回滚）。
type Rules struct {
	CellSize               float64       `mapstructure:"cell_size" json:"cellSize"`
	DefenseBonus           float64       `mapstructure:"defense_bonus" json:"defenseBonus"`
	Retaliation            float64       `mapstructure:"retaliation" json:"retaliation"`
	AttackEnergyCost       int           `mapstructure:"attack_energy_cost" json:"attackEnergyCost"`
	MaxStrength            int           `mapstructure:"max_strength" json:"maxStrength"`
	ClaimStrength          int           `mapstructure:"claim_strength" json:"claimStrength"`
	NeutralStrengthMin     int           `mapstructure:"neutral_strength_min" json:"neutralStrengthMin"`
	NeutralStrengthMax     int           `mapstructure:"neutral_strength_max" json:"neutralStrengthMax"`
	TickInterval           time.Duration `mapstructure:"tick_interval" json:"tickInterval"`
	MaxCatchUpTicks        int           `mapstructure:"max_catch_up_ticks" json:"maxCatchUpTicks"`
	IncomePerTerritory     int64         `mapstructure:"income_per_territory" json:"incomePerTerritory"`
	StrengthIncomeFraction float64       `mapstructure:"strength_income_fraction" json:"strengthIncomeFraction"`
	StrengthGrowth         int           `mapstructure:"strength_growth" json:"strengthGrowth"`
	EnergyRegen            int           `mapstructure:"energy_regen" json:"energyRegen"`
	SurvivalEnergyRegen    int           `mapstructure:"survival_energy_regen" json:"survivalEnergyRegen"`
	InitialMoney           int64         `mapstructure:"initial_money" json:"initialMoney"`
	InitialEnergy          int           `mapstructure:"initial_energy" json:"initialEnergy"`
	MaxEnergy              int           `mapstructure:"max_energy" json:"maxEnergy"`
	InitialGridRadius      int           `mapstructure:"initial_grid_radius" json:"initialGridRadius"`
}

func DefaultRules() Rules {
	return Rules{
		CellSize:               0.003,
		DefenseBonus:           1.2,
		Retaliation:            0.8,
		AttackEnergyCost:       10,
		MaxStrength:            5000,
		ClaimStrength:          10,
		NeutralStrengthMin:     5,
		NeutralStrengthMax:     24,
		TickInterval:           10 * time.Second,
		MaxCatchUpTicks:        360,
		IncomePerTerritory:     5,
		StrengthIncomeFraction: 0.05,
		StrengthGrowth:         1,
		EnergyRegen:            10,
		SurvivalEnergyRegen:    2,
		InitialMoney:           100,
		InitialEnergy:          100,
		MaxEnergy:              100,
		InitialGridRadius:      3,
	}
}

func (r Rules) Validate() error {
	switch {
	case r.CellSize <= 0:
		return fmt.Errorf("rules: cell_size must be positive, got %v", r.CellSize)
	case r.DefenseBonus <= 0:
		return fmt.Errorf("rules: defense_bonus must be positive, got %v", r.DefenseBonus)
	case r.Retaliation < 0 || r.Retaliation > 1:
		return fmt.Errorf("rules: retaliation must be within [0,1], got %v", r.Retaliation)
	case r.AttackEnergyCost < 0:
		return fmt.Errorf("rules: attack_energy_cost must not be negative")
	case r.MaxStrength < 1:
		return fmt.Errorf("rules: max_strength must be >= 1")
	case r.ClaimStrength < 1 || r.ClaimStrength > r.MaxStrength:
		return fmt.Errorf("rules: claim_strength must be within [1,max_strength]")
	case r.NeutralStrengthMin < 1 || r.NeutralStrengthMax < r.NeutralStrengthMin:
		return fmt.Errorf("rules: neutral strength range [%d,%d] invalid", r.NeutralStrengthMin, r.NeutralStrengthMax)
	case r.TickInterval <= 0:
		return fmt.Errorf("rules: tick_interval must be positive")
	case r.MaxEnergy < 1 || r.InitialEnergy < 0 || r.InitialEnergy > r.MaxEnergy:
		return fmt.Errorf("rules: energy settings invalid")
	case r.InitialMoney < 0 || r.IncomePerTerritory < 0 || r.StrengthIncomeFraction < 0:
		return fmt.Errorf("rules: economy settings must not be negative")
	case r.InitialGridRadius < 0:
		return fmt.Errorf("rules: initial_grid_radius must not be negative")
	}
	return nil
}
