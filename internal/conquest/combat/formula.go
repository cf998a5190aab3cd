// Package combat 校验并结算两个相邻格子之间的一次攻击，以及己方格子之间的兵力调动。
package combat

import "math"

// Result 是纯公式的结算结果。
type Result struct {
	AttackPower  int
	DefensePower int
	Won          bool
	// SourceAfter 与 TargetAfter 是结算后两格的兵力。
	SourceAfter int
	TargetAfter int
}

// Compute 确定性战斗公式：
//
//	attack  = source - 1
//	defense = floor(target * defenseBonus)
//	attack > defense → 攻方胜，target = attack - defense
//	否则            → 守方胜，target = max(1, defense - floor(attack * retaliation))
//
// 无论胜负 source 都只剩 1。
func Compute(source, target int, defenseBonus, retaliation float64) Result {
	r := Result{
		AttackPower:  source - 1,
		DefensePower: floorMul(target, defenseBonus),
		SourceAfter:  1,
	}
	if r.AttackPower > r.DefensePower {
		r.Won = true
		r.TargetAfter = r.AttackPower - r.DefensePower
		return r
	}
	r.TargetAfter = r.DefensePower - floorMul(r.AttackPower, retaliation)
	if r.TargetAfter < 1 {
		r.TargetAfter = 1
	}
	return r
}

// floorMul 容忍 1.2*15 这类乘法落在整数下方一个 ulp 的情况。
func floorMul(n int, f float64) int {
	return int(math.Floor(float64(n)*f + 1e-9))
}
