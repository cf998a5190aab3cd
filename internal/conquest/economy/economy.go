// Package economy 结算被动收入、能量回复与兵力增长。
//
// 结算按“经过了多少个完整的 tick 周期”进行，玩家的 LastTick 只前进整数个周期，
// 所以同一时刻重复调用 Tick 不会重复发钱。
package economy

import (
	"math"
	"time"

	"GeoConquest/internal/conquest/domain"
)

type Engine struct {
	rules domain.Rules
}

func New(rules domain.Rules) *Engine {
	return &Engine{rules: rules}
}

// Tick 对一个玩家结算截至 now 的全部完整周期，直接写入 w。
func (e *Engine) Tick(w domain.World, id domain.PlayerID, now time.Time) (domain.TickReport, error) {
	p, ok := w.Player(id)
	if !ok {
		return domain.TickReport{}, domain.ErrPlayerNotFound.WithData("player", string(id))
	}
	if p.LastTick.IsZero() {
		p.LastTick = now
		w.PutPlayer(p)
		return domain.TickReport{}, nil
	}
	elapsed := now.Sub(p.LastTick)
	if elapsed < e.rules.TickInterval {
		return domain.TickReport{}, nil
	}
	ticks := int(elapsed / e.rules.TickInterval)
	// 长时间离线回来时只补有限个周期，多余的直接作废。
	applied := ticks
	if e.rules.MaxCatchUpTicks > 0 && applied > e.rules.MaxCatchUpTicks {
		applied = e.rules.MaxCatchUpTicks
	}

	owned := w.OwnedBy(id)
	var report domain.TickReport
	report.Ticks = applied
	for i := 0; i < applied; i++ {
		total := 0
		for j := range owned {
			owned[j].Strength = min(owned[j].Strength+e.rules.StrengthGrowth, e.rules.MaxStrength)
			total += owned[j].Strength
		}
		income := int64(len(owned))*e.rules.IncomePerTerritory +
			int64(math.Floor(float64(total)*e.rules.StrengthIncomeFraction+1e-9))
		p.Money += income
		report.Income += income

		regen := e.rules.EnergyRegen
		if len(owned) == 0 {
			regen = e.rules.SurvivalEnergyRegen
		}
		before := p.Energy
		p.Energy = min(p.Energy+regen, p.MaxEnergy)
		if p.Energy > before {
			report.Energy += p.Energy - before
		}
	}

	for _, t := range owned {
		w.PutTerritory(t)
	}
	p.LastTick = p.LastTick.Add(time.Duration(ticks) * e.rules.TickInterval)
	w.PutPlayer(p)
	return report, nil
}

// Preview 只计算下一次 tick 的收入，不修改世界。
func (e *Engine) Preview(w domain.World, id domain.PlayerID) int64 {
	owned := w.OwnedBy(id)
	total := 0
	for _, t := range owned {
		total += min(t.Strength+e.rules.StrengthGrowth, e.rules.MaxStrength)
	}
	return int64(len(owned))*e.rules.IncomePerTerritory +
		int64(math.Floor(float64(total)*e.rules.StrengthIncomeFraction+1e-9))
}
