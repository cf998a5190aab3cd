// Package worldgen 负责格子的惰性生成：一个格子第一次被看到时以中立状态落地。
//
// 中立兵力由格子编号的 blake3 摘要决定，同一个格子无论在哪个节点、被生成多少次都得到同样的值，
// 并发的 EnsureTerritories 因此天然一致。
package worldgen

import (
	"encoding/binary"
	"strings"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/grid"

	"lukechampine.com/blake3"
)

type Generator struct {
	grid  grid.Grid
	rules domain.Rules
}

func New(g grid.Grid, rules domain.Rules) *Generator {
	return &Generator{grid: g, rules: rules}
}

func (g *Generator) Grid() grid.Grid {
	return g.grid
}

// NeutralStrength 返回 [NeutralStrengthMin, NeutralStrengthMax] 区间内的确定性兵力。
func (g *Generator) NeutralStrength(id domain.CellID) int {
	span := g.rules.NeutralStrengthMax - g.rules.NeutralStrengthMin + 1
	if span <= 1 {
		return g.rules.NeutralStrengthMin
	}
	sum := blake3.Sum256([]byte(id))
	return g.rules.NeutralStrengthMin + int(binary.LittleEndian.Uint64(sum[:8])%uint64(span))
}

func SectorName(id domain.CellID) string {
	return "Sector " + strings.ReplaceAll(string(id), "_", ":")
}

// Canonical 校验并规整格子编号。
func (g *Generator) Canonical(id domain.CellID) (domain.CellID, error) {
	c, err := g.grid.Canonical(string(id))
	if err != nil {
		return "", domain.ErrBadCell.WithData("cell", string(id))
	}
	return domain.CellID(c), nil
}

// Neutral 构造一个尚未落地的中立格。
func (g *Generator) Neutral(c grid.Cell) domain.Territory {
	id := domain.CellID(g.grid.IDOf(c))
	center := g.grid.Center(c)
	return domain.Territory{
		ID:       id,
		Name:     SectorName(id),
		Strength: g.NeutralStrength(id),
		Lat:      center.Lat,
		Lng:      center.Lng,
	}
}

// Ensure 保证格子存在；已存在则原样返回。
func (g *Generator) Ensure(w domain.World, id domain.CellID) (domain.Territory, bool, error) {
	c, err := g.grid.Parse(string(id))
	if err != nil {
		return domain.Territory{}, false, domain.ErrBadCell.WithData("cell", string(id))
	}
	canonical := domain.CellID(g.grid.IDOf(c))
	if t, ok := w.Territory(canonical); ok {
		return t, false, nil
	}
	t := g.Neutral(c)
	w.PutTerritory(t)
	return t, true, nil
}

// EnsureNeighbors 保证四个邻格存在，返回新落地的格子。
func (g *Generator) EnsureNeighbors(w domain.World, id domain.CellID) ([]domain.Territory, error) {
	c, err := g.grid.Parse(string(id))
	if err != nil {
		return nil, domain.ErrBadCell.WithData("cell", string(id))
	}
	var created []domain.Territory
	for _, n := range g.grid.Neighbors(c) {
		t, isNew, err := g.Ensure(w, domain.CellID(g.grid.IDOf(n)))
		if err != nil {
			return nil, err
		}
		if isNew {
			created = append(created, t)
		}
	}
	return created, nil
}

// Around 返回以 (lat,lng) 为中心、半径 radius 的格子编号，用于初始化本地网格。
func (g *Generator) Around(lat, lng float64, radius int) []domain.CellID {
	raw := g.grid.Around(lat, lng, radius)
	out := make([]domain.CellID, len(raw))
	for i, id := range raw {
		out[i] = domain.CellID(id)
	}
	return out
}
