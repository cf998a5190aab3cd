package grid

import (
	"math/rand"
	"testing"
)

func TestCellID_同一格内任意坐标编号一致(t *testing.T) {
	g := New(DefaultCellSize)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		lat := r.Float64()*170 - 85
		lng := r.Float64()*350 - 175
		center := g.Center(g.CellOf(lat, lng))
		want := g.CellID(center.Lat, center.Lng)

		half := g.CellSize() / 2 * 0.999
		jLat := center.Lat + (r.Float64()*2-1)*half
		jLng := center.Lng + (r.Float64()*2-1)*half
		if got := g.CellID(jLat, jLng); got != want {
			t.Fatalf("期望同格编号一致 (%v,%v) got=%s want=%s", jLat, jLng, got, want)
		}
		if got := g.CellID(g.Snap(jLat), g.Snap(jLng)); got != want {
			t.Fatalf("期望吸附后编号幂等 got=%s want=%s", got, want)
		}
	}
}

func TestCellID_可反解且零值不带负号(t *testing.T) {
	g := New(DefaultCellSize)
	id := g.CellID(-0.0001, 0.0001)
	if id != "0.0000_0.0000" {
		t.Fatalf("期望原点编号为 0.0000_0.0000, got=%s", id)
	}
	sp := g.CellID(-23.5505, -46.6333)
	c, err := g.Parse(sp)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if g.IDOf(c) != sp {
		t.Fatalf("期望反解后重新格式化一致, got=%s want=%s", g.IDOf(c), sp)
	}
}

func TestParse_非法编号(t *testing.T) {
	g := New(DefaultCellSize)
	for _, id := range []string{"", "abc", "1.0", "x_1.0", "95.0000_10.0000"} {
		if _, err := g.Parse(id); err == nil {
			t.Fatalf("期望 %q 解析失败", id)
		}
	}
}

func TestAdjacent_对称且四连通(t *testing.T) {
	g := New(DefaultCellSize)
	center := g.CellID(10, 20)
	ids := g.Around(10, 20, 2)
	for _, a := range ids {
		for _, b := range ids {
			if g.Adjacent(a, b) != g.Adjacent(b, a) {
				t.Fatalf("期望相邻关系对称 a=%s b=%s", a, b)
			}
		}
	}

	ns, err := g.NeighborIDs(center)
	if err != nil {
		t.Fatalf("NeighborIDs err=%v", err)
	}
	for _, n := range ns {
		if !g.Adjacent(center, n) {
			t.Fatalf("期望 %s 与 %s 相邻", center, n)
		}
	}
	diag := g.IDOf(Cell{Row: g.CellOf(10, 20).Row + 1, Col: g.CellOf(10, 20).Col + 1})
	if g.Adjacent(center, diag) {
		t.Fatalf("期望对角格不相邻 %s %s", center, diag)
	}
	if g.Adjacent(center, center) {
		t.Fatalf("期望格子与自身不相邻")
	}
}

func TestAround_半径3为7x7(t *testing.T) {
	g := New(DefaultCellSize)
	ids := g.Around(-23.5505, -46.6333, 3)
	if len(ids) != 49 {
		t.Fatalf("期望 49 个格子, got=%d", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("期望编号不重复, dup=%s", id)
		}
		seen[id] = true
	}
}

func TestGrid_经度跨180度回绕(t *testing.T) {
	g := New(DefaultCellSize)
	if a, b := g.CellID(-16.8, 180), g.CellID(-16.8, -180); a != b || a != "-16.8000_-180.0000" {
		t.Fatalf("期望 ±180 归为同一格, got=%s %s", a, b)
	}
	canon, err := g.Canonical("-16.8000_180.0000")
	if err != nil || canon != "-16.8000_-180.0000" {
		t.Fatalf("canon=%s err=%v", canon, err)
	}

	ns, err := g.NeighborIDs(canon)
	if err != nil {
		t.Fatalf("NeighborIDs err=%v", err)
	}
	if len(ns) != 4 {
		t.Fatalf("期望四个邻居, got=%v", ns)
	}
	for _, n := range ns {
		if _, err := g.Parse(n); err != nil {
			t.Fatalf("邻居编号应可解析 %s err=%v", n, err)
		}
	}
	if !g.Adjacent(canon, "-16.8000_179.9970") || !g.Adjacent("-16.8000_179.9970", canon) {
		t.Fatalf("期望跨日界线两侧格子相邻")
	}

	ids := g.Around(-16.8, 179.999, 3)
	if len(ids) != 49 {
		t.Fatalf("期望 49 个格子, got=%d", len(ids))
	}
	for _, id := range ids {
		if _, err := g.Parse(id); err != nil {
			t.Fatalf("Around 产生了非法编号 %s", id)
		}
	}
}

func TestGrid_极点没有更外侧的格子(t *testing.T) {
	g := New(DefaultCellSize)
	pole := g.CellID(90, 9.999)
	if pole != "90.0000_9.9990" {
		t.Fatalf("pole=%s", pole)
	}
	ns, err := g.NeighborIDs(pole)
	if err != nil {
		t.Fatalf("NeighborIDs err=%v", err)
	}
	if len(ns) != 3 {
		t.Fatalf("期望极点格只有三个邻居, got=%v", ns)
	}
	for _, n := range ns {
		if _, err := g.Parse(n); err != nil {
			t.Fatalf("邻居编号应可解析 %s err=%v", n, err)
		}
	}

	ids := g.Around(-89.999, 0, 3)
	if len(ids) != 4*7 {
		t.Fatalf("期望南极附近只保留 4 行, got=%d", len(ids))
	}
	for _, id := range ids {
		if _, err := g.Parse(id); err != nil {
			t.Fatalf("Around 产生了非法编号 %s", id)
		}
	}
}
